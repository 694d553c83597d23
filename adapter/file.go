package adapter

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

// FileAdapter keeps the dataset in a single file.
//
// The file holds whatever the codec produces; by default an indented JSON
// object keyed by collection name. A missing path, or a path naming a
// directory, reads as no dataset. Parent directories are created on write.
type FileAdapter struct {
	fs    billy.Filesystem
	name  string
	path  string
	codec codec.Codec
}

// NewFileAdapter returns an adapter for the file at path.
func NewFileAdapter(path string, opts ...Option) *FileAdapter {
	o := newOptions(opts)
	fsys, name := resolve(o.fs, path)
	return &FileAdapter{fs: fsys, name: name, path: path, codec: o.codec}
}

// Path returns the path the adapter was created with.
func (a *FileAdapter) Path() string { return a.path }

func (a *FileAdapter) Read(_ context.Context) (record.Dataset, error) {
	data, ok, err := readFile(a.fs, a.name)
	if err != nil {
		return nil, &ReadError{Source: "file " + a.path, Err: err}
	}
	if !ok {
		return nil, nil
	}
	d, err := decodeDataset(a.codec, data)
	if err != nil {
		return nil, &ReadError{Source: "file " + a.path, Err: err}
	}
	return d, nil
}

func (a *FileAdapter) Write(_ context.Context, d record.Dataset) error {
	data, err := a.codec.Encode(d.Value())
	if err != nil {
		return &WriteError{Source: "file " + a.path, Err: err}
	}
	if err := util.WriteFile(a.fs, a.name, data, 0o644); err != nil {
		return &WriteError{Source: "file " + a.path, Err: err}
	}
	return nil
}

// resolve picks the filesystem and in-filesystem name for path. Without an
// explicit filesystem the file's directory becomes the root.
func resolve(fsys billy.Filesystem, path string) (billy.Filesystem, string) {
	if fsys != nil {
		return fsys, path
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return osfs.New(dir), name
}

// readFile returns the contents of name, or false if it does not exist as a
// regular file.
func readFile(fsys billy.Filesystem, name string) ([]byte, bool, error) {
	fi, err := fsys.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if fi.IsDir() {
		return nil, false, nil
	}
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
