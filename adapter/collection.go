package adapter

import (
	"context"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

// FileCollectionAdapter keeps one record array in a file. When the file does
// not exist, Read builds the initial records, writes them and returns them.
type FileCollectionAdapter struct {
	fs      billy.Filesystem
	name    string
	path    string
	codec   codec.Codec
	initial func() []*record.Object
}

// NewFileCollectionAdapter returns an adapter for the file at path. initial
// may be nil, in which case a missing file starts as an empty array.
func NewFileCollectionAdapter(path string, initial func() []*record.Object, opts ...Option) *FileCollectionAdapter {
	o := newOptions(opts)
	fsys, name := resolve(o.fs, path)
	return &FileCollectionAdapter{fs: fsys, name: name, path: path, codec: o.codec, initial: initial}
}

func (a *FileCollectionAdapter) Read(ctx context.Context) ([]*record.Object, error) {
	data, ok, err := readFile(a.fs, a.name)
	if err != nil {
		return nil, &ReadError{Source: "file " + a.path, Err: err}
	}
	if !ok {
		var recs []*record.Object
		if a.initial != nil {
			recs = a.initial()
		}
		if recs == nil {
			recs = []*record.Object{}
		}
		if err := a.Write(ctx, recs); err != nil {
			return nil, err
		}
		return recs, nil
	}
	v, err := a.codec.Decode(data)
	if err != nil {
		return nil, &ReadError{Source: "file " + a.path, Err: err}
	}
	recs, err := record.RecordsFrom(v)
	if err != nil {
		return nil, &ReadError{Source: "file " + a.path, Err: err}
	}
	return recs, nil
}

func (a *FileCollectionAdapter) Write(_ context.Context, recs []*record.Object) error {
	data, err := a.codec.Encode(record.RecordsValue(recs))
	if err != nil {
		return &WriteError{Source: "file " + a.path, Err: err}
	}
	if err := util.WriteFile(a.fs, a.name, data, 0o644); err != nil {
		return &WriteError{Source: "file " + a.path, Err: err}
	}
	return nil
}
