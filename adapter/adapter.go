// Package adapter defines the persistence boundary of a persiston store and
// its implementations.
//
// An Adapter moves a whole dataset at a time. A missing backing resource is
// not an error: Read reports it as a nil dataset with a nil error. Every
// other failure is returned as a *ReadError or *WriteError wrapping the
// underlying cause, so callers see one error vocabulary whatever the medium.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"

	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

// Adapter loads and saves an entire dataset.
type Adapter interface {
	// Read returns the persisted dataset, or nil if none was ever written.
	Read(ctx context.Context) (record.Dataset, error)

	// Write replaces the persisted dataset with d.
	Write(ctx context.Context, d record.Dataset) error
}

// CollectionAdapter loads and saves a single record array.
type CollectionAdapter interface {
	// Read returns the persisted records. Implementations initialize the
	// backing resource when it does not exist, so the result is never
	// absent.
	Read(ctx context.Context) ([]*record.Object, error)

	// Write replaces the persisted records.
	Write(ctx context.Context, recs []*record.Object) error
}

var (
	// ErrRead matches any *ReadError with errors.Is.
	ErrRead = errors.New("read failure")
	// ErrWrite matches any *WriteError with errors.Is.
	ErrWrite = errors.New("write failure")
)

// ReadError reports that an existing resource could not be retrieved or
// decoded.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrRead }

// WriteError reports that a dataset could not be encoded or stored.
type WriteError struct {
	Source string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("could not write %s: %v", e.Source, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

type options struct {
	codec   codec.Codec
	fs      billy.Filesystem
	dataset string
}

// Option configures an adapter.
type Option func(*options)

// WithCodec sets the serialization used by the adapter. The default is
// [codec.Default].
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithFilesystem makes file adapters resolve their path inside fs instead of
// the OS filesystem.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) { o.fs = fs }
}

// WithDatasetName selects the row a SQLite adapter reads and writes. The
// default is "default".
func WithDatasetName(name string) Option {
	return func(o *options) { o.dataset = name }
}

func newOptions(opts []Option) options {
	o := options{codec: codec.Default, dataset: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	return o
}

func decodeDataset(c codec.Codec, data []byte) (record.Dataset, error) {
	v, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	return record.DatasetFrom(v)
}
