// Package store implements persiston's root store and the collection views
// handed out by it.
//
// A Store owns one in-memory [record.Dataset]. It loads the dataset from its
// adapter once, and every mutating collection operation writes the whole
// dataset back. Reads return deep copies, so callers never share state with
// the store.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stevemurr/persiston/adapter"
	"github.com/stevemurr/persiston/record"
)

// Store is the root of a persiston database. Safe for concurrent use; every
// operation, including the save a mutation triggers, runs under one lock.
type Store struct {
	mu      sync.Mutex
	data    record.Dataset
	adapter adapter.Adapter
	initial func() record.Dataset
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithAdapter binds the persistence adapter. Without one the store lives in
// memory only and Save is a no-op.
func WithAdapter(a adapter.Adapter) Option {
	return func(s *Store) { s.adapter = a }
}

// WithInitialData sets the generator Load falls back to when the adapter has
// no dataset.
func WithInitialData(fn func() record.Dataset) Option {
	return func(s *Store) { s.initial = fn }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a store with an empty dataset. Call Load to read persisted
// data.
func New(opts ...Option) *Store {
	s := &Store{data: record.Dataset{}, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the dataset with the adapter's. When the adapter has none,
// the initial data generator is used, or else an empty dataset. Read
// failures are returned as is and leave the current dataset untouched.
func (s *Store) Load(ctx context.Context) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d record.Dataset
	if s.adapter != nil {
		var err error
		if d, err = s.adapter.Read(ctx); err != nil {
			return nil, err
		}
	}
	source := "adapter"
	if d == nil {
		source = "empty"
		if s.initial != nil {
			source = "initial"
			d = s.initial()
		}
		if d == nil {
			d = record.Dataset{}
		}
	}
	s.data = d
	s.log.DebugContext(ctx, "store: loaded", "source", source, "collections", len(d))
	return s, nil
}

// Save writes the whole dataset through the adapter.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx)
}

// Collection returns a view of the named collection. The collection is
// created on the first operation through the view, not here.
func (s *Store) Collection(name string) *Collection {
	return &Collection{name: name, b: s}
}

// Replace swaps the whole dataset without saving it. Existing views observe
// the new data.
func (s *Store) Replace(d record.Dataset) {
	if d == nil {
		d = record.Dataset{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
}

// Snapshot returns a deep copy of the dataset.
func (s *Store) Snapshot() record.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Names returns the sorted names of the collections in the dataset.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Names()
}

func (s *Store) lock()   { s.mu.Lock() }
func (s *Store) unlock() { s.mu.Unlock() }

// array returns the live records of name, installing an empty array on first
// access.
func (s *Store) array(name string) []*record.Object {
	recs, ok := s.data[name]
	if !ok {
		recs = []*record.Object{}
		s.data[name] = recs
	}
	return recs
}

func (s *Store) setArray(name string, recs []*record.Object) {
	s.data[name] = recs
}

func (s *Store) persist(ctx context.Context) error {
	if s.adapter == nil {
		return nil
	}
	if err := s.adapter.Write(ctx, s.data); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "store: saved", "collections", len(s.data))
	return nil
}
