package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stevemurr/persiston/adapter"
	"github.com/stevemurr/persiston/record"
)

// List is a standalone collection persisted on its own through a
// CollectionAdapter. It offers the same operations as a store collection and
// saves only its own records.
type List struct {
	Collection

	mu      sync.Mutex
	recs    []*record.Object
	adapter adapter.CollectionAdapter
	log     *slog.Logger
}

// Connect reads the records of a and returns a List bound to it.
func Connect(ctx context.Context, a adapter.CollectionAdapter) (*List, error) {
	recs, err := a.Read(ctx)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*record.Object{}
	}
	l := &List{recs: recs, adapter: a, log: slog.Default()}
	l.Collection = Collection{b: l}
	l.log.DebugContext(ctx, "list: loaded", "records", len(recs))
	return l, nil
}

// Len returns the number of records.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recs)
}

// Snapshot returns deep copies of all records.
func (l *List) Snapshot() []*record.Object {
	l.mu.Lock()
	defer l.mu.Unlock()
	return record.CloneRecords(l.recs)
}

func (l *List) lock()   { l.mu.Lock() }
func (l *List) unlock() { l.mu.Unlock() }

func (l *List) array(string) []*record.Object { return l.recs }

func (l *List) setArray(_ string, recs []*record.Object) { l.recs = recs }

func (l *List) persist(ctx context.Context) error {
	if err := l.adapter.Write(ctx, l.recs); err != nil {
		return err
	}
	l.log.DebugContext(ctx, "list: saved", "records", len(l.recs))
	return nil
}
