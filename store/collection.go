package store

import (
	"context"
	"slices"

	"github.com/stevemurr/persiston/record"
)

// backing is the owner of the records a Collection operates on. All methods
// except lock and unlock are called with the lock held.
type backing interface {
	lock()
	unlock()
	array(name string) []*record.Object
	setArray(name string, recs []*record.Object)
	persist(ctx context.Context) error
}

// Collection is a handle on one named record array. It holds no records
// itself and re-resolves the array on every call.
//
// Mutations change the records in place and then save. If the save fails
// the change stays in memory and the error is returned along with the
// affected count.
type Collection struct {
	name string
	b    backing
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Find returns copies of the records matching q, projected with fields.
func (c *Collection) Find(q record.Query, fields ...string) ([]*record.Object, error) {
	conds, err := q.Conditions()
	if err != nil {
		return nil, err
	}
	c.b.lock()
	defer c.b.unlock()
	out := []*record.Object{}
	for _, r := range c.b.array(c.name) {
		if record.Matches(r, conds) {
			out = append(out, record.CloneObject(r, fields...))
		}
	}
	return out, nil
}

// FindOne returns a copy of the first record matching q, or nil.
func (c *Collection) FindOne(q record.Query, fields ...string) (*record.Object, error) {
	conds, err := q.Conditions()
	if err != nil {
		return nil, err
	}
	c.b.lock()
	defer c.b.unlock()
	recs := c.b.array(c.name)
	if i := firstMatch(recs, conds); i >= 0 {
		return record.CloneObject(recs[i], fields...), nil
	}
	return nil, nil
}

// Count returns the number of records matching q.
func (c *Collection) Count(q record.Query) (int, error) {
	conds, err := q.Conditions()
	if err != nil {
		return 0, err
	}
	c.b.lock()
	defer c.b.unlock()
	n := 0
	for _, r := range c.b.array(c.name) {
		if record.Matches(r, conds) {
			n++
		}
	}
	return n, nil
}

// Insert appends the non-nil records in order and returns how many were
// appended. The store takes ownership of them.
func (c *Collection) Insert(ctx context.Context, recs ...*record.Object) (int, error) {
	c.b.lock()
	defer c.b.unlock()
	arr := c.b.array(c.name)
	n := 0
	for _, r := range recs {
		if r == nil {
			continue
		}
		arr = append(arr, r)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	c.b.setArray(c.name, arr)
	return n, c.b.persist(ctx)
}

// Update merges changes into every record matching q and returns the number
// of records changed.
func (c *Collection) Update(ctx context.Context, q record.Query, changes *record.Object) (int, error) {
	conds, err := q.Conditions()
	if err != nil {
		return 0, err
	}
	c.b.lock()
	defer c.b.unlock()
	n := 0
	for _, r := range c.b.array(c.name) {
		if record.Matches(r, conds) {
			record.Merge(r, changes)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, c.b.persist(ctx)
}

// UpdateOne merges changes into the first record matching q. It returns 0 or
// 1.
func (c *Collection) UpdateOne(ctx context.Context, q record.Query, changes *record.Object) (int, error) {
	conds, err := q.Conditions()
	if err != nil {
		return 0, err
	}
	c.b.lock()
	defer c.b.unlock()
	recs := c.b.array(c.name)
	i := firstMatch(recs, conds)
	if i < 0 {
		return 0, nil
	}
	record.Merge(recs[i], changes)
	return 1, c.b.persist(ctx)
}

// Remove deletes every record matching q. An empty q clears the collection.
func (c *Collection) Remove(ctx context.Context, q record.Query) (int, error) {
	conds, err := q.Conditions()
	if err != nil {
		return 0, err
	}
	c.b.lock()
	defer c.b.unlock()
	recs := c.b.array(c.name)

	if len(conds) == 0 {
		n := len(recs)
		if n == 0 {
			return 0, nil
		}
		c.b.setArray(c.name, []*record.Object{})
		return n, c.b.persist(ctx)
	}

	var indexes []int
	for i, r := range recs {
		if record.Matches(r, conds) {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return 0, nil
	}
	// Back to front so earlier indexes stay valid.
	for _, i := range slices.Backward(indexes) {
		recs = slices.Delete(recs, i, i+1)
	}
	c.b.setArray(c.name, recs)
	return len(indexes), c.b.persist(ctx)
}

// RemoveOne deletes the first record matching q, or the first record when q
// is empty. It returns 0 or 1.
func (c *Collection) RemoveOne(ctx context.Context, q record.Query) (int, error) {
	conds, err := q.Conditions()
	if err != nil {
		return 0, err
	}
	c.b.lock()
	defer c.b.unlock()
	recs := c.b.array(c.name)
	i := firstMatch(recs, conds)
	if i < 0 {
		return 0, nil
	}
	c.b.setArray(c.name, slices.Delete(recs, i, i+1))
	return 1, c.b.persist(ctx)
}

func firstMatch(recs []*record.Object, conds []record.Condition) int {
	return slices.IndexFunc(recs, func(r *record.Object) bool {
		return record.Matches(r, conds)
	})
}
