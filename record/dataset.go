package record

import (
	"fmt"
	"sort"
)

// Dataset maps collection names to their records, in insertion order.
type Dataset map[string][]*Object

// Names returns the collection names, sorted.
func (d Dataset) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep copies d.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	for name, recs := range d {
		out[name] = CloneRecords(recs)
	}
	return out
}

// Value encodes d as an object keyed by collection name in sorted order.
func (d Dataset) Value() Value {
	o := NewObject()
	for _, name := range d.Names() {
		o.Set(name, RecordsValue(d[name]))
	}
	return ObjectOf(o)
}

// DatasetFrom decodes the shape produced by Dataset.Value.
func DatasetFrom(v Value) (Dataset, error) {
	o, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("dataset must be an object, got %s", v.Kind())
	}
	d := make(Dataset, o.Len())
	var err error
	o.Range(func(name string, item Value) bool {
		var recs []*Object
		if recs, err = RecordsFrom(item); err != nil {
			err = fmt.Errorf("collection %q: %w", name, err)
			return false
		}
		d[name] = recs
		return true
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RecordsValue wraps recs as an array value without copying them.
func RecordsValue(recs []*Object) Value {
	items := make([]Value, len(recs))
	for i, r := range recs {
		items[i] = ObjectOf(r)
	}
	return Array(items...)
}

// RecordsFrom decodes an array of objects.
func RecordsFrom(v Value) ([]*Object, error) {
	items, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("records must be an array, got %s", v.Kind())
	}
	recs := make([]*Object, len(items))
	for i, item := range items {
		o, ok := item.AsObject()
		if !ok {
			return nil, fmt.Errorf("record %d must be an object, got %s", i, item.Kind())
		}
		recs[i] = o
	}
	return recs, nil
}

// CloneRecords deep copies recs.
func CloneRecords(recs []*Object) []*Object {
	out := make([]*Object, len(recs))
	for i, r := range recs {
		out[i] = CloneObject(r)
	}
	return out
}
