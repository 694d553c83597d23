package record

import (
	"bytes"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an ordered string-keyed map of values. Keys keep their insertion
// order; overwriting a key keeps its original position.
//
// A record stored in a collection is an *Object. Its identity is stable across
// updates, which merge into the existing Object.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

// FromMap builds an Object from m, inserting keys in sorted order.
func FromMap(m map[string]any) (*Object, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	o := NewObject()
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		o.Set(k, v)
	}
	return o, nil
}

// MustObject builds an Object from alternating key, value arguments, keeping
// argument order. It panics on malformed input and is meant for literals in
// tests and examples.
func MustObject(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("record: MustObject needs key/value pairs")
	}
	o := NewObject()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record: key %v is not a string", kv[i]))
		}
		v, err := ValueOf(kv[i+1])
		if err != nil {
			panic(fmt.Sprintf("record: key %q: %v", k, err))
		}
		o.Set(k, v)
	}
	return o
}

func (o *Object) init() {
	if o.m == nil {
		o.m = orderedmap.New[string, Value]()
	}
}

func (o *Object) oldest() *orderedmap.Pair[string, Value] {
	if o == nil || o.m == nil {
		return nil
	}
	return o.m.Oldest()
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Get(key)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key and returns o. Setting an undefined value removes
// the key.
func (o *Object) Set(key string, v Value) *Object {
	if !v.IsDefined() {
		o.Delete(key)
		return o
	}
	o.init()
	o.m.Set(key, v)
	return o
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil || o.m == nil {
		return false
	}
	_, ok := o.m.Delete(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for p := o.oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Range calls fn for each field in order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	for p := o.oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Equal reports whether o and other hold structurally equal fields in the
// same order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	a, b := o.oldest(), other.oldest()
	for a != nil && b != nil {
		if a.Key != b.Key || !Equal(a.Value, b.Value) {
			return false
		}
		a, b = a.Next(), b.Next()
	}
	return true
}

func (o *Object) String() string {
	return ObjectOf(o).String()
}

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	o.init()
	return o.m.MarshalJSON()
}

func (o *Object) UnmarshalJSON(data []byte) error {
	o.m = orderedmap.New[string, Value]()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return o.m.UnmarshalJSON(data)
}
