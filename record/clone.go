package record

import "strings"

// SelectKeys applies a projection to all. Entries in fields prefixed with "-"
// exclude a key; the others include one. When any inclusion is present the
// inclusions are returned as given and exclusions are ignored. Otherwise the
// result is all minus the exclusions. A bare "-" is ignored, and empty fields
// returns all.
func SelectKeys(all, fields []string) []string {
	if len(fields) == 0 {
		return all
	}
	var included []string
	excluded := make(map[string]bool)
	for _, f := range fields {
		name, minus := strings.CutPrefix(f, "-")
		if name == "" {
			continue
		}
		if minus {
			excluded[name] = true
		} else {
			included = append(included, name)
		}
	}
	if len(included) > 0 {
		return included
	}
	out := make([]string, 0, len(all))
	for _, k := range all {
		if !excluded[k] {
			out = append(out, k)
		}
	}
	return out
}

// Clone returns a deep copy of v. For an object, fields is applied to its top
// level keys with SelectKeys; nested objects and array elements are copied in
// full. Included keys the object does not have are left out.
func Clone(v Value, fields ...string) Value {
	switch v.kind {
	case KindTime:
		return Time(v.t)
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = Clone(item)
		}
		return Array(items...)
	case KindObject:
		return ObjectOf(CloneObject(v.obj, fields...))
	}
	// Primitives are immutable; undefined stays undefined.
	return v
}

// CloneObject is Clone for a record. It returns nil for nil.
func CloneObject(o *Object, fields ...string) *Object {
	if o == nil {
		return nil
	}
	out := NewObject()
	for _, k := range SelectKeys(o.Keys(), fields) {
		if v, ok := o.Get(k); ok {
			out.Set(k, Clone(v))
		}
	}
	return out
}

// Merge copies every field of changes into dst, overwriting existing keys.
// Nested values are not merged.
func Merge(dst, changes *Object) {
	changes.Range(func(k string, v Value) bool {
		dst.Set(k, v)
		return true
	})
}
