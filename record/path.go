package record

import (
	"strconv"
	"strings"
)

// Path addresses a nested field, one segment per level.
type Path []string

// ParsePath splits a dotted path such as "foo.bar.baz".
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func (p Path) String() string { return strings.Join(p, ".") }

// Get walks p from v. Object segments are keys; on arrays a segment must be a
// canonical decimal index. It reports false when p is empty, a segment is
// empty or missing, or an intermediate value is not an object or array.
func Get(v Value, p Path) (Value, bool) {
	if len(p) == 0 {
		return Value{}, false
	}
	cur := v
	for _, seg := range p {
		if seg == "" {
			return Value{}, false
		}
		var ok bool
		switch cur.kind {
		case KindObject:
			cur, ok = cur.obj.Get(seg)
		case KindArray:
			cur, ok = index(cur.arr, seg)
		}
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// GetPath is Get on a record with a dotted path.
func GetPath(o *Object, path string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	return Get(ObjectOf(o), ParsePath(path))
}

func index(arr []Value, seg string) (Value, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(arr) || strconv.Itoa(i) != seg {
		return Value{}, false
	}
	return arr[i], true
}
