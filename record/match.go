package record

import (
	"fmt"
	"sort"
)

// Condition requires the value at Path to equal Want.
type Condition struct {
	Path Path
	Want Value
}

// Query maps dotted field paths to the literal each must equal. All entries
// must hold. A nil or empty Query matches every record.
type Query map[string]any

// Conditions converts q into conditions sorted by path.
func (q Query) Conditions() ([]Condition, error) {
	if len(q) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		want, err := ValueOf(q[k])
		if err != nil {
			return nil, fmt.Errorf("query field %q: %w", k, err)
		}
		conds = append(conds, Condition{Path: ParsePath(k), Want: want})
	}
	return conds, nil
}

// Matches reports whether every condition holds for o.
func Matches(o *Object, conds []Condition) bool {
	for _, c := range conds {
		// A missing field reads as undefined, so only an undefined Want
		// matches it.
		got, _ := Get(ObjectOf(o), c.Path)
		if !same(got, c.Want) {
			return false
		}
	}
	return true
}

// same is strict equality: no coercion across kinds, objects by identity,
// arrays never.
func same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindTime:
		return a.t.Equal(b.t)
	case KindObject:
		return a.obj == b.obj
	}
	return false
}
