package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// MarshalJSON encodes v. Undefined encodes as null, Time as an RFC 3339
// string. Object key order is preserved.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindUndefined, KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindTime:
		return json.Marshal(v.t)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		return v.obj.MarshalJSON()
	}
	return nil, errors.New("record: cannot marshal " + v.kind.String())
}

// UnmarshalJSON decodes any JSON value into v. JSON has no timestamp type, so
// times written by MarshalJSON come back as strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("record: empty JSON value")
	}
	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return errors.New("record: invalid JSON literal " + strconv.Quote(string(data)))
		}
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = Array(items...)
	case '{':
		o := NewObject()
		if err := o.UnmarshalJSON(data); err != nil {
			return err
		}
		*v = ObjectOf(o)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return errors.New("record: invalid JSON number " + strconv.Quote(string(data)))
		}
		*v = Number(f)
	}
	return nil
}
