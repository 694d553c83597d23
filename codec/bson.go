package codec

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stevemurr/persiston/record"
)

// BSON encodes values as a BSON document. The top-level value must be an
// object. Times are stored as BSON datetimes, which keep millisecond
// precision. Integer types are read back as numbers.
type BSON struct{}

func (BSON) Encode(v record.Value) ([]byte, error) {
	o, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("bson: top-level value must be an object, got %s", v.Kind())
	}
	return bson.Marshal(toDoc(o))
}

func (BSON) Decode(data []byte) (record.Value, error) {
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return record.Value{}, fmt.Errorf("bson: %w", err)
	}
	o, err := fromDoc(raw)
	if err != nil {
		return record.Value{}, err
	}
	return record.ObjectOf(o), nil
}

func toDoc(o *record.Object) bson.D {
	d := make(bson.D, 0, o.Len())
	o.Range(func(k string, v record.Value) bool {
		d = append(d, bson.E{Key: k, Value: toBSON(v)})
		return true
	})
	return d
}

func toBSON(v record.Value) any {
	switch v.Kind() {
	case record.KindBool:
		b, _ := v.AsBool()
		return b
	case record.KindNumber:
		f, _ := v.AsNumber()
		return f
	case record.KindString:
		s, _ := v.AsString()
		return s
	case record.KindTime:
		t, _ := v.AsTime()
		return primitive.NewDateTimeFromTime(t)
	case record.KindArray:
		items, _ := v.AsArray()
		a := make(bson.A, len(items))
		for i, item := range items {
			a[i] = toBSON(item)
		}
		return a
	case record.KindObject:
		o, _ := v.AsObject()
		return toDoc(o)
	}
	return nil
}

func fromDoc(raw bson.Raw) (*record.Object, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("bson: %w", err)
	}
	o := record.NewObject()
	for _, e := range elems {
		v, err := fromBSON(e.Value())
		if err != nil {
			return nil, fmt.Errorf("bson: field %q: %w", e.Key(), err)
		}
		o.Set(e.Key(), v)
	}
	return o, nil
}

func fromBSON(rv bson.RawValue) (record.Value, error) {
	switch rv.Type {
	case bsontype.Null, bsontype.Undefined:
		return record.Null(), nil
	case bsontype.Boolean:
		return record.Bool(rv.Boolean()), nil
	case bsontype.Double:
		return record.Number(rv.Double()), nil
	case bsontype.Int32:
		return record.Number(float64(rv.Int32())), nil
	case bsontype.Int64:
		return record.Number(float64(rv.Int64())), nil
	case bsontype.Decimal128:
		f, err := strconv.ParseFloat(rv.Decimal128().String(), 64)
		if err != nil {
			return record.Value{}, err
		}
		return record.Number(f), nil
	case bsontype.String:
		return record.String(rv.StringValue()), nil
	case bsontype.ObjectID:
		return record.String(rv.ObjectID().Hex()), nil
	case bsontype.DateTime:
		return record.Time(time.UnixMilli(rv.DateTime()).UTC()), nil
	case bsontype.EmbeddedDocument:
		o, err := fromDoc(rv.Document())
		if err != nil {
			return record.Value{}, err
		}
		return record.ObjectOf(o), nil
	case bsontype.Array:
		values, err := rv.Array().Values()
		if err != nil {
			return record.Value{}, err
		}
		items := make([]record.Value, len(values))
		for i, item := range values {
			if items[i], err = fromBSON(item); err != nil {
				return record.Value{}, err
			}
		}
		return record.Array(items...), nil
	}
	return record.Value{}, fmt.Errorf("unsupported bson type %s", rv.Type)
}
