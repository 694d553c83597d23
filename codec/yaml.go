package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stevemurr/persiston/record"
)

// YAML encodes values as a YAML document. Unlike JSON it keeps timestamps.
type YAML struct{}

func (YAML) Encode(v record.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(v)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAML) Decode(data []byte) (record.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return record.Value{}, err
	}
	if doc.Kind == 0 {
		return record.Value{}, errors.New("yaml: empty document")
	}
	return fromNode(&doc)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toNode(v record.Value) *yaml.Node {
	switch v.Kind() {
	case record.KindBool:
		b, _ := v.AsBool()
		return scalar("!!bool", strconv.FormatBool(b))
	case record.KindNumber:
		f, _ := v.AsNumber()
		return numberNode(f)
	case record.KindString:
		s, _ := v.AsString()
		return scalar("!!str", s)
	case record.KindTime:
		t, _ := v.AsTime()
		return scalar("!!timestamp", t.Format(time.RFC3339Nano))
	case record.KindArray:
		items, _ := v.AsArray()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			n.Content = append(n.Content, toNode(item))
		}
		return n
	case record.KindObject:
		o, _ := v.AsObject()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		o.Range(func(k string, item record.Value) bool {
			n.Content = append(n.Content, scalar("!!str", k), toNode(item))
			return true
		})
		return n
	}
	return scalar("!!null", "null")
}

func numberNode(f float64) *yaml.Node {
	switch {
	case math.IsNaN(f):
		return scalar("!!float", ".nan")
	case math.IsInf(f, 1):
		return scalar("!!float", ".inf")
	case math.IsInf(f, -1):
		return scalar("!!float", "-.inf")
	case f == math.Trunc(f) && math.Abs(f) < 1<<53:
		return scalar("!!int", strconv.FormatInt(int64(f), 10))
	}
	return scalar("!!float", strconv.FormatFloat(f, 'g', -1, 64))
}

func fromNode(n *yaml.Node) (record.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return record.Null(), nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.SequenceNode:
		items := make([]record.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return record.Value{}, err
			}
			items = append(items, v)
		}
		return record.Array(items...), nil
	case yaml.MappingNode:
		o := record.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return record.Value{}, fmt.Errorf("yaml: line %d: mapping key must be a scalar", k.Line)
			}
			item, err := fromNode(v)
			if err != nil {
				return record.Value{}, err
			}
			o.Set(k.Value, item)
		}
		return record.ObjectOf(o), nil
	case yaml.ScalarNode:
		return fromScalar(n)
	}
	return record.Value{}, fmt.Errorf("yaml: line %d: unexpected node kind %d", n.Line, n.Kind)
}

func fromScalar(n *yaml.Node) (record.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return record.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return record.Value{}, err
		}
		return record.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return record.Value{}, err
		}
		return record.Number(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return record.Value{}, err
		}
		return record.Time(t), nil
	}
	return record.String(n.Value), nil
}
