// Package codec serializes record values for persistence adapters.
//
// Adapters never inspect encoded bytes; they hand them to the medium as is and
// give them back to the same codec on read.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stevemurr/persiston/record"
)

// Codec converts a value to bytes and back. Decode must invert Encode.
type Codec interface {
	Encode(v record.Value) ([]byte, error)
	Decode(data []byte) (record.Value, error)
}

// Default is the codec adapters use when none is configured.
var Default Codec = JSON{Indent: "  "}

// ByName returns the codec registered under name.
//
// Supported names:
//
//	"json" - indented JSON (default)
//	"yaml" - YAML 1.2
//	"bson" - binary BSON, objects only at the top level
func ByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return Default, nil
	case "yaml", "yml":
		return YAML{}, nil
	case "bson":
		return BSON{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %q (supported: json, yaml, bson)", name)
	}
}

// JSON encodes values as JSON text, keeping object key order. Times are
// written as RFC 3339 strings and read back as strings.
type JSON struct {
	// Indent, when set, is used for each indentation level.
	Indent string
}

func (c JSON) Encode(v record.Value) ([]byte, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if c.Indent == "" {
		return b, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", c.Indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (JSON) Decode(data []byte) (record.Value, error) {
	var v record.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return record.Value{}, err
	}
	return v, nil
}

// Prefixed wraps another codec and marks its output with Prefix. Decode
// strips the prefix when present.
type Prefixed struct {
	Codec  Codec
	Prefix string
}

func (c Prefixed) Encode(v record.Value) ([]byte, error) {
	b, err := c.inner().Encode(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(c.Prefix), b...), nil
}

func (c Prefixed) Decode(data []byte) (record.Value, error) {
	return c.inner().Decode(bytes.TrimPrefix(data, []byte(c.Prefix)))
}

func (c Prefixed) inner() Codec {
	if c.Codec == nil {
		return Default
	}
	return c.Codec
}

// Funcs adapts a pair of functions to Codec.
type Funcs struct {
	EncodeFunc func(v record.Value) ([]byte, error)
	DecodeFunc func(data []byte) (record.Value, error)
}

func (f Funcs) Encode(v record.Value) ([]byte, error) { return f.EncodeFunc(v) }

func (f Funcs) Decode(data []byte) (record.Value, error) { return f.DecodeFunc(data) }
