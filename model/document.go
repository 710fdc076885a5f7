package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// wire keeps numbers as json.Number so integers survive decoding intact.
var wire = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Document is a wire object (a decoded JSON object). Accessors accept only
// JSON-shaped values: a string is never read as a number and vice versa.
type Document map[string]any

// ParseDocument decodes a JSON object.
func ParseDocument(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrDecode)
	}
	var doc Document
	if err := wire.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrDecode)
	}
	return doc, nil
}

// Marshal encodes the document as JSON.
func (d Document) Marshal() ([]byte, error) {
	return wire.Marshal(d)
}

func (d Document) lookup(name string) (any, error) {
	v, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, name)
	}
	return v, nil
}

func keyErr(name string, v any, want string) error {
	return fmt.Errorf("%w: %s: want %s, got %T", ErrKeyType, name, want, v)
}

// Int reads an integral number.
func (d Document) Int(name string) (int, error) {
	v, err := d.lookup(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
	}
	return 0, keyErr(name, v, "integer")
}

// Text reads a string.
func (d Document) Text(name string) (string, error) {
	v, err := d.lookup(name)
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", keyErr(name, v, "string")
}

// Double reads any number.
func (d Document) Double(name string) (float64, error) {
	v, err := d.lookup(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	}
	return 0, keyErr(name, v, "number")
}

// Date reads an RFC 3339 timestamp.
func (d Document) Date(name string) (time.Time, error) {
	v, err := d.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, keyErr(name, v, "RFC 3339 date")
}

// Identifier reads an optional identifier: null or an integral number.
func (d Document) Identifier(name string) (Identifier, error) {
	v, err := d.lookup(name)
	if err != nil {
		return None, err
	}
	switch id := v.(type) {
	case nil:
		return None, nil
	case Identifier:
		return id, nil
	}
	n, err := d.Int(name)
	if err != nil {
		return None, keyErr(name, v, "identifier")
	}
	return Some(int64(n)), nil
}

// Set writes a key.
func (d Document) Set(name string, v any) {
	d[name] = v
}
