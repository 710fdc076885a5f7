package model

import (
	"fmt"
	"strings"
)

// SetRow populates e from a persisted row. Every declared column must be
// present and readable as its kind; the first failure aborts the call and
// is returned. The identifier is read from IDColumn when the row has one.
func SetRow(e Entity, r Row) error {
	if _, ok := r[IDColumn]; ok {
		id, err := r.Identifier(IDColumn)
		if err != nil {
			return err
		}
		e.SetIdentifier(id)
	}

	for _, p := range e.Props() {
		if err := p.fromRow(r); err != nil {
			return err
		}
	}
	return nil
}

// MakeRow produces the persisted row of e. Every declared field is written;
// the identifier is written only when present.
func MakeRow(e Entity) Row {
	props := e.Props()
	r := make(Row, len(props)+1)

	if id := e.Identifier(); id.Valid {
		r[IDColumn] = id.Int64
	}
	for _, p := range props {
		r[p.Name()] = p.Get()
	}
	return r
}

// SetJSON populates e from a wire document leniently: a key that is absent
// or holds a value of the wrong shape leaves that field unchanged and the
// remaining fields are still applied. The identifier is never taken from d.
func SetJSON(e Entity, d Document) {
	for _, p := range e.Props() {
		// Per-field misses are intentional.
		_ = p.fromDocument(d)
	}
}

// MakeJSON produces the wire document of e. It always carries every declared
// field and the identifier (null when absent).
func MakeJSON(e Entity) Document {
	props := e.Props()
	d := make(Document, len(props)+1)

	d[IDColumn] = e.Identifier()
	for _, p := range props {
		d[p.Name()] = p.Get()
	}
	return d
}

// Copy overwrites the fields of dst with those of src through the lenient
// wire path. The identifier of dst is kept.
func Copy(dst, src Entity) {
	SetJSON(dst, MakeJSON(src))
}

// DecodeJSON builds a fresh entity from a request body. It fails with
// ErrDecode when the body is empty, not a JSON object, or carries none of
// the declared keys; individual fields are applied leniently.
func DecodeJSON[E Entity](data []byte) (E, error) {
	var zero E
	doc, err := ParseDocument(data)
	if err != nil {
		return zero, err
	}
	e := New[E]()
	if !sharesKey(e, doc) {
		return zero, fmt.Errorf("%w: no declared property in body", ErrDecode)
	}
	SetJSON(e, doc)
	return e, nil
}

func sharesKey(e Entity, d Document) bool {
	props := e.Props()
	if len(props) == 0 {
		return true
	}
	for _, p := range props {
		if _, ok := d[p.Name()]; ok {
			return true
		}
	}
	return false
}

// EncodeJSON encodes one entity.
func EncodeJSON(e Entity) ([]byte, error) {
	return MakeJSON(e).Marshal()
}

// EncodeJSONList encodes a collection as a JSON array.
func EncodeJSONList[E Entity](list []E) ([]byte, error) {
	docs := make([]Document, len(list))
	for i, e := range list {
		docs[i] = MakeJSON(e)
	}
	return wire.Marshal(docs)
}

// Describe renders "name: value " for every descriptor in declaration order.
// Foreign keys use the optional form of Identifier.
func Describe(e Entity) string {
	var sb strings.Builder
	for _, p := range e.Props() {
		fmt.Fprintf(&sb, "%s: %s ", p.Name(), p.text())
	}
	return sb.String()
}
