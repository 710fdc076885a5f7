package model

import (
	"strconv"
	"time"
)

// Def declares one property of an entity type: its kind and name, plus the
// referenced table for foreign keys. Defs are static per entity type.
type Def struct {
	Kind Kind
	Name string
	Ref  *Reference
}

func Int(name string) Def    { return Def{Kind: KindInt, Name: name} }
func String(name string) Def { return Def{Kind: KindString, Name: name} }
func Double(name string) Def { return Def{Kind: KindDouble, Name: name} }
func Date(name string) Def   { return Def{Kind: KindDate, Name: name} }

// ForeignKey declares an optional integer property referencing another table.
// The property is named after ref.Field.
func ForeignKey(ref Reference) Def {
	r := ref.normalize()
	return Def{Kind: KindForeignKey, Name: r.Field, Ref: &r}
}

// Prop is a property descriptor: a Def bound to the storage of one entity
// instance. Entities build their descriptors with the Bind* constructors.
type Prop interface {
	Name() string
	Kind() Kind
	// Get returns the current value.
	Get() any

	fromRow(r Row) error
	fromDocument(d Document) error
	text() string
}

// codec carries the per-kind behaviour shared by every descriptor of a kind.
type codec[T any] struct {
	kind    Kind
	row     func(Row, string) (T, error)
	doc     func(Document, string) (T, error)
	display func(T) string
}

var (
	intCodec = &codec[int]{
		kind:    KindInt,
		row:     Row.Int,
		doc:     Document.Int,
		display: strconv.Itoa,
	}
	stringCodec = &codec[string]{
		kind:    KindString,
		row:     Row.Text,
		doc:     Document.Text,
		display: func(s string) string { return s },
	}
	doubleCodec = &codec[float64]{
		kind:    KindDouble,
		row:     Row.Double,
		doc:     Document.Double,
		display: func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) },
	}
	dateCodec = &codec[time.Time]{
		kind:    KindDate,
		row:     Row.Date,
		doc:     Document.Date,
		display: func(t time.Time) string { return t.Format(time.RFC3339Nano) },
	}
	identifierCodec = &codec[Identifier]{
		kind:    KindForeignKey,
		row:     Row.Identifier,
		doc:     Document.Identifier,
		display: Identifier.String,
	}
)

// Field is the typed descriptor behind every Prop.
type Field[T any] struct {
	name  string
	ptr   *T
	codec *codec[T]
}

func (f *Field[T]) Name() string { return f.name }
func (f *Field[T]) Kind() Kind   { return f.codec.kind }
func (f *Field[T]) Get() any     { return *f.ptr }

// Value returns the current value.
func (f *Field[T]) Value() T { return *f.ptr }

// Set replaces the current value.
func (f *Field[T]) Set(v T) { *f.ptr = v }

func (f *Field[T]) fromRow(r Row) error {
	v, err := f.codec.row(r, f.name)
	if err != nil {
		return err
	}
	*f.ptr = v
	return nil
}

func (f *Field[T]) fromDocument(d Document) error {
	v, err := f.codec.doc(d, f.name)
	if err != nil {
		return err
	}
	*f.ptr = v
	return nil
}

func (f *Field[T]) text() string {
	return f.codec.display(*f.ptr)
}

func BindInt(name string, p *int) Prop {
	return &Field[int]{name: name, ptr: p, codec: intCodec}
}

func BindString(name string, p *string) Prop {
	return &Field[string]{name: name, ptr: p, codec: stringCodec}
}

func BindDouble(name string, p *float64) Prop {
	return &Field[float64]{name: name, ptr: p, codec: doubleCodec}
}

func BindDate(name string, p *time.Time) Prop {
	return &Field[time.Time]{name: name, ptr: p, codec: dateCodec}
}

// BindForeignKey binds an optional reference to another entity.
func BindForeignKey(name string, p *Identifier) Prop {
	return &Field[Identifier]{name: name, ptr: p, codec: identifierCodec}
}
