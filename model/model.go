package model

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"unicode"
)

// IDColumn is the column and wire key holding an entity's identifier.
const IDColumn = "id"

// Entity is anything whose fields are described by a property list.
// Props must return descriptors in declaration order, matching the Defs the
// type was registered with.
type Entity interface {
	Identifier() Identifier
	SetIdentifier(id Identifier)
	Props() []Prop
}

// Base carries the identifier half of Entity. Embed it by value.
type Base struct {
	ID Identifier
}

func (b *Base) Identifier() Identifier     { return b.ID }
func (b *Base) SetIdentifier(id Identifier) { b.ID = id }

// Meta is the per-type metadata of a registered entity.
type Meta struct {
	Table string
	Defs  []Def
	// Keys are the update keys generated from Defs.
	Keys []UpdateKey

	typ reflect.Type
}

// Type returns the registered entity type.
func (m *Meta) Type() reflect.Type {
	return m.typ
}

// Declare declares the storage schema of the entity into b.
func (m *Meta) Declare(b SchemaBuilder) {
	Declare(b, m.Defs)
}

var metaCache sync.Map // reflect.Type -> *Meta

// Register records the table and definitions of entity type E, which must be
// a pointer to a struct. A zero instance is built and its descriptors are
// checked against defs. An empty table name is derived from the struct name.
// Registering the same type twice with identical arguments is a no-op.
func Register[E Entity](table string, defs ...Def) (*Meta, error) {
	typ := reflect.TypeFor[E]()
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("model: %s must be a pointer to a struct", typ)
	}
	if table == "" {
		table = camelToSnake(typ.Elem().Name())
	}

	if err := checkProps(typ, New[E]().Props(), defs); err != nil {
		return nil, err
	}

	m := &Meta{
		Table: table,
		Defs:  slices.Clone(defs),
		Keys:  UpdateKeys(defs),
		typ:   typ,
	}
	if prev, loaded := metaCache.LoadOrStore(typ, m); loaded {
		old := prev.(*Meta)
		if old.Table != m.Table || !reflect.DeepEqual(old.Defs, m.Defs) {
			return nil, fmt.Errorf("model: %s already registered as table %q", typ, old.Table)
		}
		return old, nil
	}
	return m, nil
}

// MustRegister is like Register but panics on error. Intended for package
// level variables.
func MustRegister[E Entity](table string, defs ...Def) *Meta {
	m, err := Register[E](table, defs...)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup returns the metadata registered for E.
func Lookup[E Entity]() (*Meta, error) {
	typ := reflect.TypeFor[E]()
	if m, ok := metaCache.Load(typ); ok {
		return m.(*Meta), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotRegistered, typ)
}

// MetaOf returns the metadata registered for the dynamic type of e.
func MetaOf(e Entity) (*Meta, error) {
	typ := reflect.TypeOf(e)
	if m, ok := metaCache.Load(typ); ok {
		return m.(*Meta), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotRegistered, typ)
}

// New allocates a zero entity of type E.
func New[E Entity]() E {
	typ := reflect.TypeFor[E]()
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem()).Interface().(E)
	}
	var zero E
	return zero
}

func checkProps(typ reflect.Type, props []Prop, defs []Def) error {
	if len(props) != len(defs) {
		return fmt.Errorf("%w: %s has %d descriptors, %d definitions",
			ErrSchemaMismatch, typ, len(props), len(defs))
	}
	for i, p := range props {
		d := defs[i]
		if p.Name() != d.Name || p.Kind() != d.Kind {
			return fmt.Errorf("%w: %s descriptor %d is %s %q, definition is %s %q",
				ErrSchemaMismatch, typ, i, p.Kind(), p.Name(), d.Kind, d.Name)
		}
	}
	return nil
}

func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	var res []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
