package model

import (
	"fmt"
	"time"

	"github.com/shrek82/jrest/logger"
)

// UpdateKey sets one declared property on any entity of a type, addressing
// the descriptor by its position in the definition list.
type UpdateKey struct {
	Name  string
	Kind  Kind
	index int
}

// UpdateKeys generates one key per definition, in order.
func UpdateKeys(defs []Def) []UpdateKey {
	keys := make([]UpdateKey, len(defs))
	for i, d := range defs {
		keys[i] = UpdateKey{Name: d.Name, Kind: d.Kind, index: i}
	}
	return keys
}

// Index is the descriptor position the key addresses.
func (k UpdateKey) Index() int {
	return k.index
}

// Apply sets the addressed property of e to v. v must have the Go type of
// the key's kind (ErrValueType otherwise). If the descriptor found at the
// key's position is not of the key's kind, ErrKindMismatch is logged and
// returned: the entity and its definitions disagree.
func (k UpdateKey) Apply(e Entity, v any) error {
	props := e.Props()
	if k.index < 0 || k.index >= len(props) {
		return k.mismatch(e, nil)
	}
	p := props[k.index]

	switch k.Kind {
	case KindInt:
		return applyKey[int](k, e, p, v)
	case KindString:
		return applyKey[string](k, e, p, v)
	case KindDouble:
		return applyKey[float64](k, e, p, v)
	case KindDate:
		return applyKey[time.Time](k, e, p, v)
	case KindForeignKey:
		return applyKey[Identifier](k, e, p, v)
	}
	return fmt.Errorf("%w: unknown kind %s", ErrKindMismatch, k.Kind)
}

func applyKey[T any](k UpdateKey, e Entity, p Prop, v any) error {
	val, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: %s wants %s, got %T", ErrValueType, k.Name, k.Kind, v)
	}
	f, ok := p.(*Field[T])
	if !ok || f.Kind() != k.Kind {
		return k.mismatch(e, p)
	}
	f.Set(val)
	return nil
}

func (k UpdateKey) mismatch(e Entity, p Prop) error {
	found := "nothing"
	if p != nil {
		found = fmt.Sprintf("%s %q", p.Kind(), p.Name())
	}
	err := fmt.Errorf("%w: key %s %q at %d found %s on %T",
		ErrKindMismatch, k.Kind, k.Name, k.index, found, e)
	logger.Default.Error("%v", err)
	return err
}

// read extracts the key's value from a document in the Go type Apply expects.
func (k UpdateKey) read(d Document) (any, error) {
	switch k.Kind {
	case KindInt:
		return d.Int(k.Name)
	case KindString:
		return d.Text(k.Name)
	case KindDouble:
		return d.Double(k.Name)
	case KindDate:
		return d.Date(k.Name)
	case KindForeignKey:
		return d.Identifier(k.Name)
	}
	return nil, fmt.Errorf("%w: unknown kind %s", ErrKeyType, k.Kind)
}

// Merge applies a partial update: every key present in d with a value of
// the right shape is applied to e, others are skipped. Kind mismatches are
// not skipped; the first one is returned.
func Merge(e Entity, d Document, keys []UpdateKey) error {
	for _, k := range keys {
		v, err := k.read(d)
		if err != nil {
			continue
		}
		if err := k.Apply(e, v); err != nil {
			return err
		}
	}
	return nil
}
