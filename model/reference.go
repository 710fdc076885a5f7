package model

import (
	"fmt"
	"strings"
)

// Reference describes a foreign key: the local Field holds the key of a row
// in Table, matched against Column (the referenced table's "id" when empty).
type Reference struct {
	Field  string
	Table  string
	Column string
}

func (r Reference) normalize() Reference {
	if r.Column == "" {
		r.Column = IDColumn
	}
	return r
}

// String renders the reference in the form accepted by ParseReference.
func (r Reference) String() string {
	r = r.normalize()
	return r.Field + ">" + r.Table + "." + r.Column
}

// ParseReference parses "field>table" or "field>table.column".
// Surrounding whitespace around each part is ignored.
func ParseReference(s string) (Reference, error) {
	field, target, ok := strings.Cut(s, ">")
	if !ok {
		return Reference{}, fmt.Errorf("reference %q: missing '>'", s)
	}
	table, column, _ := strings.Cut(target, ".")

	ref := Reference{
		Field:  strings.TrimSpace(field),
		Table:  strings.TrimSpace(table),
		Column: strings.TrimSpace(column),
	}
	if ref.Field == "" || ref.Table == "" {
		return Reference{}, fmt.Errorf("reference %q: field and table are required", s)
	}
	return ref.normalize(), nil
}

// ParseDefs parses a compact definition list such as
//
//	"string:title int:priority date:due fk:owner_id>owners"
//
// Entries may be separated by spaces, commas or semicolons.
func ParseDefs(s string) ([]Def, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '\t' || r == '\n'
	})

	defs := make([]Def, 0, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 || kv[1] == "" {
			return nil, fmt.Errorf("definition %q: want kind:name", part)
		}
		switch strings.ToLower(kv[0]) {
		case "int":
			defs = append(defs, Int(kv[1]))
		case "string":
			defs = append(defs, String(kv[1]))
		case "double", "float":
			defs = append(defs, Double(kv[1]))
		case "date":
			defs = append(defs, Date(kv[1]))
		case "fk", "foreign_key":
			ref, err := ParseReference(kv[1])
			if err != nil {
				return nil, err
			}
			defs = append(defs, ForeignKey(ref))
		default:
			return nil, fmt.Errorf("definition %q: unknown kind %q", part, kv[0])
		}
	}
	return defs, nil
}
