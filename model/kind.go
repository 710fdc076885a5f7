package model

import (
	"fmt"
	"reflect"
	"time"
)

// Kind is the storage kind of a declared property.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindString
	KindDouble
	KindDate
	KindForeignKey
)

var kindNames = map[Kind]string{
	KindInt:        "int",
	KindString:     "string",
	KindDouble:     "double",
	KindDate:       "date",
	KindForeignKey: "foreign_key",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// GoType returns the Go type a property of this kind holds.
func (k Kind) GoType() reflect.Type {
	switch k {
	case KindInt:
		return reflect.TypeOf(0)
	case KindString:
		return reflect.TypeOf("")
	case KindDouble:
		return reflect.TypeOf(0.0)
	case KindDate:
		return reflect.TypeOf(time.Time{})
	case KindForeignKey:
		return reflect.TypeOf(Identifier{})
	}
	return nil
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown property kind %q", s)
}
