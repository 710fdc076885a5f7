package model

import "errors"

var (
	// ErrMissingColumn is returned when a row lacks a declared column.
	ErrMissingColumn = errors.New("missing column")
	// ErrColumnType is returned when a row column cannot be read as the declared kind.
	ErrColumnType = errors.New("column type mismatch")
	// ErrMissingKey is returned by Document accessors for an absent key.
	ErrMissingKey = errors.New("missing key")
	// ErrKeyType is returned by Document accessors for a value of the wrong JSON shape.
	ErrKeyType = errors.New("key type mismatch")
	// ErrDecode is returned when a request body is absent or is not an entity object.
	ErrDecode = errors.New("cannot decode entity")
	// ErrKindMismatch signals an update key applied to a descriptor of another kind.
	// It means the entity's descriptor list and its definitions disagree.
	ErrKindMismatch = errors.New("descriptor kind mismatch")
	// ErrValueType is returned when an update key receives a value of the wrong Go type.
	ErrValueType = errors.New("update value type mismatch")
	// ErrSchemaMismatch is returned by Register when an entity's descriptors
	// do not match the definitions it is registered with.
	ErrSchemaMismatch = errors.New("descriptors do not match definitions")
	// ErrNotFound is returned by stores when no entity has the requested identifier.
	ErrNotFound = errors.New("entity not found")
	// ErrNotRegistered is returned when metadata is requested for an unregistered entity type.
	ErrNotRegistered = errors.New("entity type not registered")
)
