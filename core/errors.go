package core

import (
	"errors"

	"github.com/shrek82/jrest/model"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	// It is model.ErrNotFound, so callers above the store need not know which store they use.
	ErrRecordNotFound = model.ErrNotFound
	// ErrUnknownDialect is returned by Open for a driver without a registered dialect.
	ErrUnknownDialect = errors.New("unknown dialect")
	// ErrInvalidQuery is returned when a query is malformed or cannot be executed.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotPersisted is returned when an entity without an identifier is updated or deleted by key.
	ErrNotPersisted = errors.New("entity has no identifier")
)
