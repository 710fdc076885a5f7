// Package jrest re-exports the pieces most programs need: entity
// declaration, the SQL database and the resource controller.
package jrest

import (
	"github.com/shrek82/jrest/core"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/resource"
	"github.com/shrek82/jrest/validator"
)

// Re-export model types and functions
type Entity = model.Entity
type Base = model.Base
type Identifier = model.Identifier
type Meta = model.Meta
type Def = model.Def
type Prop = model.Prop
type Reference = model.Reference

var (
	None = model.None
	Some = model.Some

	Int        = model.Int
	String     = model.String
	Double     = model.Double
	Date       = model.Date
	ForeignKey = model.ForeignKey

	BindInt        = model.BindInt
	BindString     = model.BindString
	BindDouble     = model.BindDouble
	BindDate       = model.BindDate
	BindForeignKey = model.BindForeignKey

	Describe = model.Describe
)

func Register[E Entity](table string, defs ...Def) (*Meta, error) {
	return model.Register[E](table, defs...)
}

func MustRegister[E Entity](table string, defs ...Def) *Meta {
	return model.MustRegister[E](table, defs...)
}

// Re-export core types and functions
type DB = core.DB
type Options = core.Options

var Open = core.Open

func NewRepository[E Entity](db *DB) (*core.Repository[E], error) {
	return core.NewRepository[E](db)
}

// Re-export resource types and functions
type Request = resource.Request

var (
	ErrDecode   = resource.ErrDecode
	ErrDenied   = resource.ErrDenied
	ErrNotFound = resource.ErrNotFound
	StatusOf    = resource.StatusOf
)

func NewController[E Entity](store resource.Store[E], policy resource.Policy[E]) (*resource.Controller[E], error) {
	return resource.New[E](store, policy)
}

// Re-export validator types and functions
type Rules = validator.Rules
type Rule = validator.Rule
type ValidationErrors = validator.ValidationErrors

var (
	Required = validator.Required
	Email    = validator.Email
	URL      = validator.URL

	MinLen = validator.MinLen
	MaxLen = validator.MaxLen
	Range  = validator.Range
	In     = validator.In
	Regexp = validator.Regexp
	Before = validator.Before
	After  = validator.After
	Tag    = validator.Tag
)
