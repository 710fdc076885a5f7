package resource

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
	"github.com/shrek82/jrest/validator"
)

// Request is one incoming call as the controller sees it.
type Request struct {
	Ctx   context.Context
	Body  []byte
	Query url.Values
	// Identity is whatever the caller authenticated as. The controller never
	// reads it; policies do.
	Identity any
}

func (r *Request) context() context.Context {
	if r == nil || r.Ctx == nil {
		return context.Background()
	}
	return r.Ctx
}

// Policy holds the overridable hooks of a Controller.
type Policy[E model.Entity] interface {
	// Authorize reports whether the request may act on e.
	Authorize(req *Request, e E) bool
	// BulkFilter scopes List and Clear. A nil filter selects the whole collection.
	BulkFilter(req *Request) (*query.Filter, error)
	// Validate checks, and may repair, an entity about to be saved.
	Validate(req *Request, e E) error
}

// DefaultPolicy allows everything, filters nothing and validates nothing.
type DefaultPolicy[E model.Entity] struct{}

func (DefaultPolicy[E]) Authorize(*Request, E) bool                 { return true }
func (DefaultPolicy[E]) BulkFilter(*Request) (*query.Filter, error) { return nil, nil }
func (DefaultPolicy[E]) Validate(*Request, E) error                 { return nil }

// PolicyFuncs builds a Policy from functions. Nil functions fall back to
// DefaultPolicy.
type PolicyFuncs[E model.Entity] struct {
	AuthorizeFunc  func(req *Request, e E) bool
	BulkFilterFunc func(req *Request) (*query.Filter, error)
	ValidateFunc   func(req *Request, e E) error
}

func (p PolicyFuncs[E]) Authorize(req *Request, e E) bool {
	if p.AuthorizeFunc == nil {
		return true
	}
	return p.AuthorizeFunc(req, e)
}

func (p PolicyFuncs[E]) BulkFilter(req *Request) (*query.Filter, error) {
	if p.BulkFilterFunc == nil {
		return nil, nil
	}
	return p.BulkFilterFunc(req)
}

func (p PolicyFuncs[E]) Validate(req *Request, e E) error {
	if p.ValidateFunc == nil {
		return nil
	}
	return p.ValidateFunc(req, e)
}

// RulesPolicy validates entities against property rules and delegates the
// other hooks to Policy, or to DefaultPolicy when Policy is nil.
type RulesPolicy[E model.Entity] struct {
	Policy[E]
	Rules validator.Rules
}

func (p RulesPolicy[E]) Authorize(req *Request, e E) bool {
	if p.Policy == nil {
		return true
	}
	return p.Policy.Authorize(req, e)
}

func (p RulesPolicy[E]) BulkFilter(req *Request) (*query.Filter, error) {
	if p.Policy == nil {
		return nil, nil
	}
	return p.Policy.BulkFilter(req)
}

func (p RulesPolicy[E]) Validate(req *Request, e E) error {
	if err := p.Rules.Validate(e); err != nil {
		return err
	}
	if p.Policy == nil {
		return nil
	}
	return p.Policy.Validate(req, e)
}

// QueryFilter derives the bulk filter from the "filter" query parameter,
// written as "field:op:value". Only fields listed in allowed are accepted;
// with no allowed fields any declared property or the id is, the controller
// rejecting the rest.
func QueryFilter(allowed ...string) func(req *Request) (*query.Filter, error) {
	return func(req *Request) (*query.Filter, error) {
		raw := req.Query.Get("filter")
		if raw == "" {
			return nil, nil
		}
		f, err := query.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(allowed) == 0 {
			return f, nil
		}
		for _, name := range allowed {
			if f.Field == name {
				return f, nil
			}
		}
		return nil, fmt.Errorf("%w: cannot filter on %q", ErrDecode, f.Field)
	}
}
