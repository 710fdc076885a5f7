// Package resource maps the standard REST verbs onto store operations for
// any registered entity type.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

// Store persists entities of type E. Find and Delete report a missing
// entity with ErrNotFound; Save inserts when e has no identifier and
// updates otherwise.
type Store[E model.Entity] interface {
	Find(ctx context.Context, id model.Identifier) (E, error)
	All(ctx context.Context, f *query.Filter) ([]E, error)
	Save(ctx context.Context, e E) error
	Delete(ctx context.Context, e E) error
	DeleteAll(ctx context.Context, f *query.Filter) (int64, error)
}

// Controller implements list, create, read, update, replace, delete and
// bulk delete over a Store, consulting a Policy before acting.
type Controller[E model.Entity] struct {
	store  Store[E]
	policy Policy[E]
	meta   *model.Meta
	logger logger.Logger
}

// New returns a controller for the registered type E. A nil policy is
// DefaultPolicy.
func New[E model.Entity](store Store[E], policy Policy[E]) (*Controller[E], error) {
	meta, err := model.Lookup[E]()
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = DefaultPolicy[E]{}
	}
	return &Controller[E]{
		store:  store,
		policy: policy,
		meta:   meta,
		logger: logger.Default.WithFields(map[string]any{"resource": meta.Table}),
	}, nil
}

func (c *Controller[E]) SetLogger(l logger.Logger) {
	c.logger = l.WithFields(map[string]any{"resource": c.meta.Table})
}

func (c *Controller[E]) Meta() *model.Meta {
	return c.meta
}

// Resolve loads the entity addressed by id, for the entity-scoped operations.
func (c *Controller[E]) Resolve(req *Request, id model.Identifier) (E, error) {
	return c.store.Find(req.context(), id)
}

// List returns the collection, scoped by the policy's bulk filter.
func (c *Controller[E]) List(req *Request) ([]E, error) {
	f, err := c.bulkFilter(req)
	if err != nil {
		return nil, err
	}
	return c.store.All(req.context(), f)
}

// Create decodes the body into a new entity, validates and saves it.
func (c *Controller[E]) Create(req *Request) (E, error) {
	var zero E
	e, err := model.DecodeJSON[E](req.Body)
	if err != nil {
		return zero, err
	}
	if err := c.save(req, e); err != nil {
		return zero, err
	}
	return e, nil
}

// Read returns e when the policy allows it.
func (c *Controller[E]) Read(req *Request, e E) (E, error) {
	if err := c.authorize(req, e); err != nil {
		var zero E
		return zero, err
	}
	return e, nil
}

// Update applies the properties present in the body to e, leaving the
// others as they are, then validates and saves it.
func (c *Controller[E]) Update(req *Request, e E) (E, error) {
	var zero E
	if err := c.authorize(req, e); err != nil {
		return zero, err
	}
	doc, err := model.ParseDocument(req.Body)
	if err != nil {
		return zero, err
	}
	if err := model.Merge(e, doc, c.meta.Keys); err != nil {
		return zero, err
	}
	if err := c.save(req, e); err != nil {
		return zero, err
	}
	return e, nil
}

// Replace decodes the body into a fresh entity and copies its fields onto e
// through the lenient path, then validates and saves e. The copy carries
// every declared field, so fields absent from the body are reset to their
// zero value. The identifier of e is kept.
func (c *Controller[E]) Replace(req *Request, e E) (E, error) {
	var zero E
	if err := c.authorize(req, e); err != nil {
		return zero, err
	}
	fresh, err := model.DecodeJSON[E](req.Body)
	if err != nil {
		return zero, err
	}
	model.Copy(e, fresh)
	if err := c.save(req, e); err != nil {
		return zero, err
	}
	return e, nil
}

// Delete removes e when the policy allows it.
func (c *Controller[E]) Delete(req *Request, e E) error {
	if err := c.authorize(req, e); err != nil {
		return err
	}
	return c.store.Delete(req.context(), e)
}

// Clear removes the collection, scoped by the policy's bulk filter, and
// returns the number of entities removed.
func (c *Controller[E]) Clear(req *Request) (int64, error) {
	f, err := c.bulkFilter(req)
	if err != nil {
		return 0, err
	}
	n, err := c.store.DeleteAll(req.context(), f)
	if err != nil {
		return n, err
	}
	c.logger.Info("cleared %d entities (filter %v)", n, f)
	return n, nil
}

func (c *Controller[E]) authorize(req *Request, e E) error {
	if c.policy.Authorize(req, e) {
		return nil
	}
	c.logger.WithFields(logger.FieldsFrom(req.context())).Warn("denied access to %s %s", c.meta.Table, e.Identifier())
	return fmt.Errorf("%s %s: %w", c.meta.Table, e.Identifier(), ErrDenied)
}

func (c *Controller[E]) save(req *Request, e E) error {
	if err := c.policy.Validate(req, e); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return &ValidationError{Err: err}
	}
	return c.store.Save(req.context(), e)
}

// bulkFilter asks the policy for the bulk filter and types its value by the
// declared kind of its field.
func (c *Controller[E]) bulkFilter(req *Request) (*query.Filter, error) {
	f, err := c.policy.BulkFilter(req)
	if err != nil || f == nil {
		return f, err
	}
	tf, err := f.Typed(c.meta.Defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return tf, nil
}
