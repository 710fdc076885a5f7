package core

import (
	"context"
	"fmt"

	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

// Repository stores entities of one registered type in its table. Entities
// are converted through their property descriptors: model.MakeRow on the way
// in, model.SetRow on the way out.
type Repository[E model.Entity] struct {
	db   *DB
	meta *model.Meta
}

// NewRepository returns the repository of E, which must be registered.
func NewRepository[E model.Entity](db *DB) (*Repository[E], error) {
	meta, err := model.Lookup[E]()
	if err != nil {
		return nil, err
	}
	return &Repository[E]{db: db, meta: meta}, nil
}

func (r *Repository[E]) Meta() *model.Meta { return r.meta }

func (r *Repository[E]) table(ctx context.Context) *Query {
	return r.db.Table(r.meta.Table).WithContext(ctx)
}

func (r *Repository[E]) byID(q *Query, id int64) *Query {
	return q.Where(r.db.dialect.Quote(model.IDColumn)+" = ?", id)
}

// Find loads the entity with the given identifier.
func (r *Repository[E]) Find(ctx context.Context, id model.Identifier) (E, error) {
	var zero E
	if !id.Valid {
		return zero, fmt.Errorf("%s %s: %w", r.meta.Table, id, ErrRecordNotFound)
	}
	row, err := r.byID(r.table(ctx), id.Int64).First()
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", r.meta.Table, id, err)
	}
	return r.entity(row)
}

// All loads the entities matching f, or every entity when f is nil, by id.
func (r *Repository[E]) All(ctx context.Context, f *query.Filter) ([]E, error) {
	f, err := r.typed(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.table(ctx).Filter(f).OrderBy(r.db.dialect.Quote(model.IDColumn)).Rows()
	if err != nil {
		return nil, err
	}

	list := make([]E, 0, len(rows))
	for _, row := range rows {
		e, err := r.entity(row)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

// typed checks that f names the id column or a declared property and gives
// its value the declared kind.
func (r *Repository[E]) typed(f *query.Filter) (*query.Filter, error) {
	if f == nil {
		return nil, nil
	}
	tf, err := f.Typed(r.meta.Defs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", r.meta.Table, ErrInvalidQuery, err)
	}
	return tf, nil
}

func (r *Repository[E]) entity(row model.Row) (E, error) {
	var zero E
	e := model.New[E]()
	if err := model.SetRow(e, row); err != nil {
		return zero, fmt.Errorf("%s: %w", r.meta.Table, err)
	}
	if h, ok := any(e).(AfterFinder); ok {
		if err := h.AfterFind(); err != nil {
			return zero, err
		}
	}
	return e, nil
}

// Save inserts e when it has no identifier, assigning the generated one, and
// updates its record otherwise.
func (r *Repository[E]) Save(ctx context.Context, e E) error {
	if id := e.Identifier(); id.Valid {
		return r.update(ctx, e, id.Int64)
	}

	if h, ok := any(e).(BeforeInserter); ok {
		if err := h.BeforeInsert(ctx); err != nil {
			return err
		}
	}

	row := model.MakeRow(e)
	id, err := r.table(ctx).Insert(row)
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.meta.Table, err)
	}
	e.SetIdentifier(model.Some(id))

	if h, ok := any(e).(AfterInserter); ok {
		return h.AfterInsert(ctx, id)
	}
	return nil
}

func (r *Repository[E]) update(ctx context.Context, e E, id int64) error {
	if h, ok := any(e).(BeforeUpdater); ok {
		if err := h.BeforeUpdate(ctx); err != nil {
			return err
		}
	}

	row := model.MakeRow(e)
	delete(row, model.IDColumn)
	var n int64
	if len(row) > 0 {
		var err error
		if n, err = r.byID(r.table(ctx), id).Update(row); err != nil {
			return fmt.Errorf("update %s %d: %w", r.meta.Table, id, err)
		}
	}
	// MySQL reports unchanged rows as unaffected.
	if n == 0 {
		count, err := r.byID(r.table(ctx), id).Count()
		if err != nil {
			return fmt.Errorf("update %s %d: %w", r.meta.Table, id, err)
		}
		if count == 0 {
			return fmt.Errorf("update %s %d: %w", r.meta.Table, id, ErrRecordNotFound)
		}
	}

	if h, ok := any(e).(AfterUpdater); ok {
		return h.AfterUpdate(ctx)
	}
	return nil
}

// Delete removes the record of e.
func (r *Repository[E]) Delete(ctx context.Context, e E) error {
	id := e.Identifier()
	if !id.Valid {
		return fmt.Errorf("delete %s: %w", r.meta.Table, ErrNotPersisted)
	}

	if h, ok := any(e).(BeforeDeleter); ok {
		if err := h.BeforeDelete(ctx); err != nil {
			return err
		}
	}
	n, err := r.byID(r.table(ctx), id.Int64).Delete()
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.meta.Table, id.Int64, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %d: %w", r.meta.Table, id.Int64, ErrRecordNotFound)
	}
	if h, ok := any(e).(AfterDeleter); ok {
		return h.AfterDelete(ctx)
	}
	return nil
}

// DeleteAll removes the records matching f, or every record when f is nil,
// and returns how many were removed.
func (r *Repository[E]) DeleteAll(ctx context.Context, f *query.Filter) (int64, error) {
	f, err := r.typed(f)
	if err != nil {
		return 0, err
	}
	return r.table(ctx).Filter(f).Delete()
}

// Count returns the number of records matching f.
func (r *Repository[E]) Count(ctx context.Context, f *query.Filter) (int64, error) {
	f, err := r.typed(f)
	if err != nil {
		return 0, err
	}
	return r.table(ctx).Filter(f).Count()
}
