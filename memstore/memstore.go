// Package memstore keeps entities in memory, as the rows the SQL
// repository would persist. It serves tests and the demo server.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

// Store holds entities of type E keyed by identifier. It is safe for
// concurrent use.
type Store[E model.Entity] struct {
	mu   sync.RWMutex
	rows map[int64]model.Row
	last int64
}

func New[E model.Entity]() *Store[E] {
	return &Store[E]{rows: make(map[int64]model.Row)}
}

// Find returns a fresh copy of the entity stored under id.
func (s *Store[E]) Find(ctx context.Context, id model.Identifier) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.RLock()
	row, ok := s.rows[id.Int64]
	s.mu.RUnlock()
	if !id.Valid || !ok {
		return zero, fmt.Errorf("%s: %w", id, model.ErrNotFound)
	}
	return entity[E](row)
}

func entity[E model.Entity](row model.Row) (E, error) {
	e := model.New[E]()
	if err := model.SetRow(e, row); err != nil {
		var zero E
		return zero, err
	}
	return e, nil
}

// typed gives the filter value the kind E declares for the field. Filtering
// needs E to be registered.
func typed[E model.Entity](f *query.Filter) (*query.Filter, error) {
	if f == nil {
		return nil, nil
	}
	meta, err := model.Lookup[E]()
	if err != nil {
		return nil, err
	}
	return f.Typed(meta.Defs)
}

// All returns the entities matching f in identifier order. A nil filter
// matches everything.
func (s *Store[E]) All(ctx context.Context, f *query.Filter) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := typed[E](f)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []E
	for _, id := range slices.Sorted(maps.Keys(s.rows)) {
		row := s.rows[id]
		if f != nil {
			ok, err := f.Match(row)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		e, err := entity[E](row)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

// Save assigns the next identifier to a new entity, or replaces the stored
// row of an existing one.
func (s *Store[E]) Save(ctx context.Context, e E) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.Identifier()
	if !id.Valid {
		s.last++
		id = model.Some(s.last)
		e.SetIdentifier(id)
	} else if _, ok := s.rows[id.Int64]; !ok {
		return fmt.Errorf("%s: %w", id, model.ErrNotFound)
	}
	s.rows[id.Int64] = model.MakeRow(e)
	return nil
}

func (s *Store[E]) Delete(ctx context.Context, e E) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.Identifier()
	if _, ok := s.rows[id.Int64]; !id.Valid || !ok {
		return fmt.Errorf("%s: %w", id, model.ErrNotFound)
	}
	delete(s.rows, id.Int64)
	return nil
}

// DeleteAll removes the entities matching f and returns how many were removed.
func (s *Store[E]) DeleteAll(ctx context.Context, f *query.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := typed[E](f)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, row := range s.rows {
		if f != nil {
			ok, err := f.Match(row)
			if err != nil {
				return n, err
			}
			if !ok {
				continue
			}
		}
		delete(s.rows, id)
		n++
	}
	return n, nil
}

// Len returns the number of stored entities.
func (s *Store[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
