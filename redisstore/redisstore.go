// Package redisstore keeps entities in Redis hashes, one hash per entity,
// with a sorted set of identifiers per table and an INCR counter for new ones.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

// Store holds entities of the registered type E.
type Store[E model.Entity] struct {
	client redis.UniversalClient
	meta   *model.Meta
	prefix string
}

// New returns the store of E under keys "<prefix>:<table>:...". E must be registered.
func New[E model.Entity](client redis.UniversalClient, prefix string) (*Store[E], error) {
	meta, err := model.Lookup[E]()
	if err != nil {
		return nil, err
	}
	return &Store[E]{client: client, meta: meta, prefix: prefix}, nil
}

func (s *Store[E]) key(id int64) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, s.meta.Table, id)
}

func (s *Store[E]) idsKey() string { return s.prefix + ":" + s.meta.Table + ":ids" }
func (s *Store[E]) seqKey() string { return s.prefix + ":" + s.meta.Table + ":seq" }

// encode flattens the declared fields of a row into hash values.
func (s *Store[E]) encode(row model.Row) (map[string]any, error) {
	fields := make(map[string]any, len(s.meta.Defs)+1)
	fields[model.IDColumn] = row[model.IDColumn]
	for _, d := range s.meta.Defs {
		var err error
		switch d.Kind {
		case model.KindInt:
			var n int
			n, err = row.Int(d.Name)
			fields[d.Name] = n
		case model.KindString:
			fields[d.Name], err = row.Text(d.Name)
		case model.KindDouble:
			var f float64
			f, err = row.Double(d.Name)
			fields[d.Name] = strconv.FormatFloat(f, 'g', -1, 64)
		case model.KindDate:
			var t time.Time
			t, err = row.Date(d.Name)
			fields[d.Name] = t.Format(time.RFC3339Nano)
		case model.KindForeignKey:
			var id model.Identifier
			id, err = row.Identifier(d.Name)
			fields[d.Name] = ""
			if id.Valid {
				fields[d.Name] = id.Int64
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// decode turns hash values back into a row of driver-like values.
func (s *Store[E]) decode(hash map[string]string) (model.Row, error) {
	row := make(model.Row, len(hash))
	id, err := strconv.ParseInt(hash[model.IDColumn], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrColumnType, model.IDColumn, err)
	}
	row[model.IDColumn] = id

	for _, d := range s.meta.Defs {
		raw, ok := hash[d.Name]
		if !ok {
			continue
		}
		switch d.Kind {
		case model.KindInt:
			row[d.Name], err = strconv.ParseInt(raw, 10, 64)
		case model.KindDouble:
			row[d.Name], err = strconv.ParseFloat(raw, 64)
		case model.KindDate:
			row[d.Name], err = time.Parse(time.RFC3339Nano, raw)
		case model.KindForeignKey:
			if raw == "" {
				row[d.Name] = nil
			} else {
				row[d.Name], err = strconv.ParseInt(raw, 10, 64)
			}
		default:
			row[d.Name] = raw
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrColumnType, d.Name, err)
		}
	}
	return row, nil
}

func (s *Store[E]) entity(row model.Row) (E, error) {
	e := model.New[E]()
	if err := model.SetRow(e, row); err != nil {
		var zero E
		return zero, fmt.Errorf("%s: %w", s.meta.Table, err)
	}
	return e, nil
}

func (s *Store[E]) Find(ctx context.Context, id model.Identifier) (E, error) {
	var zero E
	if !id.Valid {
		return zero, fmt.Errorf("%s %s: %w", s.meta.Table, id, model.ErrNotFound)
	}
	hash, err := s.client.HGetAll(ctx, s.key(id.Int64)).Result()
	if err != nil {
		return zero, err
	}
	if len(hash) == 0 {
		return zero, fmt.Errorf("%s %s: %w", s.meta.Table, id, model.ErrNotFound)
	}
	row, err := s.decode(hash)
	if err != nil {
		return zero, err
	}
	return s.entity(row)
}

// rows loads every stored row matching f, in identifier order.
func (s *Store[E]) rows(ctx context.Context, f *query.Filter) ([]model.Row, error) {
	if f != nil {
		var err error
		if f, err = f.Typed(s.meta.Defs); err != nil {
			return nil, err
		}
	}
	ids, err := s.client.ZRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.prefix+":"+s.meta.Table+":"+id)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var rows []model.Row
	for _, cmd := range cmds {
		hash, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(hash) == 0 {
			continue
		}
		row, err := s.decode(hash)
		if err != nil {
			return nil, err
		}
		if f != nil {
			ok, err := f.Match(row)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store[E]) All(ctx context.Context, f *query.Filter) ([]E, error) {
	rows, err := s.rows(ctx, f)
	if err != nil {
		return nil, err
	}
	list := make([]E, 0, len(rows))
	for _, row := range rows {
		e, err := s.entity(row)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

// Save assigns a new identifier from the table counter to new entities and
// overwrites the hash of existing ones. The update runs under WATCH on the
// entity key, so an entity deleted meanwhile is reported as not found
// instead of being written back.
func (s *Store[E]) Save(ctx context.Context, e E) error {
	id := e.Identifier()
	if id.Valid {
		return s.update(ctx, e, id.Int64)
	}

	next, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return err
	}
	fields, err := s.fields(e, next)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.write(ctx, pipe, next, fields)
		return nil
	})
	if err != nil {
		return err
	}
	e.SetIdentifier(model.Some(next))
	return nil
}

const maxRetries = 3

func (s *Store[E]) update(ctx context.Context, e E, id int64) error {
	fields, err := s.fields(e, id)
	if err != nil {
		return err
	}

	key := s.key(id)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%s %d: %w", s.meta.Table, id, model.ErrNotFound)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, id, fields)
			return nil
		})
		return err
	}

	for range maxRetries {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%s %d: %w", s.meta.Table, id, err)
}

func (s *Store[E]) fields(e E, id int64) (map[string]any, error) {
	row := model.MakeRow(e)
	row[model.IDColumn] = id
	return s.encode(row)
}

func (s *Store[E]) write(ctx context.Context, pipe redis.Pipeliner, id int64, fields map[string]any) {
	pipe.HSet(ctx, s.key(id), fields)
	pipe.ZAdd(ctx, s.idsKey(), redis.Z{Score: float64(id), Member: id})
}

func (s *Store[E]) Delete(ctx context.Context, e E) error {
	id := e.Identifier()
	if !id.Valid {
		return fmt.Errorf("%s %s: %w", s.meta.Table, id, model.ErrNotFound)
	}
	n, err := s.remove(ctx, id.Int64)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", s.meta.Table, id, model.ErrNotFound)
	}
	return nil
}

func (s *Store[E]) remove(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
		members[i] = id
	}

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.idsKey(), members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return del.Val(), nil
}

// DeleteAll removes the entities matching f and returns how many were removed.
func (s *Store[E]) DeleteAll(ctx context.Context, f *query.Filter) (int64, error) {
	rows, err := s.rows(ctx, f)
	if err != nil {
		return 0, err
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row[model.IDColumn].(int64)
	}
	return s.remove(ctx, ids...)
}
