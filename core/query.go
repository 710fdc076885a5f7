package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

// Op names the kind of statement a Query runs.
type Op string

const (
	OpSelect Op = "select"
	OpCount  Op = "count"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Query is the chainable query builder and executor for one table. A Query
// runs a single statement; build a new one per call.
type Query struct {
	// Table, Op, SQL and Args describe the statement once it is built. They
	// are what middlewares inspect.
	Table string
	Op    Op
	SQL   string
	Args  []any

	db      *DB
	builder Builder
	ctx     context.Context
	logger  logger.Logger
	err     error
}

func newQuery(db *DB, table string) *Query {
	b := NewBuilder(db.dialect)
	b.SetTable(table)
	return &Query{
		Table:   table,
		db:      db,
		builder: b,
		ctx:     context.Background(),
		logger:  db.logger,
	}
}

// WithContext sets the context for the query execution.
func (q *Query) WithContext(ctx context.Context) *Query {
	q.ctx = ctx
	return q
}

// WithFields attaches fields to the SQL log lines of this query.
func (q *Query) WithFields(fields map[string]any) *Query {
	q.logger = q.logger.WithFields(fields)
	return q
}

func (q *Query) Where(cond string, args ...any) *Query {
	q.builder.Where(cond, args...)
	return q
}

// Filter restricts the query with a bulk filter. A nil filter matches every row.
func (q *Query) Filter(f *query.Filter) *Query {
	if err := q.builder.Filter(f); err != nil && q.err == nil {
		q.err = fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return q
}

func (q *Query) Select(columns ...string) *Query {
	q.builder.Select(columns...)
	return q
}

func (q *Query) OrderBy(columns ...string) *Query {
	q.builder.OrderBy(columns...)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.builder.Limit(n)
	return q
}

func (q *Query) Offset(n int) *Query {
	q.builder.Offset(n)
	return q
}

// run records the statement and passes it through the middleware chain to exec.
func (q *Query) run(op Op, sqlStr string, args []any, exec QueryFunc) (*Result, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return nil, q.err
	}
	q.Op, q.SQL, q.Args = op, sqlStr, args
	return chain(q.db.chain(), exec)(q.ctx, q)
}

// Rows returns every row matching the query.
func (q *Query) Rows() ([]model.Row, error) {
	sqlStr, args := q.builder.BuildSelect()
	res, err := q.run(OpSelect, sqlStr, args, queryRows)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// First returns the first matching row, or ErrRecordNotFound.
func (q *Query) First() (model.Row, error) {
	q.builder.Limit(1)
	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}
	return rows[0], nil
}

// Count returns the number of records matching the query.
func (q *Query) Count() (int64, error) {
	q.builder.Select("COUNT(*) AS " + q.db.dialect.Quote("count"))
	sqlStr, args := q.builder.BuildSelect()
	res, err := q.run(OpCount, sqlStr, args, queryRows)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	n, err := res.Rows[0].Int("count")
	return int64(n), err
}

// Insert writes row as a new record and returns its generated id.
func (q *Query) Insert(row model.Row) (int64, error) {
	sqlStr, args, returning := q.builder.BuildInsert(row)
	exec := insertExec
	if returning {
		exec = insertReturning
	}
	res, err := q.run(OpInsert, sqlStr, args, exec)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId, nil
}

// Update sets the columns of row on every matching record.
func (q *Query) Update(row model.Row) (int64, error) {
	if len(row) == 0 {
		PutBuilder(q.builder)
		return 0, fmt.Errorf("%w: update without columns", ErrInvalidQuery)
	}
	sqlStr, args := q.builder.BuildUpdate(row)
	res, err := q.run(OpUpdate, sqlStr, args, execStatement)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete deletes records matching the query.
func (q *Query) Delete() (int64, error) {
	sqlStr, args := q.builder.BuildDelete()
	res, err := q.run(OpDelete, sqlStr, args, execStatement)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func queryRows(ctx context.Context, q *Query) (*Result, error) {
	start := time.Now()
	rows, err := q.db.pool.QueryContext(ctx, q.SQL, q.Args...)
	q.logger.SQL(q.SQL, time.Since(start), q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: out, RowsAffected: int64(len(out))}, nil
}

// scanRows reads every row as driver values keyed by column name.
func scanRows(rows *sql.Rows) ([]model.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []model.Row
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for rows.Next() {
		for i := range values {
			values[i] = nil
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(model.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func execStatement(ctx context.Context, q *Query) (*Result, error) {
	start := time.Now()
	res, err := q.db.pool.ExecContext(ctx, q.SQL, q.Args...)
	q.logger.SQL(q.SQL, time.Since(start), q.Args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: affected}, nil
}

func insertExec(ctx context.Context, q *Query) (*Result, error) {
	start := time.Now()
	res, err := q.db.pool.ExecContext(ctx, q.SQL, q.Args...)
	q.logger.SQL(q.SQL, time.Since(start), q.Args...)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: 1, LastInsertId: id}, nil
}

func insertReturning(ctx context.Context, q *Query) (*Result, error) {
	start := time.Now()
	var id int64
	err := q.db.pool.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&id)
	q.logger.SQL(q.SQL, time.Since(start), q.Args...)
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: 1, LastInsertId: id}, nil
}
