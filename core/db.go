package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shrek82/jrest/dialect"
	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/pool"
)

// Options defines the configuration for the DB connection pool.
type Options = pool.Options

// DB manages the connection pool and the query middleware chain, and
// creates queries against it.
type DB struct {
	pool    pool.Pool
	dialect dialect.Dialect
	logger  logger.Logger

	mu          sync.RWMutex
	middlewares []QueryMiddleware
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownDialect, driver)
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	p, err := pool.Open(driver, dsn, o)
	if err != nil {
		return nil, err
	}
	return New(p, d), nil
}

// New builds a DB over an existing pool.
func New(p pool.Pool, d dialect.Dialect) *DB {
	return &DB{
		pool:    p,
		dialect: d,
		logger:  logger.Default,
	}
}

// Close shuts the middlewares down, last registered first, then closes the pool.
func (db *DB) Close() error {
	db.mu.Lock()
	mws := db.middlewares
	db.middlewares = nil
	db.mu.Unlock()

	var errs []error
	for _, mw := range slices.Backward(mws) {
		if err := mw.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", mw.Name(), err))
		}
	}
	errs = append(errs, db.pool.Close())
	return errors.Join(errs...)
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	db.logger = l
}

func (db *DB) Logger() logger.Logger { return db.logger }

func (db *DB) Dialect() dialect.Dialect { return db.dialect }

// Stats returns the connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.pool.Stats()
}

// Use initializes the middlewares and appends them to the chain. The first
// middleware ever registered sees each query first.
func (db *DB) Use(mws ...QueryMiddleware) error {
	for _, mw := range mws {
		if err := mw.Init(db); err != nil {
			return fmt.Errorf("init %s: %w", mw.Name(), err)
		}
		db.mu.Lock()
		db.middlewares = append(db.middlewares, mw)
		db.mu.Unlock()
	}
	return nil
}

func (db *DB) chain() []QueryMiddleware {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.middlewares
}

// Table starts a new query for the given table name.
func (db *DB) Table(name string) *Query {
	return newQuery(db, name)
}

func (db *DB) logSQL(sql string, duration time.Duration, args ...any) {
	if db.logger != nil {
		db.logger.SQL(sql, duration, args...)
	}
}

// Exec executes a raw SQL statement without returning any rows. It bypasses
// the middleware chain.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.pool.ExecContext(ctx, sql, args...)
	db.logSQL(sql, time.Since(start), args...)
	return res, err
}

// HasTable reports whether the table exists.
func (db *DB) HasTable(ctx context.Context, table string) (bool, error) {
	sqlStr, args := db.dialect.HasTableSQL(table)
	var count int
	if err := db.pool.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Prepare creates the table of each registered entity type from its declared
// schema when it does not exist yet. Existing tables are left untouched.
// Referenced tables must be prepared first.
func (db *DB) Prepare(ctx context.Context, metas ...*model.Meta) error {
	for _, m := range metas {
		ok, err := db.HasTable(ctx, m.Table)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", m.Table, err)
		}
		if ok {
			continue
		}

		createSQL, createArgs := db.dialect.CreateTableSQL(dialect.TableOf(m))
		if _, err := db.Exec(ctx, createSQL, createArgs...); err != nil {
			return fmt.Errorf("prepare %s: %w", m.Table, err)
		}
		db.logger.Info("created table %s", m.Table)
	}
	return nil
}

// Tables lists the user tables of the database.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := db.pool.QueryContext(ctx, db.dialect.TablesSQL())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns describes the columns of a table in ordinal order.
func (db *DB) Columns(ctx context.Context, table string) ([]dialect.ColumnInfo, error) {
	sqlStr, args := db.dialect.ColumnsSQL(table)
	rows, err := db.pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.dialect.ParseColumns(rows)
}
