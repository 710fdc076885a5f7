package core

import (
	"context"

	"github.com/shrek82/jrest/model"
)

// Component is the base interface for all components/middleware.
type Component interface {
	Name() string
	Init(db *DB) error
	Shutdown() error
}

// Result represents the result of a query execution.
type Result struct {
	RowsAffected int64
	LastInsertId int64
	Rows         []model.Row
}

// QueryFunc is the function type for the next step in the middleware chain.
type QueryFunc func(ctx context.Context, query *Query) (*Result, error)

// QueryMiddleware is the interface for query interceptors. Process sees the
// built statement in query.SQL and query.Args and must call next to run it.
type QueryMiddleware interface {
	Component
	Process(ctx context.Context, query *Query, next QueryFunc) (*Result, error)
}

// chain wraps final with the registered middlewares, first registered outermost.
func chain(mws []QueryMiddleware, final QueryFunc) QueryFunc {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(ctx context.Context, q *Query) (*Result, error) {
			return mw.Process(ctx, q, next)
		}
	}
	return h
}
