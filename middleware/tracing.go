package middleware

import (
	"context"

	"github.com/shrek82/jrest/core"
	"github.com/shrek82/jrest/logger"
)

// TracingMiddleware tags the SQL log lines of each query with its table and
// statement kind, plus the request fields attached to the query context with
// logger.ContextWithFields. When Keys is set only those context fields are
// copied.
type TracingMiddleware struct {
	Keys []string
}

// NewTracing copies the listed context fields, or all of them when none are
// given.
func NewTracing(keys ...string) *TracingMiddleware {
	return &TracingMiddleware{Keys: keys}
}

func (m *TracingMiddleware) Name() string { return "Tracing" }

func (m *TracingMiddleware) Init(*core.DB) error { return nil }

func (m *TracingMiddleware) Shutdown() error { return nil }

func (m *TracingMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	fields := map[string]any{"table": query.Table, "op": string(query.Op)}
	for k, v := range logger.FieldsFrom(ctx) {
		if m.wants(k) {
			fields[k] = v
		}
	}
	query.WithFields(fields)
	return next(ctx, query)
}

func (m *TracingMiddleware) wants(key string) bool {
	if len(m.Keys) == 0 {
		return true
	}
	for _, k := range m.Keys {
		if k == key {
			return true
		}
	}
	return false
}
