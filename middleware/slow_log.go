package middleware

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"time"

	"github.com/shrek82/jrest/core"
	"github.com/shrek82/jrest/logger"
)

// SlowLogMiddleware logs queries that take longer than the specified threshold.
type SlowLogMiddleware struct {
	Threshold time.Duration
	LogPath   string
	logger    logger.Logger
	file      *os.File
}

// NewSlowLog creates a new SlowLogMiddleware.
// threshold: queries taking longer than this will be logged.
// logPath: path to the log file. If empty, slow queries go to the DB's logger.
func NewSlowLog(threshold time.Duration, logPath string) *SlowLogMiddleware {
	return &SlowLogMiddleware{
		Threshold: threshold,
		LogPath:   logPath,
	}
}

// SetOutput sends slow query lines to w as JSON.
func (m *SlowLogMiddleware) SetOutput(w io.Writer) {
	m.logger = logger.New(w, logger.LogLevelWarn, logger.LogFormatJSON)
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(db *core.DB) error {
	// If logger is already set (e.g. by SetOutput), don't overwrite it
	if m.logger != nil {
		return nil
	}

	if m.LogPath == "" {
		m.logger = db.Logger()
		return nil
	}
	f, err := os.OpenFile(m.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open slow log file: %w", err)
	}
	m.file = f
	m.logger = logger.New(f, logger.LogLevelWarn, logger.LogFormatJSON)
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

func (m *SlowLogMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, query)
	duration := time.Since(start)

	if duration > m.Threshold {
		fields := map[string]any{
			"table":    query.Table,
			"op":       string(query.Op),
			"duration": duration.String(),
			"args":     query.Args,
		}
		// request fields such as request_id
		maps.Copy(fields, logger.FieldsFrom(ctx))
		if res != nil {
			fields["rows"] = res.RowsAffected
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		m.logger.WithFields(fields).Warn("slow query: %s", query.SQL)
	}

	return res, err
}
