package core

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shrek82/jrest/dialect"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

// Builder defines the interface for building SQL statements.
// Conditions are written with "?" placeholders; the builder rewrites them to
// the dialect's form when a statement is built.
type Builder interface {
	// SetTable sets the target table for the SQL statement.
	SetTable(name string) Builder
	// Select specifies columns to retrieve. No columns means "*".
	Select(columns ...string) Builder
	// Where adds an AND condition to the WHERE clause.
	Where(cond string, args ...any) Builder
	// Filter adds a bulk filter as an AND condition.
	Filter(f *query.Filter) error
	// OrderBy adds columns for the ORDER BY clause (e.g., "id DESC").
	OrderBy(columns ...string) Builder
	// Limit sets the maximum number of rows to return.
	Limit(n int) Builder
	// Offset sets the number of rows to skip.
	Offset(n int) Builder
	// BuildSelect generates the final SELECT statement and its arguments.
	BuildSelect() (string, []any)
	// BuildInsert generates the INSERT statement for row, in sorted column order.
	// returning reports whether the statement yields the new id as a result row.
	BuildInsert(row model.Row) (sql string, args []any, returning bool)
	// BuildUpdate generates the UPDATE statement for row, in sorted column order.
	BuildUpdate(row model.Row) (string, []any)
	// BuildDelete generates the final DELETE statement and its arguments.
	BuildDelete() (string, []any)
}

// sqlBuilder is the default implementation of the Builder interface.
type sqlBuilder struct {
	dialect    dialect.Dialect
	table      string
	selectCols []string
	whereExpr  string
	whereArgs  []any
	orderBy    []string
	limit      int // negative when unset
	offset     int // negative when unset
	sb         strings.Builder
}

var builderPool = sync.Pool{
	New: func() any {
		return &sqlBuilder{}
	},
}

// NewBuilder takes a sqlBuilder from the pool and prepares it for d.
// Return it with PutBuilder once the statement has been executed.
func NewBuilder(d dialect.Dialect) Builder {
	b := builderPool.Get().(*sqlBuilder)
	b.Reset(d)
	return b
}

// PutBuilder returns a sqlBuilder to the pool for reuse.
func PutBuilder(b Builder) {
	if sb, ok := b.(*sqlBuilder); ok {
		sb.Reset(nil)
		builderPool.Put(sb)
	}
}

// Reset clears all builder state and prepares it for a new query with the given dialect.
func (b *sqlBuilder) Reset(d dialect.Dialect) {
	b.dialect = d
	b.table = ""
	b.selectCols = b.selectCols[:0]
	b.whereExpr = ""
	b.whereArgs = b.whereArgs[:0]
	b.orderBy = b.orderBy[:0]
	b.limit = -1
	b.offset = -1
	b.sb.Reset()
}

func (b *sqlBuilder) SetTable(name string) Builder {
	b.table = name
	return b
}

func (b *sqlBuilder) Select(columns ...string) Builder {
	b.selectCols = append(b.selectCols, columns...)
	return b
}

func (b *sqlBuilder) Where(cond string, args ...any) Builder {
	if cond == "" {
		return b
	}
	if b.whereExpr == "" {
		b.whereExpr = "(" + cond + ")"
	} else {
		b.whereExpr += " AND (" + cond + ")"
	}
	b.whereArgs = append(b.whereArgs, args...)
	return b
}

func (b *sqlBuilder) Filter(f *query.Filter) error {
	if f == nil {
		return nil
	}
	cond, args, err := f.SQL(b.dialect.Quote)
	if err != nil {
		return err
	}
	b.Where(cond, args...)
	return nil
}

func (b *sqlBuilder) OrderBy(columns ...string) Builder {
	b.orderBy = append(b.orderBy, columns...)
	return b
}

func (b *sqlBuilder) Limit(n int) Builder {
	b.limit = n
	return b
}

func (b *sqlBuilder) Offset(n int) Builder {
	b.offset = n
	return b
}

// replacePlaceholders rewrites each "?" into the dialect's numbered form.
func (b *sqlBuilder) replacePlaceholders(sql string) string {
	if !strings.Contains(sql, "?") || b.dialect.Placeholder(1) == "?" {
		return sql
	}

	b.sb.Reset()
	index := 1
	for {
		idx := strings.IndexByte(sql, '?')
		if idx == -1 {
			b.sb.WriteString(sql)
			break
		}
		b.sb.WriteString(sql[:idx])
		b.sb.WriteString(b.dialect.Placeholder(index))
		sql = sql[idx+1:]
		index++
	}
	return b.sb.String()
}

func (b *sqlBuilder) writeWhere(args []any) []any {
	if b.whereExpr == "" {
		return args
	}
	b.sb.WriteString(" WHERE ")
	b.sb.WriteString(b.whereExpr)
	return append(args, b.whereArgs...)
}

func (b *sqlBuilder) BuildSelect() (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(b.whereArgs)+2)

	b.sb.WriteString("SELECT ")
	if len(b.selectCols) > 0 {
		b.sb.WriteString(strings.Join(b.selectCols, ", "))
	} else {
		b.sb.WriteString("*")
	}
	b.sb.WriteString(" FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))

	args = b.writeWhere(args)

	if len(b.orderBy) > 0 {
		b.sb.WriteString(" ORDER BY ")
		b.sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit >= 0 {
		b.sb.WriteString(" LIMIT ")
		b.sb.WriteString(strconv.Itoa(b.limit))
	}
	if b.offset >= 0 {
		if b.limit < 0 {
			// mysql and sqlite only accept OFFSET after a LIMIT
			switch b.dialect.Name() {
			case "sqlite3":
				b.sb.WriteString(" LIMIT -1")
			case "mysql":
				b.sb.WriteString(" LIMIT 18446744073709551615")
			}
		}
		b.sb.WriteString(" OFFSET ")
		b.sb.WriteString(strconv.Itoa(b.offset))
	}

	return b.replacePlaceholders(b.sb.String()), args
}

func sortedColumns(row model.Row) []string {
	columns := row.Columns()
	sort.Strings(columns)
	return columns
}

func (b *sqlBuilder) BuildInsert(row model.Row) (string, []any, bool) {
	columns := sortedColumns(row)
	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = row[col]
	}
	sql, returning := b.dialect.InsertSQL(b.table, columns)
	return sql, args, returning
}

func (b *sqlBuilder) BuildUpdate(row model.Row) (string, []any) {
	b.sb.Reset()
	columns := sortedColumns(row)
	args := make([]any, 0, len(columns)+len(b.whereArgs))

	b.sb.WriteString("UPDATE ")
	b.sb.WriteString(b.dialect.Quote(b.table))
	b.sb.WriteString(" SET ")
	for i, col := range columns {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(b.dialect.Quote(col))
		b.sb.WriteString(" = ?")
		args = append(args, row[col])
	}

	args = b.writeWhere(args)
	return b.replacePlaceholders(b.sb.String()), args
}

func (b *sqlBuilder) BuildDelete() (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(b.whereArgs))

	b.sb.WriteString("DELETE FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))

	args = b.writeWhere(args)
	return b.replacePlaceholders(b.sb.String()), args
}
