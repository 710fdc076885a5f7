package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shrek82/jrest/model"
)

// PostgreSQL dialect implementation
type postgres struct{}

func (d *postgres) Name() string { return "postgres" }

func (d *postgres) DataTypeOf(kind model.Kind) string {
	switch kind {
	case model.KindInt, model.KindForeignKey:
		return "bigint"
	case model.KindDouble:
		return "double precision"
	case model.KindString:
		return "varchar(255)"
	case model.KindDate:
		return "timestamp with time zone"
	}
	panic(fmt.Sprintf("invalid sql kind %s", kind))
}

func (d *postgres) IDColumn() string {
	return "bigserial PRIMARY KEY"
}

func (d *postgres) Quote(name string) string {
	// PostgreSQL uses double quotes for identifiers
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// PostgreSQL uses $1, $2, $3... for placeholders
func (d *postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// lib/pq does not implement LastInsertId, the id comes back as a row instead.
func (d *postgres) InsertSQL(table string, columns []string) (string, bool) {
	return insertSQL(d, table, columns) + " RETURNING " + d.Quote(model.IDColumn), true
}

func (d *postgres) CreateTableSQL(t *Table) (string, []any) {
	return createTableSQL(d, t), nil
}

func (d *postgres) HasTableSQL(table string) (string, []any) {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1", []any{table}
}

func (d *postgres) TablesSQL() string {
	return "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = 'public' ORDER BY tablename"
}

func (d *postgres) ColumnsSQL(table string) (string, []any) {
	return `SELECT c.column_name, c.data_type, c.is_nullable,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name
			)
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`, []any{table}
}

func (d *postgres) ParseColumns(rows *sql.Rows) ([]ColumnInfo, error) {
	return parseInformationSchema(rows)
}
