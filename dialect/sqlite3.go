package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shrek82/jrest/model"
)

// SQLite dialect implementation
type sqlite3 struct{}

func (d *sqlite3) Name() string { return "sqlite3" }

func (d *sqlite3) DataTypeOf(kind model.Kind) string {
	switch kind {
	case model.KindInt, model.KindForeignKey:
		return "integer"
	case model.KindDouble:
		return "real"
	case model.KindString:
		return "text"
	case model.KindDate:
		return "datetime"
	}
	panic(fmt.Sprintf("invalid sql kind %s", kind))
}

func (d *sqlite3) IDColumn() string {
	return "integer PRIMARY KEY AUTOINCREMENT"
}

func (d *sqlite3) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *sqlite3) Placeholder(index int) string {
	return "?"
}

func (d *sqlite3) InsertSQL(table string, columns []string) (string, bool) {
	return insertSQL(d, table, columns), false
}

func (d *sqlite3) CreateTableSQL(t *Table) (string, []any) {
	return createTableSQL(d, t), nil
}

func (d *sqlite3) HasTableSQL(table string) (string, []any) {
	return "SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", []any{table}
}

func (d *sqlite3) TablesSQL() string {
	return "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

func (d *sqlite3) ColumnsSQL(table string) (string, []any) {
	return fmt.Sprintf("PRAGMA table_info(%s)", d.Quote(table)), nil
}

func (d *sqlite3) ParseColumns(rows *sql.Rows) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	for rows.Next() {
		var (
			cid       int
			c         ColumnInfo
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		c.Primary = pk > 0
		// sqlite does not report NOT NULL on an INTEGER PRIMARY KEY
		c.Nullable = notnull == 0 && !c.Primary
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
