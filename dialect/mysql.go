package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shrek82/jrest/model"
)

// MySQL dialect implementation
type mysql struct{}

func (d *mysql) Name() string { return "mysql" }

func (d *mysql) DataTypeOf(kind model.Kind) string {
	switch kind {
	case model.KindInt, model.KindForeignKey:
		return "bigint"
	case model.KindDouble:
		return "double"
	case model.KindString:
		return "varchar(255)"
	case model.KindDate:
		return "datetime(6)"
	}
	panic(fmt.Sprintf("invalid sql kind %s", kind))
}

func (d *mysql) IDColumn() string {
	return "bigint PRIMARY KEY AUTO_INCREMENT"
}

func (d *mysql) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}

func (d *mysql) InsertSQL(table string, columns []string) (string, bool) {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s () VALUES ()", d.Quote(table)), false
	}
	return insertSQL(d, table, columns), false
}

func (d *mysql) CreateTableSQL(t *Table) (string, []any) {
	return createTableSQL(d, t), nil
}

func (d *mysql) HasTableSQL(table string) (string, []any) {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", []any{table}
}

func (d *mysql) TablesSQL() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
}

func (d *mysql) ColumnsSQL(table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable, column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, []any{table}
}

func (d *mysql) ParseColumns(rows *sql.Rows) ([]ColumnInfo, error) {
	return parseInformationSchema(rows)
}
