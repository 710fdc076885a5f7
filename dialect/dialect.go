package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shrek82/jrest/model"
)

// Dialect represents the database-specific parts of SQL generation and type mapping.
// Each database (MySQL, SQLite, etc.) must implement this interface to be supported.
type Dialect interface {
	// Name returns the database/sql driver name
	Name() string
	// DataTypeOf returns the column type for a property kind
	DataTypeOf(kind model.Kind) string
	// IDColumn returns the type and constraints of the auto-increment identifier column
	IDColumn() string
	// Quote wraps a name (table or column) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the bind parameter for the 1-based index
	Placeholder(index int) string
	// InsertSQL generates the INSERT statement for the given table and columns.
	// returning reports whether the statement yields the new id as a result row.
	InsertSQL(table string, columns []string) (sql string, returning bool)
	// CreateTableSQL generates the CREATE TABLE statement for a declared table
	CreateTableSQL(t *Table) (string, []any)
	// HasTableSQL generates the SQL to check if a table exists
	HasTableSQL(table string) (string, []any)
	// TablesSQL lists the user tables of the current database
	TablesSQL() string
	// ColumnsSQL lists the columns of a table, in ordinal order
	ColumnsSQL(table string) (string, []any)
	// ParseColumns reads the result of ColumnsSQL
	ParseColumns(rows *sql.Rows) ([]ColumnInfo, error)
}

// ColumnInfo describes an existing column, as reported by the database.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
	Primary  bool
}

var dialects = make(map[string]Dialect)

func init() {
	Register("sqlite3", &sqlite3{})
	Register("sqlite", &sqlite3{})
	Register("mysql", &mysql{})
	Register("postgres", &postgres{})
}

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

func insertSQL(d Dialect, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		placeholders[i] = d.Placeholder(i + 1)
	}
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.Quote(table))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

func createTableSQL(d Dialect, t *Table) string {
	var defs []string
	for _, c := range t.Columns {
		if c.Primary {
			defs = append(defs, d.Quote(c.Name)+" "+d.IDColumn())
			continue
		}
		def := d.Quote(c.Name) + " " + d.DataTypeOf(c.Kind)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	for _, ref := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Quote(ref.Field), d.Quote(ref.Table), d.Quote(ref.Column)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(t.Name), strings.Join(defs, ", "))
}

// parseInformationSchema reads (column_name, data_type, is_nullable, is_primary) rows.
func parseInformationSchema(rows *sql.Rows) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &c.Primary); err != nil {
			return nil, err
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
