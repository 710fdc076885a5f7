package dialect

import "github.com/shrek82/jrest/model"

// Column is one declared column of a Table.
type Column struct {
	Name     string
	Kind     model.Kind
	Nullable bool
	Primary  bool
}

// Table collects the columns an entity declares. It implements
// model.SchemaBuilder; dialects render it with CreateTableSQL.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []model.Reference
}

var _ model.SchemaBuilder = (*Table)(nil)

// NewTable returns an empty table declaration.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// TableOf declares the table of a registered entity type.
func TableOf(m *model.Meta) *Table {
	t := NewTable(m.Table)
	m.Declare(t)
	return t
}

func (t *Table) add(name string, kind model.Kind, nullable bool) {
	t.Columns = append(t.Columns, Column{Name: name, Kind: kind, Nullable: nullable})
}

func (t *Table) ID() {
	t.Columns = append(t.Columns, Column{Name: model.IDColumn, Kind: model.KindInt, Primary: true})
}

func (t *Table) Int(name string)         { t.add(name, model.KindInt, false) }
func (t *Table) String(name string)      { t.add(name, model.KindString, false) }
func (t *Table) Double(name string)      { t.add(name, model.KindDouble, false) }
func (t *Table) Date(name string)        { t.add(name, model.KindDate, false) }
func (t *Table) OptionalInt(name string) { t.add(name, model.KindInt, true) }

func (t *Table) ForeignKey(ref model.Reference) {
	t.ForeignKeys = append(t.ForeignKeys, ref)
}
