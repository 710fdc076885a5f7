package model

// SchemaBuilder receives the column declarations of an entity's table.
// It is implemented by the SQL dialects' table builders.
type SchemaBuilder interface {
	// ID declares the synthetic identifier column.
	ID()
	Int(name string)
	String(name string)
	Double(name string)
	Date(name string)
	// OptionalInt declares a nullable integer column.
	OptionalInt(name string)
	ForeignKey(ref Reference)
}

// Declare emits the identifier column, then one column per definition in
// order. A foreign key becomes a nullable integer column followed by its
// constraint.
func Declare(b SchemaBuilder, defs []Def) {
	b.ID()

	for _, d := range defs {
		switch d.Kind {
		case KindInt:
			b.Int(d.Name)
		case KindString:
			b.String(d.Name)
		case KindDouble:
			b.Double(d.Name)
		case KindDate:
			b.Date(d.Name)
		case KindForeignKey:
			ref := Reference{Field: d.Name}
			if d.Ref != nil {
				ref = *d.Ref
			}
			b.OptionalInt(ref.Field)
			b.ForeignKey(ref)
		}
	}
}
