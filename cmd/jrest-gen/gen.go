package main

import (
	"bytes"
	"fmt"
	"go/format"
	"slices"
	"strings"
	"text/template"
	"unicode"

	"github.com/shrek82/jrest/dialect"
	"github.com/shrek82/jrest/model"
)

const entityTemplate = `// Code generated by jrest-gen from table {{.Table}}. DO NOT EDIT.

package {{.Package}}

import (
{{- if .UsesTime}}
	"time"
{{end}}
	"github.com/shrek82/jrest/model"
)

type {{.StructName}} struct {
	model.Base
{{- range .Fields}}
	{{.Name}} {{.GoType}}
{{- end}}
}

func (e *{{.StructName}}) Props() []model.Prop {
	return []model.Prop{
{{- range .Fields}}
		model.{{.Binder}}("{{.Column}}", &e.{{.Name}}),
{{- end}}
	}
}

func (e *{{.StructName}}) String() string { return model.Describe(e) }

var {{.StructName}}Meta = model.MustRegister[*{{.StructName}}]("{{.Table}}",
{{- range .Fields}}
	{{.Def}},
{{- end}}
)
`

var tmpl = template.Must(template.New("entity").Parse(entityTemplate))

// Field is one generated property.
type Field struct {
	Name   string // Go field name
	Column string
	Kind   model.Kind
	Ref    string // referenced table of a foreign key
}

func (f Field) GoType() string {
	if f.Kind == model.KindForeignKey {
		return "model.Identifier"
	}
	return f.Kind.GoType().String()
}

func (f Field) Binder() string {
	switch f.Kind {
	case model.KindInt:
		return "BindInt"
	case model.KindDouble:
		return "BindDouble"
	case model.KindDate:
		return "BindDate"
	case model.KindForeignKey:
		return "BindForeignKey"
	}
	return "BindString"
}

func (f Field) Def() string {
	switch f.Kind {
	case model.KindInt:
		return fmt.Sprintf("model.Int(%q)", f.Column)
	case model.KindDouble:
		return fmt.Sprintf("model.Double(%q)", f.Column)
	case model.KindDate:
		return fmt.Sprintf("model.Date(%q)", f.Column)
	case model.KindForeignKey:
		return fmt.Sprintf("model.ForeignKey(model.Reference{Field: %q, Table: %q})", f.Column, f.Ref)
	}
	return fmt.Sprintf("model.String(%q)", f.Column)
}

// EntityData is what the entity template renders.
type EntityData struct {
	Package    string
	StructName string
	Table      string
	Fields     []Field
}

func (d EntityData) UsesTime() bool {
	return slices.ContainsFunc(d.Fields, func(f Field) bool { return f.Kind == model.KindDate })
}

// buildEntity maps the columns of table to properties. The primary key is
// carried by model.Base. Columns of unknown type are returned as skipped.
func buildEntity(pkg, table string, cols []dialect.ColumnInfo, tables []string) (EntityData, []string) {
	data := EntityData{
		Package:    pkg,
		StructName: snakeToCamel(singular(table), true),
		Table:      table,
	}
	var skipped []string
	for _, c := range cols {
		if c.Primary || c.Name == model.IDColumn {
			continue
		}
		kind, ok := mapKind(c.Type)
		if !ok {
			skipped = append(skipped, c.Name+" "+c.Type)
			continue
		}
		f := Field{Name: snakeToCamel(c.Name, true), Column: c.Name, Kind: kind}
		if kind == model.KindInt && c.Nullable && strings.HasSuffix(c.Name, "_id") {
			f.Kind = model.KindForeignKey
			f.Ref = referencedTable(strings.TrimSuffix(c.Name, "_id"), tables)
		}
		data.Fields = append(data.Fields, f)
	}
	return data, skipped
}

// render executes the template and gofmts the result.
func render(data EntityData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", data.Table, err)
	}
	return src, nil
}

// mapKind maps a database column type to a property kind.
func mapKind(dbType string) (model.Kind, bool) {
	t := strings.ToUpper(dbType)
	if idx := strings.Index(t, "("); idx != -1 {
		t = t[:idx]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), " UNSIGNED")

	switch {
	case strings.HasSuffix(t, "INT") || t == "INTEGER" || strings.HasSuffix(t, "SERIAL"):
		return model.KindInt, true
	case strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT") || t == "JSON" || t == "UUID":
		return model.KindString, true
	case t == "REAL" || t == "FLOAT" || strings.HasPrefix(t, "DOUBLE") || t == "DECIMAL" || t == "NUMERIC":
		return model.KindDouble, true
	case strings.HasPrefix(t, "DATE") || strings.HasPrefix(t, "TIMESTAMP") || strings.HasPrefix(t, "TIME"):
		return model.KindDate, true
	}
	return 0, false
}

// referencedTable guesses the table an "<name>_id" column points to,
// preferring the plural form when both exist.
func referencedTable(name string, tables []string) string {
	for _, candidate := range []string{name + "s", name} {
		if slices.Contains(tables, candidate) {
			return candidate
		}
	}
	return name + "s"
}

func singular(table string) string {
	if len(table) > 1 && strings.HasSuffix(table, "s") && !strings.HasSuffix(table, "ss") {
		return strings.TrimSuffix(table, "s")
	}
	return table
}

// snakeToCamel converts snake_case to CamelCase, spelling "id" as "ID".
func snakeToCamel(s string, upperFirst bool) string {
	parts := strings.Split(s, "_")
	for i := range parts {
		if i == 0 && !upperFirst {
			continue
		}
		if parts[i] == "id" {
			parts[i] = "ID"
		} else if len(parts[i]) > 0 {
			runes := []rune(parts[i])
			runes[0] = unicode.ToUpper(runes[0])
			parts[i] = string(runes)
		}
	}
	return strings.Join(parts, "")
}
