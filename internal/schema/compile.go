package schema

import (
	"fmt"
	"strings"
)

// Column is one physical column of a compiled dynamic table.
type Column struct {
	Name    string
	SQLType string
	NotNull bool
	Primary bool
}

// Index is one physical index of a compiled dynamic table.
type Index struct {
	Name   string
	Column string
}

// TableSpec is the compiled physical layout for a definition. It is a
// pure value: rendering and executing the DDL are separate steps, so
// compilation is unit-testable without a live database.
type TableSpec struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Sanitize lowercases raw and replaces every non-alphanumeric ASCII
// character with '_'. Distinct inputs can collide after sanitizing
// ("a.b" and "a_b" both become "a_b"); the registry does not guard
// against this and two such schema_ids share one physical table.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			b.WriteRune(c + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// TableName derives the deterministic physical table name for a
// definition: "dyn_" + sanitize(schema_id) + "_v" + sanitize(version).
func TableName(def *Definition) string {
	return "dyn_" + Sanitize(def.SchemaID) + "_v" + Sanitize(def.Version)
}

// mapSQLType maps a definition field type tag to SQLite storage.
// Unknown tags fall back to TEXT; booleans are stored as 0/1.
func mapSQLType(tag string) string {
	switch strings.ToLower(tag) {
	case "int", "integer", "long":
		return "INTEGER"
	case "float", "double", "number", "real":
		return "REAL"
	case "bool", "boolean":
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// Compile turns a validated definition into its physical table layout.
//
// System columns (record_id, created_at, updated_at) come first, then
// class columns, then one column per field in declaration order. A
// field whose sanitized name collides with an earlier column is
// skipped: system and class columns take precedence.
func Compile(def *Definition) TableSpec {
	table := TableName(def)

	cols := []Column{
		{Name: "record_id", SQLType: "TEXT", Primary: true},
		{Name: "created_at", SQLType: "TEXT", NotNull: true},
		{Name: "updated_at", SQLType: "TEXT", NotNull: true},
	}

	switch def.Class {
	case ClassDomain:
		cols = append(cols, Column{Name: "entity_key", SQLType: "TEXT", NotNull: true})
	case ClassUserContext:
		cols = append(cols,
			Column{Name: "ref_user_id", SQLType: "TEXT", NotNull: true},
			Column{Name: "ref_scope_id", SQLType: "TEXT"},
			Column{Name: "entity_key", SQLType: "TEXT"},
		)
	}

	taken := make(map[string]bool, len(cols)+len(def.Fields))
	for _, c := range cols {
		taken[c.Name] = true
	}

	for _, f := range def.Fields {
		name := Sanitize(f.Name)
		if taken[name] {
			continue
		}
		taken[name] = true
		cols = append(cols, Column{
			Name:    name,
			SQLType: mapSQLType(f.Type),
			NotNull: !f.Nullable,
		})
	}

	indexes := []Index{
		{Name: fmt.Sprintf("idx_%s_updated_at", table), Column: "updated_at"},
	}
	if def.Class == ClassUserContext {
		indexes = append(indexes, Index{
			Name:   fmt.Sprintf("idx_%s_ref_user_id", table),
			Column: "ref_user_id",
		})
	}

	return TableSpec{Name: table, Columns: cols, Indexes: indexes}
}

// DDL renders the create-if-absent statement for the table.
func (t TableSpec) DDL() string {
	parts := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		p := c.Name + " " + c.SQLType
		if c.Primary {
			p += " PRIMARY KEY"
		} else if c.NotNull {
			p += " NOT NULL"
		}
		parts = append(parts, p)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Name, strings.Join(parts, ", "))
}

// IndexDDL renders the create-if-absent statements for the indexes.
func (t TableSpec) IndexDDL() []string {
	out := make([]string, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		out = append(out, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s(%s)", ix.Name, t.Name, ix.Column,
		))
	}
	return out
}
