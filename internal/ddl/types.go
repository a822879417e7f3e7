package ddl

import "strconv"

// ColumnDef describes a single destination column.
//
// Fields:
//   - Name: column name, emitted as-is (no quoting)
//   - SQLType: the type string written into CREATE TABLE
type ColumnDef struct {
	Name    string
	SQLType string
}

// TableSpec is everything the provisioner needs for one table: the table
// name, extra constant-valued columns (prepended), the resolved source columns
// in source order, and index specs (each an ordered column list).
type TableSpec struct {
	Table   string
	Extra   []ColumnDef
	Columns []ColumnDef
	Indexes [][]string
}

// AllColumns returns extra columns followed by source columns.
func (t TableSpec) AllColumns() []ColumnDef {
	out := make([]ColumnDef, 0, len(t.Extra)+len(t.Columns))
	out = append(out, t.Extra...)
	return append(out, t.Columns...)
}

// Dialect captures the few places where backends disagree on statement text:
// bind placeholders and the spelling of the generic column types. The zero
// value is the generic dialect ("?" placeholders, types passed through).
type Dialect struct {
	Name string

	// numbered selects $1, $2, ... placeholders.
	numbered bool

	// types rewrites generic type names; unknown names pass through.
	types map[string]string
}

var (
	// Generic is used by sqlite3 and the dry-run printer.
	Generic = Dialect{Name: "generic"}

	// Postgres has no "string" type and binds with $n.
	Postgres = Dialect{
		Name:     "postgres",
		numbered: true,
		types: map[string]string{
			"string": "text",
			"float":  "double precision",
		},
	}

	// MariaDB has no "string" type.
	MariaDB = Dialect{
		Name: "mariadb",
		types: map[string]string{
			"string": "text",
		},
	}
)

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// TypeName translates a type string for this dialect.
func (d Dialect) TypeName(t string) string {
	if mapped, ok := d.types[t]; ok {
		return mapped
	}
	return t
}
