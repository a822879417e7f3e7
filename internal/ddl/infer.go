package ddl

import (
	"strings"

	"tabload/internal/config"
	"tabload/internal/schema"
)

// FromColumns derives a TableSpec.
//
// Rules:
//   - Source columns keep their order; each type comes from the resolver.
//   - Extra columns are name=type pairs, emitted verbatim ahead of the source
//     columns. A name shared with a source column is not deduplicated.
//   - Each index spec is a comma-joined column list.
func FromColumns(
	table string,
	columns []string,
	resolver *schema.Resolver,
	extraColumns []config.Pair,
	indexes []string,
) (TableSpec, error) {
	spec := TableSpec{Table: table}

	for _, p := range extraColumns {
		spec.Extra = append(spec.Extra, ColumnDef{
			Name:    p.Name,
			SQLType: strings.TrimSpace(p.Value),
		})
	}
	for _, c := range resolver.ResolveAll(columns) {
		spec.Columns = append(spec.Columns, ColumnDef{Name: c.Name, SQLType: c.Type})
	}
	for _, raw := range indexes {
		cols, err := config.ParseIndex(raw)
		if err != nil {
			return TableSpec{}, err
		}
		spec.Indexes = append(spec.Indexes, cols)
	}
	return spec, nil
}
