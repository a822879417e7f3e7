// Package ddl builds the statements a load issues (CREATE TABLE, CREATE
// INDEX, INSERT, DELETE) and provisions the destination table through any
// statement executor.
//
// The builders:
//
//   - Do not quote identifiers; table and column names are emitted as-is.
//   - Emit CREATE ... IF NOT EXISTS so provisioning is idempotent.
//   - Never reorder columns: extra columns first, then source columns in
//     source order.
package ddl

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Executor is the statement half of a sink. storage.Sink satisfies it.
type Executor interface {
	Execute(ctx context.Context, statement string, args ...any) error
}

// BuildCreateTableSQL renders
//
//	CREATE TABLE IF NOT EXISTS <table> (<extra> <type>, ..., <col> <type>, ...)
//
// Types are passed through d.TypeName.
func BuildCreateTableSQL(t TableSpec, d Dialect) (string, error) {
	table := strings.TrimSpace(t.Table)
	if table == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	cols := t.AllColumns()
	if len(cols) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", table)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}
		defs = append(defs, name+" "+d.TypeName(typ))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", ")), nil
}

// IndexName returns idx_<col1>_<col2>...
func IndexName(columns []string) string {
	return "idx_" + strings.Join(columns, "_")
}

// BuildCreateIndexSQL renders
//
//	CREATE INDEX IF NOT EXISTS idx_a_b ON <table> (a, b)
func BuildCreateIndexSQL(table string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("ddl: index on %s has no columns", table)
	}
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		IndexName(columns),
		table,
		strings.Join(columns, ", "),
	), nil
}

// BuildInsertSQL renders a parameterized INSERT with one placeholder per
// column.
func BuildInsertSQL(table string, columns []string, d Dialect) string {
	ph := make([]string, len(columns))
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(ph, ", "),
	)
}

// BuildDeleteSQL renders DELETE FROM <table>.
func BuildDeleteSQL(table string) string {
	return "DELETE FROM " + table
}

// CreateTable issues the CREATE TABLE statement followed by one CREATE INDEX
// per index spec, in declaration order. It does not commit.
func CreateTable(ctx context.Context, ex Executor, t TableSpec, d Dialect, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	stmt, err := BuildCreateTableSQL(t, d)
	if err != nil {
		return err
	}
	stmts := []string{stmt}
	for _, idx := range t.Indexes {
		s, err := BuildCreateIndexSQL(t.Table, idx)
		if err != nil {
			return err
		}
		stmts = append(stmts, s)
	}

	for _, s := range stmts {
		logger.Debug("ddl", zap.String("statement", s))
		if err := ex.Execute(ctx, s); err != nil {
			return fmt.Errorf("ddl: %w", err)
		}
	}
	return nil
}
