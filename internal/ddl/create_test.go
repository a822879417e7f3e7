package ddl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an Executor that keeps every statement.
type recorder struct {
	stmts []string
	fail  string
}

func (r *recorder) Execute(_ context.Context, statement string, _ ...any) error {
	if r.fail != "" && statement == r.fail {
		return errors.New("boom")
	}
	r.stmts = append(r.stmts, statement)
	return nil
}

// TestBuildCreateTableSQL verifies statement text and input validation.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		spec        TableSpec
		dialect     Dialect
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty table",
			spec:        TableSpec{Columns: []ColumnDef{{Name: "a", SQLType: "integer"}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns",
			spec:        TableSpec{Table: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "empty column name",
			spec:        TableSpec{Table: "t", Columns: []ColumnDef{{Name: " ", SQLType: "integer"}}},
			errContains: "column with empty name",
		},
		{
			name:        "empty column type",
			spec:        TableSpec{Table: "t", Columns: []ColumnDef{{Name: "a"}}},
			errContains: "missing SQLType",
		},
		{
			name: "source columns only",
			spec: TableSpec{Table: "t", Columns: []ColumnDef{
				{Name: "a", SQLType: "integer"},
				{Name: "b", SQLType: "string"},
			}},
			wantSQL: "CREATE TABLE IF NOT EXISTS t (a integer, b string)",
		},
		{
			name: "extra columns prepended",
			spec: TableSpec{
				Table:   "t",
				Extra:   []ColumnDef{{Name: "src", SQLType: "string"}},
				Columns: []ColumnDef{{Name: "a", SQLType: "integer"}},
			},
			wantSQL: "CREATE TABLE IF NOT EXISTS t (src string, a integer)",
		},
		{
			name: "postgres type names",
			spec: TableSpec{Table: "t", Columns: []ColumnDef{
				{Name: "a", SQLType: "integer"},
				{Name: "b", SQLType: "string"},
				{Name: "c", SQLType: "float"},
				{Name: "d", SQLType: "jsonb"},
			}},
			dialect: Postgres,
			wantSQL: "CREATE TABLE IF NOT EXISTS t (a integer, b text, c double precision, d jsonb)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.spec, tt.dialect)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
		})
	}
}

func TestBuildCreateIndexSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateIndexSQL("t", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_a_b ON t (a, b)", got)

	_, err = BuildCreateIndexSQL("t", nil)
	require.Error(t, err)
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	cols := []string{"src", "a", "b"}
	assert.Equal(t, "INSERT INTO t (src, a, b) VALUES (?, ?, ?)", BuildInsertSQL("t", cols, Generic))
	assert.Equal(t, "INSERT INTO t (src, a, b) VALUES ($1, $2, $3)", BuildInsertSQL("t", cols, Postgres))
	assert.Equal(t, "INSERT INTO t (src, a, b) VALUES (?, ?, ?)", BuildInsertSQL("t", cols, MariaDB))
}

func TestBuildDeleteSQL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "DELETE FROM t", BuildDeleteSQL("t"))
}

// TestCreateTableOrder checks the table statement is issued before the
// indexes, which follow declaration order.
func TestCreateTableOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	spec := TableSpec{
		Table:   "t",
		Columns: []ColumnDef{{Name: "a", SQLType: "integer"}, {Name: "b", SQLType: "string"}},
		Indexes: [][]string{{"b"}, {"a", "b"}},
	}
	require.NoError(t, CreateTable(context.Background(), rec, spec, Generic, nil))
	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS t (a integer, b string)",
		"CREATE INDEX IF NOT EXISTS idx_b ON t (b)",
		"CREATE INDEX IF NOT EXISTS idx_a_b ON t (a, b)",
	}, rec.stmts)
}

func TestCreateTableStopsOnError(t *testing.T) {
	t.Parallel()

	rec := &recorder{fail: "CREATE INDEX IF NOT EXISTS idx_a ON t (a)"}
	spec := TableSpec{
		Table:   "t",
		Columns: []ColumnDef{{Name: "a", SQLType: "integer"}},
		Indexes: [][]string{{"a"}, {"a", "a"}},
	}
	err := CreateTable(context.Background(), rec, spec, Generic, nil)
	require.Error(t, err)
	assert.Len(t, rec.stmts, 1, "statements after the failing one must not run")
}
