package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabload/internal/config"
	"tabload/internal/ddl"
	"tabload/internal/rowsource"
)

// op is one call observed by recordSink. Commits have an empty statement.
type op struct {
	statement string
	args      []any
	commit    bool
}

type recordSink struct {
	ops []op

	// failOn makes the Nth Execute (1-based) fail.
	failOn int
	execs  int
}

func (s *recordSink) Execute(_ context.Context, statement string, args ...any) error {
	s.execs++
	if s.failOn > 0 && s.execs == s.failOn {
		return fmt.Errorf("%w: boom", ErrExec)
	}
	s.ops = append(s.ops, op{statement: statement, args: args})
	return nil
}

func (s *recordSink) Commit(context.Context) error {
	s.ops = append(s.ops, op{commit: true})
	return nil
}

func (s *recordSink) commits() int {
	n := 0
	for _, o := range s.ops {
		if o.commit {
			n++
		}
	}
	return n
}

// shape renders ops as "I" (insert) and "C" (commit).
func (s *recordSink) shape() string {
	out := make([]byte, 0, len(s.ops))
	for _, o := range s.ops {
		if o.commit {
			out = append(out, 'C')
		} else {
			out = append(out, 'I')
		}
	}
	return string(out)
}

func intRows(n int) []rowsource.Row {
	rows := make([]rowsource.Row, n)
	for i := range rows {
		rows[i] = rowsource.Row{int64(i), fmt.Sprintf("v%d", i)}
	}
	return rows
}

func TestInsertAll_ChunkingLaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rows, chunk int
		wantCommits int
		wantShape   string
	}{
		{rows: 0, chunk: 3, wantCommits: 1, wantShape: "C"},
		{rows: 1, chunk: 3, wantCommits: 1, wantShape: "IC"},
		{rows: 3, chunk: 3, wantCommits: 1, wantShape: "IIIC"},
		{rows: 4, chunk: 3, wantCommits: 2, wantShape: "IIICIC"},
		{rows: 6, chunk: 3, wantCommits: 2, wantShape: "IIICIIIC"},
		{rows: 7, chunk: 3, wantCommits: 3, wantShape: "IIICIIICIC"},
		{rows: 5, chunk: 1, wantCommits: 5, wantShape: "ICICICICIC"},
		{rows: 5, chunk: 10000, wantCommits: 1, wantShape: "IIIIIC"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("rows=%d/chunk=%d", tt.rows, tt.chunk), func(t *testing.T) {
			t.Parallel()

			sink := &recordSink{}
			src := rowsource.NewSlice([]string{"a", "b"}, nil, intRows(tt.rows))

			sum, err := InsertAll(context.Background(), sink, src, LoadOptions{Table: "t", ChunkSize: tt.chunk})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCommits, sink.commits())
			assert.Equal(t, tt.wantShape, sink.shape())
			assert.Equal(t, int64(tt.rows), sum.Rows)
			assert.Equal(t, int64(tt.wantCommits), sum.Commits)
		})
	}
}

func TestInsertAll_TwoColumnsChunkTwo(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	src := rowsource.NewSlice([]string{"a", "b"}, nil, []rowsource.Row{
		{int64(1), "x"},
		{int64(2), "y"},
		{int64(3), "z"},
	})

	_, err := InsertAll(context.Background(), sink, src, LoadOptions{Table: "t", ChunkSize: 2})
	require.NoError(t, err)

	stmt := "INSERT INTO t (a, b) VALUES (?, ?)"
	want := []op{
		{statement: stmt, args: []any{int64(1), "x"}},
		{statement: stmt, args: []any{int64(2), "y"}},
		{commit: true},
		{statement: stmt, args: []any{int64(3), "z"}},
		{commit: true},
	}
	assert.Equal(t, want, sink.ops)
}

func TestInsertAll_ExtraValuesAndDropColumns(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	src := rowsource.NewSlice([]string{"a", "b", "c"}, nil, []rowsource.Row{
		{int64(1), "x", 1.5},
	})

	_, err := InsertAll(context.Background(), sink, src, LoadOptions{
		Table:       "t",
		ChunkSize:   10,
		ExtraValues: []config.Pair{{Name: "src", Value: "loaderA"}},
		DropColumns: []string{"b", "not_there"},
	})
	require.NoError(t, err)

	require.Len(t, sink.ops, 2)
	assert.Equal(t, "INSERT INTO t (src, a, c) VALUES (?, ?, ?)", sink.ops[0].statement)
	assert.Equal(t, []any{"loaderA", int64(1), 1.5}, sink.ops[0].args)
}

func TestInsertAll_PostgresPlaceholders(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	src := rowsource.NewSlice([]string{"a", "b"}, nil, intRows(1))

	_, err := InsertAll(context.Background(), sink, src, LoadOptions{Table: "t", ChunkSize: 1, Dialect: ddl.Postgres})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", sink.ops[0].statement)
}

func TestInsertAll_ArgsNotShared(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	src := rowsource.NewSlice([]string{"a"}, nil, []rowsource.Row{{"first"}, {"second"}})

	_, err := InsertAll(context.Background(), sink, src, LoadOptions{Table: "t", ChunkSize: 5})
	require.NoError(t, err)
	assert.Equal(t, []any{"first"}, sink.ops[0].args)
	assert.Equal(t, []any{"second"}, sink.ops[1].args)
}

func TestInsertAll_ShortRowIsExecError(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	src := rowsource.NewSlice([]string{"a", "b"}, nil, []rowsource.Row{
		{int64(1), "x"},
		{int64(2)},
	})

	sum, err := InsertAll(context.Background(), sink, src, LoadOptions{Table: "t", ChunkSize: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExec)
	assert.Contains(t, err.Error(), "row 2")
	assert.Equal(t, int64(1), sum.Rows)
	assert.Equal(t, 0, sink.commits(), "the open chunk is left for the caller to roll back")
}

func TestInsertAll_ExecuteErrorPropagates(t *testing.T) {
	t.Parallel()

	sink := &recordSink{failOn: 3}
	src := rowsource.NewSlice([]string{"a", "b"}, nil, intRows(5))

	sum, err := InsertAll(context.Background(), sink, src, LoadOptions{Table: "t", ChunkSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExec)
	assert.Equal(t, int64(2), sum.Rows)
	assert.Equal(t, int64(1), sum.Commits)
	assert.Equal(t, "IIC", sink.shape())
}

func TestInsertAll_ConfigErrors(t *testing.T) {
	t.Parallel()

	src := rowsource.NewSlice([]string{"a"}, nil, nil)

	_, err := InsertAll(context.Background(), &recordSink{}, src, LoadOptions{Table: "t", ChunkSize: 0})
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = InsertAll(context.Background(), &recordSink{}, src, LoadOptions{Table: " ", ChunkSize: 1})
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestInsertAll_EverythingDropped(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	src := rowsource.NewSlice([]string{"a", "b"}, nil, []rowsource.Row{{int64(1), "x"}})

	_, err := InsertAll(context.Background(), sink, src, LoadOptions{
		Table:       "t",
		ChunkSize:   10,
		DropColumns: []string{"a", "b"},
	})
	require.ErrorIs(t, err, config.ErrConfig)
	assert.Empty(t, sink.ops)

	// a constant column alone is still a valid insert
	src = rowsource.NewSlice([]string{"a"}, nil, []rowsource.Row{{int64(1)}})
	_, err = InsertAll(context.Background(), sink, src, LoadOptions{
		Table:       "t",
		ChunkSize:   10,
		DropColumns: []string{"a"},
		ExtraValues: []config.Pair{{Name: "src", Value: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (src) VALUES (?)", sink.ops[0].statement)
}

type failingSource struct {
	*rowsource.Slice
	err error
}

func (f failingSource) Next() (rowsource.Row, error) { return nil, f.err }

func TestInsertAll_SourceErrorPropagates(t *testing.T) {
	t.Parallel()

	readErr := errors.New("line 4: bad value")
	src := failingSource{Slice: rowsource.NewSlice([]string{"a"}, nil, nil), err: readErr}

	_, err := InsertAll(context.Background(), &recordSink{}, src, LoadOptions{Table: "t", ChunkSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestInsertAll_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := rowsource.NewSlice([]string{"a", "b"}, nil, intRows(3))
	_, err := InsertAll(ctx, &recordSink{}, src, LoadOptions{Table: "t", ChunkSize: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInsertAll_FingerprintStable(t *testing.T) {
	t.Parallel()

	run := func(rows []rowsource.Row, chunk int) uint64 {
		src := rowsource.NewSlice([]string{"a", "b"}, nil, rows)
		sum, err := InsertAll(context.Background(), &recordSink{}, src, LoadOptions{Table: "t", ChunkSize: chunk})
		require.NoError(t, err)
		return sum.Fingerprint
	}

	base := run(intRows(5), 2)
	assert.Equal(t, base, run(intRows(5), 2))
	assert.Equal(t, base, run(intRows(5), 100), "chunking does not change what is inserted")
	assert.NotEqual(t, base, run(intRows(4), 2))

	typed := run([]rowsource.Row{{int64(1), "x"}}, 1)
	untyped := run([]rowsource.Row{{"1", "x"}}, 1)
	assert.NotEqual(t, typed, untyped)
}

func TestClearTable(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	require.NoError(t, ClearTable(context.Background(), sink, "t"))
	assert.Equal(t, []op{{statement: "DELETE FROM t"}, {commit: true}}, sink.ops)

	assert.ErrorIs(t, ClearTable(context.Background(), sink, ""), config.ErrConfig)

	failing := &recordSink{failOn: 1}
	err := ClearTable(context.Background(), failing, "t")
	assert.ErrorIs(t, err, ErrExec)
	assert.Equal(t, 0, failing.commits())
}

func TestInsertableColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "c"}, InsertableColumns([]string{"a", "b", "c"}, []string{"b"}))
	assert.Equal(t, []string{"a", "b"}, InsertableColumns([]string{"a", "b"}, nil))
	assert.Empty(t, InsertableColumns([]string{"a"}, []string{"a"}))
}
