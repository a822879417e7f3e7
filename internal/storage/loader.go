package storage

// This file implements the chunked bulk loader and the table clearer. Both
// speak only to the Sink contract, so the same code drives a real database
// and the dry-run printer.
//
// Logging: on every commit a progress line is emitted with running totals and
// rows/sec since the previous commit.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"tabload/internal/config"
	"tabload/internal/ddl"
	"tabload/internal/metrics"
	"tabload/internal/rowsource"
)

// LoadOptions configures InsertAll.
type LoadOptions struct {
	Table string

	// ExtraValues are constants bound ahead of every row, in order.
	ExtraValues []config.Pair

	// ChunkSize is the number of rows per transaction. Must be >= 1.
	ChunkSize int

	// DropColumns are source columns left out of the INSERT.
	DropColumns []string

	// Dialect renders the placeholders. The zero value is ddl.Generic.
	Dialect ddl.Dialect

	// Job labels metrics; defaults to Table.
	Job string

	Logger *zap.Logger
}

// Summary describes a finished (or aborted) load.
type Summary struct {
	Rows    int64
	Commits int64

	// Fingerprint is an xxh3 digest of the INSERT text and every bound value
	// in order. A dry run and a real run over the same input agree.
	Fingerprint uint64

	Elapsed time.Duration
}

// InsertableColumns returns columns minus drop, in source order.
func InsertableColumns(columns, drop []string) []string {
	dropped := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		dropped[d] = struct{}{}
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := dropped[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// InsertAll streams every row of src into opts.Table through sink.
//
// Row n (0-based) is preceded by a commit whenever n > 0 and n is a multiple
// of ChunkSize, and a final commit always follows the last row. R >= 1 rows
// therefore produce ceil(R/ChunkSize) commits; an empty source produces one.
//
// Column positions are resolved once. A row too short for a resolved position
// is an ErrExec data error. On error the returned Summary reflects the rows
// executed so far; rows after the last commit are not durable.
func InsertAll(ctx context.Context, sink Sink, src rowsource.Source, opts LoadOptions) (Summary, error) {
	start := time.Now()
	var sum Summary

	if opts.ChunkSize < 1 {
		return sum, fmt.Errorf("%w: chunk size must be >= 1, got %d", config.ErrConfig, opts.ChunkSize)
	}
	if strings.TrimSpace(opts.Table) == "" {
		return sum, fmt.Errorf("%w: table name must not be empty", config.ErrConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	job := opts.Job
	if job == "" {
		job = opts.Table
	}

	cols := InsertableColumns(src.ColumnNames(), opts.DropColumns)
	if len(cols)+len(opts.ExtraValues) == 0 {
		return sum, fmt.Errorf("%w: no columns left to insert into %s", config.ErrConfig, opts.Table)
	}
	positions, err := src.ColumnNumbers(cols)
	if err != nil {
		return sum, fmt.Errorf("storage: resolve columns: %w", err)
	}

	names := make([]string, 0, len(opts.ExtraValues)+len(cols))
	extras := make([]any, 0, len(opts.ExtraValues))
	for _, p := range opts.ExtraValues {
		names = append(names, p.Name)
		extras = append(extras, p.Value)
	}
	names = append(names, cols...)
	stmt := ddl.BuildInsertSQL(opts.Table, names, opts.Dialect)
	logger.Debug("insert plan", zap.String("statement", stmt), zap.Int("chunk_size", opts.ChunkSize))

	fp := xxh3.New()
	_, _ = fp.WriteString(stmt)

	var (
		lastCommit   = start
		rowsAtCommit int64
	)
	commit := func() error {
		if err := sink.Commit(ctx); err != nil {
			return fmt.Errorf("storage: commit after row %d: %w", sum.Rows, err)
		}
		sum.Commits++

		now := time.Now()
		inChunk := sum.Rows - rowsAtCommit
		sinceLast := now.Sub(lastCommit)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(inChunk) / sinceLast.Seconds()
		}
		logger.Info(fmt.Sprintf("chunk #%d committed", sum.Commits),
			zap.Float64("rps", rps),
			zap.Int64("inserted", inChunk),
			zap.Int64("total_inserted", sum.Rows),
			zap.Duration("elapsed", now.Sub(start).Truncate(time.Millisecond)),
			zap.Duration("since_last", sinceLast.Truncate(time.Millisecond)),
		)
		metrics.RecordBatches(job, 1)
		metrics.RecordRow(job, "inserted", inChunk)

		lastCommit = now
		rowsAtCommit = sum.Rows
		return nil
	}

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("storage: read row %d: %w", n+1, err)
		}

		if n > 0 && n%opts.ChunkSize == 0 {
			if err := commit(); err != nil {
				sum.Elapsed = time.Since(start)
				return sum, err
			}
		}

		args := make([]any, 0, len(names))
		args = append(args, extras...)
		for i, p := range positions {
			if p >= len(row) {
				sum.Elapsed = time.Since(start)
				return sum, fmt.Errorf("%w: row %d has %d values, column %s needs position %d",
					ErrExec, n+1, len(row), cols[i], p)
			}
			args = append(args, row[p])
		}
		if err := sink.Execute(ctx, stmt, args...); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("storage: insert row %d: %w", n+1, err)
		}
		writeFingerprint(fp, args)
		sum.Rows++
	}

	if err := commit(); err != nil {
		sum.Elapsed = time.Since(start)
		return sum, err
	}
	sum.Fingerprint = fp.Sum64()
	sum.Elapsed = time.Since(start)
	return sum, nil
}

// writeFingerprint feeds one row into h. Values are tagged with their Go type
// so "1" and 1 do not collide.
func writeFingerprint(h *xxh3.Hasher, args []any) {
	_, _ = h.WriteString("\x1e")
	for _, v := range args {
		_, _ = fmt.Fprintf(h, "%T=%v\x1f", v, v)
	}
}

// ClearTable deletes every row of table and commits.
func ClearTable(ctx context.Context, sink Sink, table string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("%w: table name must not be empty", config.ErrConfig)
	}
	if err := sink.Execute(ctx, ddl.BuildDeleteSQL(table)); err != nil {
		return fmt.Errorf("storage: clear %s: %w", table, err)
	}
	if err := sink.Commit(ctx); err != nil {
		return fmt.Errorf("storage: clear %s: %w", table, err)
	}
	return nil
}
