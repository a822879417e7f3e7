// Package etl runs one load end to end against an already opened sink:
// resolve column types, provision the table, optionally clear it, then
// bulk-insert every row. Each step is timed and reported to metrics.
package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tabload/internal/config"
	"tabload/internal/ddl"
	"tabload/internal/metrics"
	"tabload/internal/rowsource"
	"tabload/internal/schema"
	"tabload/internal/storage"
)

// Step names used as the "step" metrics label.
const (
	StepResolve   = "resolve"
	StepProvision = "provision"
	StepClear     = "clear"
	StepInsert    = "insert"
)

// Params bundles what Run needs. The caller owns Sink and Source.
type Params struct {
	Sink    storage.Sink
	Dialect ddl.Dialect
	Source  rowsource.Source
	Load    config.Load
	Logger  *zap.Logger
}

// Plan is the parsed, source-independent part of a load.
type Plan struct {
	Overrides    map[string]string
	ExtraColumns []config.Pair
	ExtraValues  []config.Pair
}

// NewPlan parses the name=value lists of l. Every error wraps config.ErrConfig.
func NewPlan(l config.Load) (Plan, error) {
	overrides, err := config.ParseTypes(l.Converters)
	if err != nil {
		return Plan{}, fmt.Errorf("converters: %w", err)
	}
	extraCols, err := config.ParsePairs(l.ExtraColumns)
	if err != nil {
		return Plan{}, fmt.Errorf("extra columns: %w", err)
	}
	extraVals, err := config.ParsePairs(l.ExtraValues)
	if err != nil {
		return Plan{}, fmt.Errorf("extra values: %w", err)
	}
	return Plan{Overrides: overrides, ExtraColumns: extraCols, ExtraValues: extraVals}, nil
}

// Run executes resolve, provision, clear (when l.Delete) and insert in that
// order and returns the insert summary. The first failing step aborts the run.
func Run(ctx context.Context, p Params) (storage.Summary, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	l := p.Load
	job := l.JobName()

	var spec ddl.TableSpec
	var plan Plan
	err := timed(job, StepResolve, func() error {
		var err error
		plan, err = NewPlan(l)
		if err != nil {
			return err
		}
		columns := p.Source.ColumnNames()
		if len(storage.InsertableColumns(columns, l.DropColumns))+len(plan.ExtraValues) == 0 {
			return fmt.Errorf("%w: no columns left to insert into %s", config.ErrConfig, l.Table)
		}
		resolver := schema.NewResolver(plan.Overrides, p.Source)
		spec, err = ddl.FromColumns(l.Table, columns, resolver, plan.ExtraColumns, l.Indexes)
		return err
	})
	if err != nil {
		return storage.Summary{}, fmt.Errorf("resolve: %w", err)
	}
	for _, c := range spec.AllColumns() {
		logger.Debug("column", zap.String("name", c.Name), zap.String("type", c.SQLType))
	}

	err = timed(job, StepProvision, func() error {
		return ddl.CreateTable(ctx, p.Sink, spec, p.Dialect, logger)
	})
	if err != nil {
		return storage.Summary{}, fmt.Errorf("provision %s: %w", l.Table, err)
	}

	if l.Delete {
		err = timed(job, StepClear, func() error {
			return storage.ClearTable(ctx, p.Sink, l.Table)
		})
		if err != nil {
			return storage.Summary{}, fmt.Errorf("clear %s: %w", l.Table, err)
		}
		logger.Info("table cleared", zap.String("table", l.Table))
	}

	var sum storage.Summary
	err = timed(job, StepInsert, func() error {
		var err error
		sum, err = storage.InsertAll(ctx, p.Sink, p.Source, storage.LoadOptions{
			Table:       l.Table,
			ExtraValues: plan.ExtraValues,
			ChunkSize:   l.ChunkSize,
			DropColumns: l.DropColumns,
			Dialect:     p.Dialect,
			Job:         job,
			Logger:      logger,
		})
		return err
	})
	if err != nil {
		return sum, fmt.Errorf("insert into %s: %w", l.Table, err)
	}

	logger.Info("load complete",
		zap.String("table", l.Table),
		zap.Int64("rows", sum.Rows),
		zap.Int64("commits", sum.Commits),
		zap.String("fingerprint", fmt.Sprintf("%016x", sum.Fingerprint)),
		zap.Duration("elapsed", sum.Elapsed.Truncate(time.Millisecond)),
	)
	return sum, nil
}

func timed(job, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, step, err, time.Since(start))
	return err
}
