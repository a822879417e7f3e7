// Package config provides configuration models and helpers for load runs.
//
// This file adds a lightweight linter for Load values. It performs static
// checks and returns a list of issues (errors and warnings) that the CLI
// surfaces before opening anything.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to the operator but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path names the offending setting (e.g. "converters[1]", "chunk_size").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate lints l without mutating it. knownKinds lists the registered sink
// backends; when empty the database type is not checked.
func Validate(l Load, knownKinds []string) []Issue {
	var issues []Issue

	if strings.TrimSpace(l.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "table",
			Message:  "table must not be empty",
		})
	}
	if l.ChunkSize < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "chunk_size",
			Message:  fmt.Sprintf("chunk_size must be >= 1, got %d", l.ChunkSize),
		})
	}

	issues = append(issues, validateBackend(l, knownKinds)...)
	issues = append(issues, validatePairs("converters", l.Converters)...)
	issues = append(issues, validatePairs("extra_columns", l.ExtraColumns)...)
	issues = append(issues, validatePairs("extra_values", l.ExtraValues)...)
	issues = append(issues, validateIndexes(l.Indexes)...)
	issues = append(issues, validateExtras(l)...)

	switch l.InputFormat {
	case "", "auto", "fsdb", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input_format",
			Message:  fmt.Sprintf("unknown input format %q (want fsdb, json or auto)", l.InputFormat),
		})
	}

	return issues
}

func validateBackend(l Load, knownKinds []string) []Issue {
	kind := strings.TrimSpace(l.DatabaseType)
	if kind == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "database_type",
			Message:  "no database type selected",
		}}
	}
	if len(knownKinds) > 0 {
		found := false
		for _, k := range knownKinds {
			if k == kind {
				found = true
				break
			}
		}
		if !found {
			return []Issue{{
				Severity: SeverityError,
				Path:     "database_type",
				Message:  fmt.Sprintf("unsupported database type %q (known: %s)", kind, strings.Join(knownKinds, ", ")),
			}}
		}
	}
	if kind != "print" && strings.TrimSpace(l.Output) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "output",
			Message:  fmt.Sprintf("database type %q requires an output database", kind),
		}}
	}
	return nil
}

func validatePairs(path string, specs []string) []Issue {
	var issues []Issue
	for i, s := range specs {
		if _, err := ParsePair(s); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s[%d]", path, i),
				Message:  strings.TrimPrefix(err.Error(), ErrConfig.Error()+": "),
			})
		}
	}
	return issues
}

func validateIndexes(specs []string) []Issue {
	var issues []Issue
	for i, s := range specs {
		if _, err := ParseIndex(s); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("indexes[%d]", i),
				Message:  strings.TrimPrefix(err.Error(), ErrConfig.Error()+": "),
			})
		}
	}
	return issues
}

// validateExtras warns when extra values name a column that no extra column
// declares. The insert still runs; the column may already exist in the table.
func validateExtras(l Load) []Issue {
	declared := map[string]struct{}{}
	for _, s := range l.ExtraColumns {
		if p, err := ParsePair(s); err == nil {
			declared[p.Name] = struct{}{}
		}
	}
	var issues []Issue
	for i, s := range l.ExtraValues {
		p, err := ParsePair(s)
		if err != nil {
			continue
		}
		if _, ok := declared[p.Name]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("extra_values[%d]", i),
				Message:  fmt.Sprintf("extra value %q has no matching extra column; the table must already have it", p.Name),
			})
		}
	}
	return issues
}

// Err folds the error-severity issues into a single ErrConfig-wrapped error,
// or returns nil when there are none.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}
