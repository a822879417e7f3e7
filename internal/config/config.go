// Package config defines the configuration model for a single tabload
// invocation and the parsers for the name=value lists accepted on the command
// line (type converters, extra columns, extra values).
//
// Everything here is pure: parsing and validation never touch the input or
// the destination store, so configuration errors surface before any I/O.
//
// Example (YAML config file, all keys optional):
//
//	database_type: sqlite3
//	table: fsdb_table
//	converters: ["count=integer"]
//	indexes: ["a,b"]
//	extra_columns: ["src=string"]
//	extra_values: ["src=loaderA"]
//	chunk_size: 10000
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig is the root of every configuration error. Callers test for it
// with errors.Is to distinguish misconfiguration from I/O failures.
var ErrConfig = errors.New("configuration error")

const (
	// DefaultTable is the destination table used when none is configured.
	DefaultTable = "fsdb_table"

	// DefaultChunkSize is the number of rows committed per transaction.
	DefaultChunkSize = 10000

	// DefaultDatabaseType selects the sqlite3 sink.
	DefaultDatabaseType = "sqlite3"
)

// Load is the full description of one load invocation.
type Load struct {
	// Job labels metrics and log lines. Defaults to the table name.
	Job string `mapstructure:"job" json:"job" yaml:"job"`

	// Input is a path, "-" for stdin, or an http(s) URL.
	Input string `mapstructure:"input" json:"input" yaml:"input"`

	// InputFormat is "fsdb", "json" or "auto" (decided by file extension).
	InputFormat string `mapstructure:"input_format" json:"input_format" yaml:"input_format"`

	// Output is the sqlite3 path or the DSN of the destination store. For the
	// print backend it is an optional file (stdout when empty).
	Output string `mapstructure:"output" json:"output" yaml:"output"`

	// DatabaseType selects the sink backend (sqlite3, pg, maria, print).
	DatabaseType string `mapstructure:"database_type" json:"database_type" yaml:"database_type"`

	Table string `mapstructure:"table" json:"table" yaml:"table"`

	// Converters are name=type overrides for column types.
	Converters []string `mapstructure:"converters" json:"converters" yaml:"converters"`

	// Indexes are comma-joined column lists, one index each.
	Indexes []string `mapstructure:"indexes" json:"indexes" yaml:"indexes"`

	// ExtraColumns are name=type columns prepended to CREATE TABLE.
	ExtraColumns []string `mapstructure:"extra_columns" json:"extra_columns" yaml:"extra_columns"`

	// ExtraValues are name=value constants prepended to every inserted row.
	ExtraValues []string `mapstructure:"extra_values" json:"extra_values" yaml:"extra_values"`

	// DropColumns are source columns excluded from the INSERT.
	DropColumns []string `mapstructure:"drop_columns" json:"drop_columns" yaml:"drop_columns"`

	// Delete clears the table before loading.
	Delete bool `mapstructure:"delete" json:"delete" yaml:"delete"`

	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size" yaml:"chunk_size"`

	// NormalizeNames folds JSON keys into SQL-friendly column names.
	NormalizeNames bool `mapstructure:"normalize_names" json:"normalize_names" yaml:"normalize_names"`

	LogLevel string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`

	Metrics Metrics `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `mapstructure:"backend" json:"backend" yaml:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url" json:"pushgateway_url" yaml:"pushgateway_url"`
	StatsdAddr     string `mapstructure:"statsd_addr" json:"statsd_addr" yaml:"statsd_addr"`
}

// Default returns a Load populated with the documented defaults.
func Default() Load {
	return Load{
		InputFormat:  "auto",
		DatabaseType: DefaultDatabaseType,
		Table:        DefaultTable,
		ChunkSize:    DefaultChunkSize,
		LogLevel:     "info",
		Metrics:      Metrics{Backend: "none"},
	}
}

// JobName returns the configured job label, falling back to the table name.
func (l Load) JobName() string {
	if strings.TrimSpace(l.Job) != "" {
		return l.Job
	}
	return l.Table
}

// Pair is one parsed name=value entry.
type Pair struct {
	Name  string
	Value string
}

// ParsePair splits spec on the first '='. A missing separator or an empty
// name is a configuration error. The value may itself contain '='.
func ParsePair(spec string) (Pair, error) {
	name, value, ok := strings.Cut(spec, "=")
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q is not in name=value form", ErrConfig, spec)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Pair{}, fmt.Errorf("%w: %q has an empty name", ErrConfig, spec)
	}
	return Pair{Name: name, Value: value}, nil
}

// ParsePairs parses every spec in order, stopping at the first malformed one.
func ParsePairs(specs []string) ([]Pair, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]Pair, 0, len(specs))
	for _, s := range specs {
		p, err := ParsePair(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseTypes parses name=type converter specs into an override map. Later
// entries for the same name win.
func ParseTypes(specs []string) (map[string]string, error) {
	pairs, err := ParsePairs(specs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		typ := strings.TrimSpace(p.Value)
		if typ == "" {
			return nil, fmt.Errorf("%w: converter for %q has an empty type", ErrConfig, p.Name)
		}
		out[p.Name] = typ
	}
	return out, nil
}

// ParseIndex splits a comma-joined index spec into trimmed column names.
func ParseIndex(spec string) ([]string, error) {
	parts := strings.Split(spec, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: index %q has an empty column", ErrConfig, spec)
		}
		cols = append(cols, p)
	}
	return cols, nil
}
