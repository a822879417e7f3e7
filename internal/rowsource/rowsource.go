// Package rowsource defines the contract every tabular input satisfies: an
// ordered column list, per-column native type inference, name-to-position
// resolution, and a lazy, non-restartable sequence of positional rows.
//
// Parsers (FSDB, JSON lines) implement Source; the loader consumes it without
// knowing where the rows came from.
package rowsource

import (
	"fmt"
	"io"
)

// Row is one record, aligned positionally with Source.ColumnNames.
type Row []any

// Source is a streaming table. Next returns io.EOF once the rows are
// exhausted; a Source cannot be rewound.
type Source interface {
	// ColumnNames returns the ordered header. Callers must not mutate it.
	ColumnNames() []string

	// NativeType reports the type the source inferred for a column, if any.
	NativeType(name string) (NativeType, bool)

	// ColumnNumbers resolves names to positions in ColumnNames order of the
	// request. An unknown name is an error.
	ColumnNumbers(names []string) ([]int, error)

	// Next returns the next row or io.EOF.
	Next() (Row, error)
}

// NativeType is the closed set of value kinds a source can report.
type NativeType int

const (
	// Other covers any tag the source knows but the loader has no mapping for.
	Other NativeType = iota
	Integer
	Text
	Real
)

// SQLType maps a native type to the generic SQL type name used in CREATE
// TABLE statements. Unmapped kinds fall back to the generic string type.
func (t NativeType) SQLType() string {
	switch t {
	case Integer:
		return "integer"
	case Text:
		return "string"
	case Real:
		return "float"
	case Other:
		return "string"
	default:
		return "string"
	}
}

func (t NativeType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Text:
		return "text"
	case Real:
		return "real"
	default:
		return "other"
	}
}

// Index is a reusable name -> position lookup built once from a header.
type Index map[string]int

// NewIndex builds an Index. When a name repeats, the first position wins.
func NewIndex(columns []string) Index {
	idx := make(Index, len(columns))
	for i, c := range columns {
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return idx
}

// Positions resolves names to positions.
func (idx Index) Positions(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		pos, ok := idx[n]
		if !ok {
			return nil, fmt.Errorf("rowsource: unknown column %q", n)
		}
		out[i] = pos
	}
	return out, nil
}

// Slice is an in-memory Source, mostly useful for tests and small tools.
type Slice struct {
	columns []string
	types   map[string]NativeType
	rows    []Row
	index   Index
	next    int
}

// NewSlice returns a Source over rows. types may be nil.
func NewSlice(columns []string, types map[string]NativeType, rows []Row) *Slice {
	return &Slice{
		columns: columns,
		types:   types,
		rows:    rows,
		index:   NewIndex(columns),
	}
}

func (s *Slice) ColumnNames() []string { return s.columns }

func (s *Slice) NativeType(name string) (NativeType, bool) {
	t, ok := s.types[name]
	return t, ok
}

func (s *Slice) ColumnNumbers(names []string) ([]int, error) {
	return s.index.Positions(names)
}

func (s *Slice) Next() (Row, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.next]
	s.next++
	return r, nil
}

// Drain reads every remaining row. It is meant for tests and small inputs.
func Drain(src Source) ([]Row, error) {
	var out []Row
	for {
		r, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}
