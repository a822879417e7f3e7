// Package schema decides the destination SQL type of every source column.
//
// Resolution is pure and total. For a column name the precedence is:
//
//  1. a user override (name=type converter),
//  2. the native type the row source inferred, mapped through
//     rowsource.NativeType.SQLType,
//  3. the generic string type.
package schema

import (
	"tabload/internal/rowsource"
)

// DefaultType is the generic string type every column falls back to.
const DefaultType = "string"

// TypeSource is the slice of rowsource.Source the resolver needs.
type TypeSource interface {
	NativeType(name string) (rowsource.NativeType, bool)
}

// Resolver maps column names to SQL type strings.
type Resolver struct {
	overrides map[string]string
	src       TypeSource
}

// NewResolver returns a Resolver. overrides and src may both be nil.
func NewResolver(overrides map[string]string, src TypeSource) *Resolver {
	return &Resolver{overrides: overrides, src: src}
}

// Resolve returns the SQL type for column.
func (r *Resolver) Resolve(column string) string {
	if t, ok := r.overrides[column]; ok && t != "" {
		return t
	}
	if r.src != nil {
		if nt, ok := r.src.NativeType(column); ok {
			return nt.SQLType()
		}
	}
	return DefaultType
}

// Column is a source column paired with its resolved type.
type Column struct {
	Name string
	Type string
}

// ResolveAll resolves columns in order.
func (r *Resolver) ResolveAll(columns []string) []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		out[i] = Column{Name: c, Type: r.Resolve(c)}
	}
	return out
}
