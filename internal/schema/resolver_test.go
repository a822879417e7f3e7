package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tabload/internal/rowsource"
)

type fakeTypes map[string]rowsource.NativeType

func (f fakeTypes) NativeType(name string) (rowsource.NativeType, bool) {
	t, ok := f[name]
	return t, ok
}

// TestResolvePrecedence checks override > native > fallback for every column.
func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	native := fakeTypes{
		"id":    rowsource.Integer,
		"name":  rowsource.Text,
		"score": rowsource.Real,
		"flag":  rowsource.Other,
	}
	overrides := map[string]string{
		"id":      "bigint",
		"comment": "text",
	}
	r := NewResolver(overrides, native)

	tests := []struct {
		column string
		want   string
	}{
		{"id", "bigint"},      // override beats native
		{"comment", "text"},   // override without native
		{"name", "string"},    // native text
		{"score", "float"},    // native real
		{"flag", "string"},    // unmapped native
		{"missing", "string"}, // fallback
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(tt.column), "Resolve(%q)", tt.column)
	}
}

func TestResolveWithoutSource(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, nil)
	assert.Equal(t, DefaultType, r.Resolve("anything"))
}

// TestResolveAllKeepsOrder verifies the provisioner gets columns back in the
// order the source declared them.
func TestResolveAllKeepsOrder(t *testing.T) {
	t.Parallel()

	r := NewResolver(map[string]string{"b": "integer"}, fakeTypes{"a": rowsource.Integer})
	got := r.ResolveAll([]string{"b", "a", "c"})
	assert.Equal(t, []Column{
		{Name: "b", Type: "integer"},
		{Name: "a", Type: "integer"},
		{Name: "c", Type: "string"},
	}, got)
}
