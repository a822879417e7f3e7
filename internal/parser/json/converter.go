// Package json converts line-oriented JSON into a tabular row stream.
//
// Each non-blank input line holds one JSON value: an object, or an array of
// objects. The header is the key order of the very first object; every later
// record contributes its values in its own key order, so records are expected
// to share the first record's layout.
//
//	{"x": 1, "y": "a"}
//	[{"x": 2, "y": "b"}, {"x": 3, "y": "c"}]
//
// Column types come from the first record: an integer makes the column
// Integer, any other number Real, and everything else Text. A column whose
// first value is null reports no type and resolves to the generic string type.
//
// Values: integers become int64 and other numbers float64 in numeric columns.
// Every other non-null value is bound as a string (booleans as "true" and
// "false", nested objects and arrays as compact JSON text), so a text column
// never receives a number. null is nil.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"tabload/internal/rowsource"
)

// Options tunes the converter.
type Options struct {
	// NormalizeNames folds header keys into lowercase ASCII identifiers.
	NormalizeNames bool
}

// Converter is a rowsource.Source over JSON lines.
type Converter struct {
	br   *bufio.Reader
	line int

	columns []string
	index   rowsource.Index

	// kinds holds the first record's value kind per column; typed marks the
	// columns whose first value was not null.
	kinds []rowsource.NativeType
	typed []bool

	pending []rowsource.Row
}

var _ rowsource.Source = (*Converter)(nil)

// field is one key/value pair, in document order.
type field struct {
	key   string
	value any
}

// NewConverter reads up to the first record to establish the header. Input
// with no records yields a Converter with no columns.
func NewConverter(r io.Reader, opts Options) (*Converter, error) {
	c := &Converter{br: bufio.NewReaderSize(r, 64*1024)}

	var records [][]field
	for len(records) == 0 {
		var err error
		records, err = c.nextRecords()
		if errors.Is(err, io.EOF) {
			c.index = rowsource.NewIndex(nil)
			return c, nil
		}
		if err != nil {
			return nil, err
		}
	}

	first := records[0]
	c.columns = make([]string, len(first))
	c.kinds = make([]rowsource.NativeType, len(first))
	c.typed = make([]bool, len(first))
	for i, f := range first {
		c.columns[i] = f.key
		c.kinds[i], c.typed[i] = kindOf(f.value)
	}
	if opts.NormalizeNames {
		c.columns = NormalizeNames(c.columns)
	}
	c.index = rowsource.NewIndex(c.columns)
	c.pending = c.toRows(records)
	return c, nil
}

func (c *Converter) ColumnNames() []string { return c.columns }

// NativeType reports the kind of the first record's value for name. Columns
// whose first value was null report false.
func (c *Converter) NativeType(name string) (rowsource.NativeType, bool) {
	i, ok := c.index[name]
	if !ok || !c.typed[i] {
		return rowsource.Other, false
	}
	return c.kinds[i], true
}

func (c *Converter) ColumnNumbers(names []string) ([]int, error) {
	return c.index.Positions(names)
}

// Next returns the next record's values in its own key order.
func (c *Converter) Next() (rowsource.Row, error) {
	for len(c.pending) == 0 {
		records, err := c.nextRecords()
		if err != nil {
			return nil, err
		}
		c.pending = c.toRows(records)
	}
	row := c.pending[0]
	c.pending = c.pending[1:]
	return row, nil
}

// kindOf maps a decoded value to its column kind. null carries no kind.
func kindOf(v any) (rowsource.NativeType, bool) {
	switch v.(type) {
	case nil:
		return rowsource.Other, false
	case int64:
		return rowsource.Integer, true
	case float64:
		return rowsource.Real, true
	default:
		return rowsource.Text, true
	}
}

func (c *Converter) numeric(pos int) bool {
	if pos >= len(c.kinds) || !c.typed[pos] {
		return false
	}
	return c.kinds[pos] == rowsource.Integer || c.kinds[pos] == rowsource.Real
}

// toRows lays records out by position. Numbers keep their Go type only in
// numeric columns; everything else non-null becomes a string.
func (c *Converter) toRows(records [][]field) []rowsource.Row {
	rows := make([]rowsource.Row, len(records))
	for i, rec := range records {
		row := make(rowsource.Row, len(rec))
		for j, f := range rec {
			row[j] = c.bindValue(j, f.value)
		}
		rows[i] = row
	}
	return rows
}

func (c *Converter) bindValue(pos int, v any) any {
	switch x := v.(type) {
	case int64:
		if c.numeric(pos) {
			return x
		}
		return strconv.FormatInt(x, 10)
	case float64:
		if c.numeric(pos) {
			return x
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return v
	}
}

// nextRecords decodes the next non-blank line. It returns io.EOF when the
// input is exhausted.
func (c *Converter) nextRecords() ([][]field, error) {
	for {
		raw, err := c.br.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("json: read line %d: %w", c.line+1, err)
		}
		c.line++
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			if err != nil {
				return nil, io.EOF
			}
			continue
		}
		records, derr := decodeLine(raw)
		if derr != nil {
			return nil, fmt.Errorf("json: line %d: %w", c.line, derr)
		}
		return records, nil
	}
}

// decodeLine parses one line holding an object or an array of objects. A
// value cut short by the end of the line is io.ErrUnexpectedEOF, never io.EOF,
// so a damaged line cannot pass for the end of the input.
func decodeLine(line []byte) ([][]field, error) {
	out, err := parseLine(line)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("truncated JSON value: %w", io.ErrUnexpectedEOF)
	}
	return out, err
}

func parseLine(line []byte) ([][]field, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	var out [][]field
	switch tok {
	case json.Delim('{'):
		rec, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	case json.Delim('['):
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if t != json.Delim('{') {
				return nil, fmt.Errorf("array element %d is not an object", len(out))
			}
			rec, err := decodeObject(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if _, err := dec.Token(); err != nil { // ']'
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expected an object or an array of objects, got %v", tok)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return out, nil
}

// decodeObject reads the members of an object whose '{' was already
// consumed, through the closing '}'.
func decodeObject(dec *json.Decoder) ([]field, error) {
	var rec []field
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", t)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		v, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		rec = append(rec, field{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil { // '}'
		return nil, err
	}
	return rec, nil
}

// scalar converts one raw member value.
func scalar(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}
	switch raw[0] {
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	default:
		n := json.Number(raw)
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return i, nil
		}
		return n.Float64()
	}
}
