package fsdb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer emits tab-separated FSDB.
type Writer struct {
	w       *bufio.Writer
	columns int
}

var flatten = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// NewWriter writes the header for columns. Whitespace inside a column name
// becomes "_" so the header stays parseable.
func NewWriter(w io.Writer, columns []string) (*Writer, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("fsdb: writer needs at least one column")
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = strings.Join(strings.Fields(c), "_")
		if names[i] == "" {
			names[i] = "column" + strconv.Itoa(i+1)
		}
	}

	fw := &Writer{w: bufio.NewWriter(w), columns: len(columns)}
	if _, err := fw.w.WriteString(headerTag + " -F t " + strings.Join(names, " ") + "\n"); err != nil {
		return nil, fmt.Errorf("fsdb: write header: %w", err)
	}
	return fw, nil
}

// Write emits one row. nil and empty strings are written as "-"; embedded
// tabs and newlines become spaces.
func (fw *Writer) Write(row []any) error {
	var sb strings.Builder
	for i, v := range row {
		if i > 0 {
			sb.WriteByte('\t')
		}
		sb.WriteString(FormatValue(v))
	}
	sb.WriteByte('\n')
	if _, err := fw.w.WriteString(sb.String()); err != nil {
		return fmt.Errorf("fsdb: write row: %w", err)
	}
	return nil
}

// Close writes an optional trailer comment and flushes. It does not close the
// underlying writer.
func (fw *Writer) Close(comment string) error {
	if comment != "" {
		if _, err := fw.w.WriteString("# " + flatten.Replace(comment) + "\n"); err != nil {
			return fmt.Errorf("fsdb: write trailer: %w", err)
		}
	}
	if err := fw.w.Flush(); err != nil {
		return fmt.Errorf("fsdb: flush: %w", err)
	}
	return nil
}

// FormatValue renders v as a single FSDB field. nil, "" and "-" all render
// as Empty.
func FormatValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return Empty
	case string:
		s = x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return Empty
	}
	return flatten.Replace(s)
}
