// Package fsdb reads and writes FSDB, a flat-file table format: a "#fsdb"
// header line naming the columns (optionally typed as name:code), data rows
// split on a declared separator, and "#" comment lines anywhere.
//
//	#fsdb -F t id:l name:a score:d
//	1	alice	0.5
//	2	bob	-
//	# | produced by some-command
//
// Separators (-F): t tab, s single space, S double space, C<x> the character
// x, D (the default) any run of whitespace. The value "-" is empty and reads
// as nil.
//
// FSDB has no escaping, so the writer spells both an empty string and a
// literal "-" as "-". Reading such a file back yields nil for both.
package fsdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tabload/internal/rowsource"
)

// Empty is the FSDB spelling of an empty value.
const Empty = "-"

const headerTag = "#fsdb"

// kind is the conversion applied to a column's values.
type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
)

// typeCode maps an FSDB type code to a conversion and native type.
func typeCode(code string) (kind, rowsource.NativeType) {
	switch code {
	case "i", "I", "l", "q", "Q", "z", "Z":
		return kindInt, rowsource.Integer
	case "f", "d", "g":
		return kindFloat, rowsource.Real
	case "a", "c", "S":
		return kindString, rowsource.Text
	default:
		return kindString, rowsource.Other
	}
}

// Reader is a rowsource.Source over an FSDB stream.
type Reader struct {
	br   *bufio.Reader
	line int

	split func(string) []string
	// sepName is the header's -F code ("D" when none was given).
	sepName string

	columns []string
	kinds   []kind
	native  map[string]rowsource.NativeType
	index   rowsource.Index
}

var _ rowsource.Source = (*Reader)(nil)

// NewReader reads the header from r. A missing or malformed header is an
// error.
func NewReader(r io.Reader) (*Reader, error) {
	fr := &Reader{br: bufio.NewReaderSize(r, 64*1024)}
	line, err := fr.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("fsdb: empty input, expected %s header", headerTag)
		}
		return nil, fmt.Errorf("fsdb: read header: %w", err)
	}
	if err := fr.parseHeader(line); err != nil {
		return nil, fmt.Errorf("fsdb: line %d: %w", fr.line, err)
	}
	return fr, nil
}

func (fr *Reader) parseHeader(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != headerTag {
		return fmt.Errorf("missing %s header", headerTag)
	}
	fields = fields[1:]

	fr.sepName, fr.split = "D", strings.Fields
	for len(fields) > 0 && strings.HasPrefix(fields[0], "-") {
		opt := fields[0]
		switch {
		case opt == "-F" && len(fields) > 1:
			if err := fr.setSeparator(fields[1]); err != nil {
				return err
			}
			fields = fields[2:]
		case strings.HasPrefix(opt, "-F") && len(opt) > 2:
			if err := fr.setSeparator(opt[2:]); err != nil {
				return err
			}
			fields = fields[1:]
		default:
			return fmt.Errorf("unsupported header option %q", opt)
		}
	}
	if len(fields) == 0 {
		return errors.New("header names no columns")
	}

	fr.native = make(map[string]rowsource.NativeType)
	for _, f := range fields {
		name, code, typed := strings.Cut(f, ":")
		if name == "" {
			return fmt.Errorf("empty column name in %q", f)
		}
		k := kindString
		if typed {
			var nt rowsource.NativeType
			k, nt = typeCode(code)
			fr.native[name] = nt
		}
		fr.columns = append(fr.columns, name)
		fr.kinds = append(fr.kinds, k)
	}
	fr.index = rowsource.NewIndex(fr.columns)
	return nil
}

func (fr *Reader) setSeparator(code string) error {
	fr.sepName = code
	switch {
	case code == "t":
		fr.split = func(s string) []string { return strings.Split(s, "\t") }
	case code == "s":
		fr.split = func(s string) []string { return strings.Split(s, " ") }
	case code == "S":
		fr.split = func(s string) []string { return strings.Split(s, "  ") }
	case code == "D":
		fr.split = strings.Fields
	case strings.HasPrefix(code, "C") && len(code) > 1:
		sep := code[1:]
		fr.split = func(s string) []string { return strings.Split(s, sep) }
	default:
		return fmt.Errorf("unsupported separator -F %s", code)
	}
	return nil
}

// readLine returns the next line without its terminator.
func (fr *Reader) readLine() (string, error) {
	s, err := fr.br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	fr.line++
	return strings.TrimRight(s, "\r\n"), nil
}

func (fr *Reader) ColumnNames() []string { return fr.columns }

func (fr *Reader) NativeType(name string) (rowsource.NativeType, bool) {
	t, ok := fr.native[name]
	return t, ok
}

func (fr *Reader) ColumnNumbers(names []string) ([]int, error) {
	return fr.index.Positions(names)
}

// Next returns the next data row. Comment and blank lines are skipped. Typed
// values are converted; a failed conversion names the line and column.
func (fr *Reader) Next() (rowsource.Row, error) {
	for {
		line, err := fr.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("fsdb: line %d: %w", fr.line+1, err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := fr.split(line)
		row := make(rowsource.Row, len(fields))
		for i, v := range fields {
			if v == Empty {
				row[i] = nil
				continue
			}
			if i >= len(fr.kinds) {
				row[i] = v
				continue
			}
			if v == "" && fr.kinds[i] != kindString {
				row[i] = nil
				continue
			}
			val, err := convert(fr.kinds[i], v)
			if err != nil {
				return nil, fmt.Errorf("fsdb: line %d: column %s: %w", fr.line, fr.columns[i], err)
			}
			row[i] = val
		}
		return row, nil
	}
}

func convert(k kind, v string) (any, error) {
	switch k {
	case kindInt:
		return strconv.ParseInt(v, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(v, 64)
	default:
		return v, nil
	}
}
