// Package dryrun registers the "print" sink backend. It never touches a
// store: every statement is written as text instead of executed.
//
// Output format, one entry per call:
//
//	<statement>
//	  [<value>, <value>, ...]     (only when values are bound)
//	# commit                      (for every Commit)
//
// Values are rendered as a JSON array.
package dryrun

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"tabload/internal/ddl"
	"tabload/internal/storage"
)

// CommitMarker is the line written for each Commit.
const CommitMarker = "# commit"

// Printer is a storage.Conn that writes statements to an io.Writer.
type Printer struct {
	w      *bufio.Writer
	closer io.Closer
}

var _ storage.Conn = (*Printer)(nil)

// New returns a Printer writing to w. Close flushes but does not close w.
func New(w io.Writer) *Printer {
	return &Printer{w: bufio.NewWriter(w)}
}

// NewSink writes to the file named by cfg.DSN, or to cfg.Out (stdout when
// nil) when DSN is empty.
func NewSink(_ context.Context, cfg storage.Config) (storage.Conn, error) {
	if path := strings.TrimSpace(cfg.DSN); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("%w: print: %w", storage.ErrResource, err)
		}
		p := New(f)
		p.closer = f
		return p, nil
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return New(out), nil
}

// Execute writes statement and, when present, its bound values.
func (p *Printer) Execute(_ context.Context, statement string, args ...any) error {
	if _, err := p.w.WriteString(statement + "\n"); err != nil {
		return fmt.Errorf("%w: print: %w", storage.ErrExec, err)
	}
	if len(args) == 0 {
		return nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: print: encode values: %w", storage.ErrExec, err)
	}
	if _, err := p.w.WriteString("  " + string(b) + "\n"); err != nil {
		return fmt.Errorf("%w: print: %w", storage.ErrExec, err)
	}
	return nil
}

// Commit writes the commit marker and flushes.
func (p *Printer) Commit(context.Context) error {
	if _, err := p.w.WriteString(CommitMarker + "\n"); err != nil {
		return fmt.Errorf("%w: print: %w", storage.ErrExec, err)
	}
	if err := p.w.Flush(); err != nil {
		return fmt.Errorf("%w: print: %w", storage.ErrExec, err)
	}
	return nil
}

// Close flushes pending output and closes the output file, if one was opened.
func (p *Printer) Close() error {
	err := p.w.Flush()
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func init() {
	storage.Register("print", NewSink, ddl.Generic)
}
