// Package file opens load input from the local disk or standard input.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens a file by path.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the file. A canceled ctx short-circuits before touching the
// filesystem. Errors keep os.ErrNotExist and friends testable with errors.Is.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Stdin reads from an io.Reader, os.Stdin by default. Closing it does not
// close the reader.
type Stdin struct{ r io.Reader }

// NewStdin returns a Stdin over r, or os.Stdin when r is nil.
func NewStdin(r io.Reader) *Stdin {
	if r == nil {
		r = os.Stdin
	}
	return &Stdin{r: r}
}

func (s *Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}
