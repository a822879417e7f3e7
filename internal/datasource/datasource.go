// Package datasource resolves a load's input argument to a byte stream:
// a local path, "-" (or empty) for standard input, or an http(s) URL.
// Compressed input is unwrapped transparently, see Decompress.
package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tabload/internal/datasource/file"
	"tabload/internal/datasource/httpds"
)

// Source opens a byte stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Stdin is the input argument meaning "read standard input".
const Stdin = "-"

// Resolve picks the Source for input. httpCfg applies to URLs only.
func Resolve(input string, stdin io.Reader, httpCfg httpds.Config) Source {
	switch {
	case input == "" || input == Stdin:
		return file.NewStdin(stdin)
	case IsURL(input):
		return httpds.NewSource(input, httpCfg)
	default:
		return file.NewLocal(input)
	}
}

// IsURL reports whether input is an http or https URL.
func IsURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Open resolves input, opens it and strips any compression layer.
func Open(ctx context.Context, input string, stdin io.Reader, httpCfg httpds.Config) (io.ReadCloser, error) {
	rc, err := Resolve(input, stdin, httpCfg).Open(ctx)
	if err != nil {
		return nil, err
	}
	out, _, err := Decompress(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("datasource: %s: %w", displayName(input), err)
	}
	return out, nil
}

func displayName(input string) string {
	if input == "" || input == Stdin {
		return "stdin"
	}
	return input
}
