// Package storage contains the backend-agnostic Sink contract, the registry
// that selects a backend by kind, and the load operations (bulk insert,
// table clearing) that drive a Sink.
//
// Backends (sqlite3, pg, maria, print) register themselves at init time;
// import tabload/internal/storage/all to enable all of them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"tabload/internal/config"
	"tabload/internal/ddl"
)

var (
	// ErrResource reports that the destination store could not be opened.
	ErrResource = errors.New("resource error")

	// ErrExec reports a statement or commit rejected by the backend, or a
	// source row that does not fit the insert.
	ErrExec = errors.New("execution error")
)

// Sink is a transactional execution target for statements.
//
// Execute runs one statement with optional bound values inside the current
// transaction; Commit finalizes that transaction. The next Execute after a
// Commit starts a new one.
type Sink interface {
	Execute(ctx context.Context, statement string, args ...any) error
	Commit(ctx context.Context) error
}

// Conn is a Sink that owns its connection. Close rolls back anything not yet
// committed and releases the connection.
type Conn interface {
	Sink
	io.Closer
}

// Config is what a backend needs to open a Conn.
type Config struct {
	// Kind selects the backend ("sqlite3", "pg", "maria", "print").
	Kind string

	// DSN is the sqlite3 path, the database URL, or for print an optional
	// output file.
	DSN string

	// Out is where the print backend writes when DSN is empty.
	Out io.Writer

	Logger *zap.Logger
}

// Factory opens a Conn for cfg.
type Factory func(ctx context.Context, cfg Config) (Conn, error)

type backend struct {
	open    Factory
	dialect ddl.Dialect
}

var (
	mu       sync.RWMutex
	backends = map[string]backend{}
)

// Register registers (or replaces) the backend for kind. It is typically
// called from backend packages' init functions.
func Register(kind string, open Factory, dialect ddl.Dialect) {
	mu.Lock()
	defer mu.Unlock()
	backends[kind] = backend{open: open, dialect: dialect}
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lookup(kind string) (backend, error) {
	if strings.TrimSpace(kind) == "" {
		return backend{}, fmt.Errorf("%w: no sink backend selected", config.ErrConfig)
	}
	mu.RLock()
	b, ok := backends[kind]
	mu.RUnlock()
	if !ok {
		return backend{}, fmt.Errorf("%w: unsupported storage.kind=%s", config.ErrConfig, kind)
	}
	return b, nil
}

// DialectFor returns the statement dialect of kind.
func DialectFor(kind string) (ddl.Dialect, error) {
	b, err := lookup(kind)
	if err != nil {
		return ddl.Dialect{}, err
	}
	return b.dialect, nil
}

// New opens a Conn for cfg.Kind. An empty or unknown kind fails before any
// connection is attempted.
func New(ctx context.Context, cfg Config) (Conn, error) {
	b, err := lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return b.open(ctx, cfg)
}
