// Package sqlite registers the "sqlite3" sink backend (alias "sqlite"),
// backed by the pure-Go modernc.org/sqlite driver. The DSN is a file path or
// a driver URI such as "file:load.db?_pragma=journal_mode(WAL)".
//
// SQLite accepts the generic column types verbatim, so this backend uses
// ddl.Generic and its statements are byte-identical to a dry run.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"tabload/internal/ddl"
	"tabload/internal/storage"
	"tabload/internal/storage/sqldb"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// newSink is a test hook that points to NewSink by default.
var newSink = NewSink

// NewSink opens the database at cfg.DSN, creating the file if needed.
func NewSink(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%w: sqlite3: database path must not be empty", storage.ErrResource)
	}
	db, err := sqldb.Open(ctx, DriverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cfg.Logger.Debug("sqlite3 sink opened", zap.String("dsn", cfg.DSN))
	return sqldb.New(db, "sqlite3", cfg.Logger), nil
}

func init() {
	open := func(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
		return newSink(ctx, cfg)
	}
	storage.Register("sqlite3", open, ddl.Generic)
	storage.Register("sqlite", open, ddl.Generic)
}
