// Package mariadb registers the "maria" sink backend (alias "mariadb") using
// go-sql-driver/mysql.
//
// The DSN uses the driver's format, e.g. "user:pass@tcp(localhost:3306)/db".
// MariaDB has no "string" column type; ddl.MariaDB rewrites it to text. DDL
// statements commit implicitly on MariaDB, which is harmless here because
// provisioning precedes the first chunk.
package mariadb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"tabload/internal/ddl"
	"tabload/internal/storage"
	"tabload/internal/storage/sqldb"
)

// newSink is a test hook that points to NewSink by default.
var newSink = NewSink

// ParseDSN validates dsn and applies the settings a load relies on.
func ParseDSN(dsn string) (*mysql.Config, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: maria: DSN must not be empty", storage.ErrResource)
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: maria: %w", storage.ErrResource, err)
	}
	if mc.Timeout == 0 {
		mc.Timeout = 10 * time.Second
	}
	return mc, nil
}

// NewSink opens a single-connection database/sql handle on cfg.DSN.
func NewSink(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
	mc, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, "mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("maria sink opened", zap.String("addr", mc.Addr), zap.String("database", mc.DBName))
	return sqldb.New(db, "maria", logger), nil
}

func init() {
	open := func(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
		return newSink(ctx, cfg)
	}
	storage.Register("maria", open, ddl.MariaDB)
	storage.Register("mariadb", open, ddl.MariaDB)
}
