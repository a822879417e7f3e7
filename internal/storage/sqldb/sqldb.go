// Package sqldb implements storage.Conn on top of database/sql. The sqlite3
// and maria backends share it; they differ only in driver and DSN handling.
//
// A Sink holds a single connection. Execute begins a transaction lazily and
// prepares each distinct parameterized statement once per transaction;
// Commit commits and drops the prepared statements.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tabload/internal/storage"
)

// PingTimeout bounds the connectivity check in Open.
const PingTimeout = 5 * time.Second

// Open opens db with exactly one connection and pings it. Failures are
// storage.ErrResource.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open: %w", storage.ErrResource, driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: ping: %w", storage.ErrResource, driver, err)
	}
	return db, nil
}

// Sink is a transactional storage.Conn over a *sql.DB.
type Sink struct {
	db     *sql.DB
	name   string
	logger *zap.Logger

	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

var _ storage.Conn = (*Sink)(nil)

// New wraps db. name prefixes error messages (e.g. "sqlite3").
func New(db *sql.DB, name string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{db: db, name: name, logger: logger}
}

func (s *Sink) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: begin: %w", storage.ErrExec, s.name, err)
	}
	s.tx = tx
	s.stmts = make(map[string]*sql.Stmt)
	return nil
}

// Execute runs statement in the current transaction.
func (s *Sink) Execute(ctx context.Context, statement string, args ...any) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	if len(args) == 0 {
		if _, err := s.tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("%w: %s: %s: %w", storage.ErrExec, s.name, statement, err)
		}
		return nil
	}

	stmt, ok := s.stmts[statement]
	if !ok {
		var err error
		stmt, err = s.tx.PrepareContext(ctx, statement)
		if err != nil {
			return fmt.Errorf("%w: %s: prepare %s: %w", storage.ErrExec, s.name, statement, err)
		}
		s.stmts[statement] = stmt
	}
	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("%w: %s: exec: %w", storage.ErrExec, s.name, err)
	}
	return nil
}

// Commit commits the open transaction. With nothing pending it is a no-op.
func (s *Sink) Commit(context.Context) error {
	if s.tx == nil {
		return nil
	}
	s.closeStmts()
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s: commit: %w", storage.ErrExec, s.name, err)
	}
	return nil
}

// Close rolls back any uncommitted work and closes the database.
func (s *Sink) Close() error {
	if s.tx != nil {
		s.closeStmts()
		if err := s.tx.Rollback(); err != nil {
			s.logger.Warn("rollback failed", zap.String("backend", s.name), zap.Error(err))
		} else {
			s.logger.Debug("rolled back uncommitted chunk", zap.String("backend", s.name))
		}
		s.tx = nil
	}
	return s.db.Close()
}

func (s *Sink) closeStmts() {
	for _, st := range s.stmts {
		_ = st.Close()
	}
	s.stmts = nil
}
