// Package store persists raw forum records and processed corpus tables in a
// relational database. PostgreSQL (lib/pq) and SQLite (modernc) are supported
// through the same statements; only placeholders differ.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/sqlite"
)

// Role distinguishes the raw database from the processed one.
type Role string

const (
	RoleRaw       Role = "raw"
	RoleProcessed Role = "processed"
)

// DB wraps a *sql.DB with its dialect.
type DB struct {
	db      *sql.DB
	driver  string
	role    Role
	logger  *slog.Logger
	closeFn func() error
}

// Open connects to the database backing role.
func Open(cfg config.StorageConfig, role Role) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		path := cfg.RawPath
		if role == RoleProcessed {
			path = cfg.ProcessedPath
		}
		db, err = sqlite.Open(path, sqlite.WithMkdirAll())
	case config.DriverPostgres:
		database := cfg.Postgres.RawDatabase
		if role == RoleProcessed {
			database = cfg.Postgres.ProcessedDatabase
		}
		db, err = postgres.Open(cfg.Postgres, database)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", role, err)
	}
	return New(db, cfg.Driver, role), nil
}

// New wraps an already opened connection pool.
func New(db *sql.DB, driver string, role Role) *DB {
	return &DB{
		db:      db,
		driver:  driver,
		role:    role,
		logger:  logger.WithComponent("store").With("role", string(role)),
		closeFn: db.Close,
	}
}

func (d *DB) Close() error {
	return d.closeFn()
}

// PingContext lets the store be used as a health check.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// InTx runs fn inside a transaction, committing on success.
func (d *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.FromContext(ctx, d.logger).Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (d *DB) placeholder(n int) string {
	if d.driver == config.DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// insertSQL renders INSERT INTO table (cols) VALUES (...) with suffix.
func (d *DB) insertSQL(table string, cols []string, suffix string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = d.placeholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	if suffix != "" {
		q += " " + suffix
	}
	return q
}

func execAll(ctx context.Context, tx *sql.Tx, stmts []string) error {
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(s), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
