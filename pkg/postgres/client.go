// Package postgres opens pooled lib/pq connections for the raw and processed
// corpus databases.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
)

// Open connects to database on the configured server and verifies the
// connection.
func Open(cfg config.PostgresConfig, database string) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN(database))
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres database %s: %w", database, err)
	}
	return db, nil
}
