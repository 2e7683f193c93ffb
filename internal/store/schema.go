package store

import (
	"context"
	"database/sql"
)

var rawSchema = []string{
	`CREATE TABLE IF NOT EXISTS Submissions (
	id           TEXT PRIMARY KEY,
	title        TEXT,
	author       TEXT NOT NULL,
	created_utc  BIGINT NOT NULL,
	score        INTEGER NOT NULL,
	num_comments INTEGER NOT NULL,
	text         TEXT
)`,
	`CREATE TABLE IF NOT EXISTS Comments (
	id            TEXT PRIMARY KEY,
	author        TEXT NOT NULL,
	created_utc   BIGINT NOT NULL,
	score         INTEGER NOT NULL,
	num_replies   INTEGER NOT NULL,
	submission_id TEXT NOT NULL,
	parent_id     TEXT NOT NULL,
	text          TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_author ON Comments (author)`,
}

// "User" is quoted because USER is reserved in PostgreSQL.
var processedSchema = []string{
	`CREATE TABLE IF NOT EXISTS Submissions (
	submission_index INTEGER PRIMARY KEY,
	title            TEXT,
	author_index     INTEGER NOT NULL,
	created_utc      BIGINT NOT NULL,
	score            INTEGER NOT NULL,
	num_comments     INTEGER NOT NULL,
	text             TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS Comments (
	comment_id       TEXT PRIMARY KEY,
	author_index     INTEGER NOT NULL,
	created_utc      BIGINT NOT NULL,
	score            INTEGER NOT NULL,
	num_replies      INTEGER NOT NULL,
	submission_index INTEGER NOT NULL,
	parent_id        TEXT NOT NULL,
	text             TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS Vocab (
	term_index INTEGER PRIMARY KEY,
	term       TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS "User" (
	user_index INTEGER PRIMARY KEY,
	text       TEXT NOT NULL
)`,
}

// CreateTables creates the tables for the store's role if they are missing.
func (d *DB) CreateTables(ctx context.Context) error {
	stmts := rawSchema
	if d.role == RoleProcessed {
		stmts = processedSchema
	}
	return d.InTx(ctx, func(tx *sql.Tx) error {
		return execAll(ctx, tx, stmts)
	})
}
