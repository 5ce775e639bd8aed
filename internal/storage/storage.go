// Package storage persists projects and raid targets through sqlx. The same
// queries run on postgres and sqlite; placeholders are written as ? and
// rebound for the active driver.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the sqlx-backed repository.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
    id          TEXT PRIMARY KEY,
    chat_id     INTEGER NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    description TEXT NOT NULL,
    x_handle    TEXT NOT NULL,
    invite_link TEXT NOT NULL,
    website     TEXT NOT NULL,
    tags        TEXT NOT NULL DEFAULT '[]',
    topics      TEXT NOT NULL DEFAULT '{}',
    created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS targets (
    id           TEXT PRIMARY KEY,
    project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    chat_id      INTEGER NOT NULL,
    link         TEXT NOT NULL,
    lock_minutes INTEGER NOT NULL CHECK (lock_minutes > 0),
    goals        TEXT NOT NULL DEFAULT '{}',
    created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_targets_chat ON targets(chat_id);
CREATE INDEX IF NOT EXISTS idx_targets_project ON targets(project_id);
`

// EnsureSchema creates the tables on sqlite. Postgres is migrated by
// golang-migrate and is left alone.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if db.DriverName() != "sqlite" {
		return nil
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
