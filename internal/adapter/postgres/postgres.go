// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS runs (id BIGSERIAL PRIMARY KEY, date DATE NOT NULL, distance NUMERIC(5,2) NOT NULL, duration INTEGER, pace NUMERIC(5,2), strava_activity_id BIGINT UNIQUE, source TEXT NOT NULL DEFAULT 'manual', created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date);",
		"CREATE TABLE IF NOT EXISTS training_plan (id BIGSERIAL PRIMARY KEY, date DATE NOT NULL UNIQUE, target_distance NUMERIC(5,2) NOT NULL);",
		"CREATE TABLE IF NOT EXISTS strava_tokens (id BIGSERIAL PRIMARY KEY, athlete_id BIGINT NOT NULL UNIQUE, access_token TEXT NOT NULL, refresh_token TEXT NOT NULL, expires_at TIMESTAMPTZ NOT NULL, last_sync_at TIMESTAMPTZ, created_at TIMESTAMPTZ NOT NULL, updated_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Deployments predating the sync cooldown lack the column.
	if _, err := d.sql.ExecContext(ctx, "ALTER TABLE strava_tokens ADD COLUMN IF NOT EXISTS last_sync_at TIMESTAMPTZ;"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
