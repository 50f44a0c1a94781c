// Package store keeps a local history of lifecycle actions in SQLite. The
// history is an operator convenience: recording is best-effort and never
// changes a verb's outcome.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Action is one recorded lifecycle invocation.
type Action struct {
	ID        string    `db:"id"`
	Verb      string    `db:"verb"`
	Outcome   string    `db:"outcome"` // success, failure
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

// SQLiteStore implements the action history on SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens the database at dsn and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Action History
// =============================================================================

// RecordAction appends one action to the history.
func (s *SQLiteStore) RecordAction(ctx context.Context, verb, outcome, detail string) error {
	action := Action{
		ID:        uuid.NewString(),
		Verb:      verb,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO actions (id, verb, outcome, detail, created_at)
		VALUES (:id, :verb, :outcome, :detail, :created_at)`, action)
	if err != nil {
		return NewStoreError("RecordAction", err.Error(), ErrQueryFailed)
	}
	return nil
}

// RecentActions returns up to limit actions, newest first.
func (s *SQLiteStore) RecentActions(ctx context.Context, limit int) ([]Action, error) {
	if limit <= 0 {
		limit = 20
	}
	var actions []Action
	err := s.db.SelectContext(ctx, &actions, `
		SELECT id, verb, outcome, detail, created_at
		FROM actions
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("RecentActions", err.Error(), ErrQueryFailed)
	}
	return actions, nil
}
