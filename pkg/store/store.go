// Package store persists normalized entities in SQLite with idempotent
// insert-or-update semantics: each record is looked up by its identity key
// and either inserted or overwritten in place, with the outcome reported
// per record.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	apperrors "mkcrawler/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

var errEmptyBatch = errors.New("record batch is empty")

// Outcome reports what an upsert did with one record
type Outcome int

const (
	Inserted Outcome = iota
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Store wraps the SQLite database holding the four entity tables.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - a 5-second busy timeout for lock contention
//   - a single writer connection, so a lookup-then-write pair inside one
//     transaction is atomic with respect to any other writer on the same key
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at the given path, applying
// pragmas and the schema. Safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &apperrors.StoreError{Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &apperrors.StoreError{Op: "open", Err: err}
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, &apperrors.StoreError{Op: "open", Err: err}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, &apperrors.StoreError{Op: "apply schema", Err: err}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// begin starts a transaction wrapped in a StoreError on failure
func (s *Store) begin(ctx context.Context, op string) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &apperrors.StoreError{Op: op, Err: err}
	}
	return tx, nil
}
