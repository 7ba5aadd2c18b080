// Package store is the sole custodian of speakcast's persistent relational
// state (spec §4.1, component C1). It is backed by a single embedded SQLite
// database file so that the entire data directory can be backed up by
// copying it while the process is stopped.
//
// Every mutating method runs inside a transaction. Foreign-key existence is
// mostly validated explicitly before use and surfaced as [apperr.ErrNotFound]
// rather than relying on a raw constraint violation; the tag-link methods
// ([Store.TagSource], [Store.TagEpisode]) are the exception and rely on the
// foreign-key constraint alone. This mirrors how the
// teacher's npcstore package turns pgx.ErrNoRows into a structured error at
// the repository boundary.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB handle to the speakcast library database.
// All exported methods are safe for concurrent use; SQLite serializes
// writers internally and speakcast additionally opens the database with a
// single-connection pool so there is never a write/write race at the driver
// level.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database file at path and
// returns a [Store] ready for [Store.Migrate]. The connection pool is capped
// at one connection: SQLite does not benefit from concurrent writers, and a
// single connection keeps the "single-writer store" property of spec §5
// true by construction rather than by discipline.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open *sql.DB. Used by tests to point at an
// in-memory database (":memory:" or "file::memory:?cache=shared").
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies [schema] to the database. It must be called once at
// startup before any worker goroutine begins, and before [Store.RecoverStartupState].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// tx runs fn inside a transaction, committing on success and rolling back if
// fn returns an error or panics.
func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = t.Rollback()
			panic(p)
		}
	}()
	if err = fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err = t.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// isUniqueConstraintError reports whether err is a SQLite UNIQUE constraint
// violation. modernc.org/sqlite reports these as plain errors whose message
// contains "UNIQUE constraint failed"; there is no typed sentinel to match
// against with errors.As, unlike pgconn.PgError in the teacher's store.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
