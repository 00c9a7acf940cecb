// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides a persistent shell command history backed by
// SQLite. The store degrades to a no-op when the database cannot be
// opened, so history failures never block command execution.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("history store closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS commands (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	command   TEXT NOT NULL,
	dir       TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	ran_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commands_ran_at ON commands(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_commands_command ON commands(command);
`

// =============================================================================
// STORE
// =============================================================================

// Record is one executed shell command.
type Record struct {
	ID       int64
	Command  string
	Dir      string
	ExitCode int
	RanAt    time.Time
}

// Store persists shell command history. A nil or degraded Store is safe
// to use; all operations become no-ops. Operations on a Store that has
// been explicitly closed return ErrClosed.
type Store struct {
	db     *sql.DB
	closed bool
}

// Open opens (or creates) the history database at path. On failure it
// returns a degraded store and the error; callers may keep the store
// and lose only persistence.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &Store{}, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &Store{}, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return &Store{}, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return &Store{}, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Available reports whether the store has a live database.
func (s *Store) Available() bool {
	return s != nil && s.db != nil
}

// ready distinguishes a live store (true, nil), a degraded store that
// never opened (false, nil), and a closed store (false, ErrClosed).
func (s *Store) ready() (bool, error) {
	if s.Available() {
		return true, nil
	}
	if s != nil && s.closed {
		return false, ErrClosed
	}
	return false, nil
}

// Close closes the underlying database. Further operations return
// ErrClosed.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Add records an executed command. Empty commands are skipped.
func (s *Store) Add(command, dir string, exitCode int) error {
	if ok, err := s.ready(); !ok {
		return err
	}
	if strings.TrimSpace(command) == "" {
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO commands (command, dir, exit_code, ran_at)
		VALUES (?, ?, ?, ?)
	`, command, dir, exitCode, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Recent returns the most recent commands, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if ok, err := s.ready(); !ok {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, command, dir, exit_code, ran_at
		FROM commands
		ORDER BY ran_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Search returns commands containing the given substring, newest first.
func (s *Store) Search(query string, limit int) ([]Record, error) {
	if ok, err := s.ready(); !ok {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.Query(`
		SELECT id, command, dir, exit_code, ran_at
		FROM commands
		WHERE command LIKE ? ESCAPE '\'
		ORDER BY ran_at DESC, id DESC
		LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of stored commands.
func (s *Store) Count() (int, error) {
	if ok, err := s.ready(); !ok {
		return 0, err
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM commands").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// Prune deletes all but the newest keep records.
func (s *Store) Prune(keep int) error {
	if ok, err := s.ready(); !ok {
		return err
	}
	if keep <= 0 {
		return nil
	}

	_, err := s.db.Exec(`
		DELETE FROM commands
		WHERE id NOT IN (
			SELECT id FROM commands ORDER BY ran_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// scanRecords reads all rows into records.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var ranAt int64
		if err := rows.Scan(&r.ID, &r.Command, &r.Dir, &r.ExitCode, &ranAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		r.RanAt = time.Unix(ranAt, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return records, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
