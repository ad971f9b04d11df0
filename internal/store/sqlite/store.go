// Package sqlite stores library snapshot history in a SQLite database and
// serves any stored snapshot back as a read-only catalog.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/listenupapp/library-report/internal/errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed snapshot history.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	readOnly bool
}

// Open opens (creating if needed) a snapshot database at path for writing.
// It sets pragmas and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=DELETE",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	logger.Debug("snapshot database opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// OpenReadOnly opens an existing snapshot database without write access.
// A missing or unreadable database is a CatalogUnavailable error.
func OpenReadOnly(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.CatalogUnavailablef("invalid snapshot database path %s", path).WithCause(err)
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		return nil, errors.CatalogUnavailablef("snapshot database not found at %s", abs).WithCause(err)
	case os.IsPermission(err):
		return nil, errors.CatalogUnavailablef("permission denied reading snapshot database %s", abs).WithCause(err)
	case err != nil:
		return nil, errors.CatalogUnavailablef("cannot open snapshot database %s", abs).WithCause(err)
	case info.IsDir():
		return nil, errors.CatalogUnavailablef("snapshot database %s is a directory", abs)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(abs))
	if err != nil {
		return nil, errors.CatalogUnavailablef("cannot open snapshot database %s", abs).WithCause(err)
	}
	db.SetMaxOpenConns(1)

	var tables int
	err = db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('snapshots', 'raw_itunes_library')`,
	).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, errors.CatalogUnavailablef("cannot read snapshot database %s", abs).WithCause(err)
	}
	if tables != 2 {
		db.Close()
		return nil, errors.CatalogUnavailablef("%s is not a snapshot database", abs)
	}

	logger.Debug("snapshot database opened read-only", "path", abs)
	return &Store{db: db, logger: logger, readOnly: true}, nil
}

// readOnlyDSN builds a SQLite URI filename that refuses writes.
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String() + "?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadOnly reports whether the store was opened with OpenReadOnly.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns a sql.NullString from a string, NULL when empty.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableString returns a sql.NullString from a *string.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// nullableInt64 returns a sql.NullInt64 from an *int64.
func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
