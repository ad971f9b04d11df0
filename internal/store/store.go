// Package store keeps a mirror of one library in a Badger key/value database
// and serves it back as a read-only catalog.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/listenupapp/library-report/internal/errors"
)

// Store wraps a Badger database instance.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	readOnly bool
}

// New opens (creating if needed) a library mirror at path for writing.
func New(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info("Badger database opened successfully", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// OpenReadOnly opens an existing library mirror without write access.
// A missing, locked or unreadable mirror is a CatalogUnavailable error.
func OpenReadOnly(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, domainerrors.CatalogUnavailablef("library mirror not found at %s", path).WithCause(err)
	case os.IsPermission(err):
		return nil, domainerrors.CatalogUnavailablef("permission denied reading library mirror %s", path).WithCause(err)
	case err != nil:
		return nil, domainerrors.CatalogUnavailablef("cannot open library mirror %s", path).WithCause(err)
	case !info.IsDir():
		return nil, domainerrors.CatalogUnavailablef("library mirror %s is not a directory", path)
	}
	if _, err := os.Stat(filepath.Join(path, badger.ManifestFilename)); err != nil {
		return nil, domainerrors.CatalogUnavailablef("%s is not a library mirror", path).WithCause(err)
	}

	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domainerrors.CatalogUnavailablef("cannot open library mirror %s (locked or damaged)", path).WithCause(err)
	}

	logger.Debug("Badger database opened read-only", "path", path)
	return &Store{db: db, logger: logger, readOnly: true}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Debug("Closing database connection")
	return s.db.Close()
}

// ReadOnly reports whether the store was opened with OpenReadOnly.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// countPrefix counts keys under prefix without reading values.
func (s *Store) countPrefix(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // We only need keys.
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
