package store

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/library-report/internal/catalog"
	"github.com/listenupapp/library-report/internal/domain"
	domainerrors "github.com/listenupapp/library-report/internal/errors"
)

// Catalog serves the mirrored library as a read-only catalog.
type Catalog struct {
	store *Store
	meta  *domain.Snapshot
	owned bool
}

var _ catalog.Catalog = (*Catalog)(nil)

// Catalog returns the mirrored library. Closing it leaves the store open.
func (s *Store) Catalog(ctx context.Context) (*Catalog, error) {
	meta, err := s.Meta(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{store: s, meta: meta}, nil
}

// OpenCatalog opens the mirror at path read-only. Closing the catalog closes
// the database. Every failure is a CatalogUnavailable error.
func OpenCatalog(ctx context.Context, path string, logger *slog.Logger) (*Catalog, error) {
	s, err := OpenReadOnly(path, logger)
	if err != nil {
		return nil, err
	}

	c, err := s.Catalog(ctx)
	if err != nil {
		s.Close()
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.CatalogUnavailablef("library mirror %s is empty", path).WithCause(err)
		}
		return nil, domainerrors.CatalogUnavailablef("cannot read library mirror %s", path).WithCause(err)
	}
	c.owned = true

	s.logger.Info("library mirror opened",
		"date", c.meta.Date,
		"id", c.meta.ID,
		"source", c.meta.SourcePath,
	)
	return c, nil
}

// Snapshot returns the description of the mirrored library.
func (c *Catalog) Snapshot() *domain.Snapshot {
	return c.meta
}

func (c *Catalog) ItemCount(context.Context) (int, error) {
	n, err := c.store.countPrefix([]byte(trackPrefix))
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeCatalogRead, "count tracks")
	}
	return n, nil
}

func (c *Catalog) PlaylistCount(context.Context) (int, error) {
	n, err := c.store.countPrefix([]byte(playlistPrefix))
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeCatalogRead, "count playlists")
	}
	return n, nil
}

func (c *Catalog) MediaFolder(context.Context) (string, bool, error) {
	return c.meta.MediaFolder, c.meta.MediaFolder != "", nil
}

// errStop ends a scan early without reporting an error.
var errStop = errors.New("stop")

// Items walks tracks in key order, which is library order. Each value is
// decoded as the sequence is consumed.
func (c *Catalog) Items(ctx context.Context) iter.Seq2[catalog.MediaItem, error] {
	return func(yield func(catalog.MediaItem, error) bool) {
		err := c.store.db.View(func(txn *badger.Txn) error {
			return scanPrefix(txn, trackPrefix, func(val []byte) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				var t domain.Track
				if err := json.Unmarshal(val, &t); err != nil {
					return err
				}
				if !yield(catalog.ItemFromTrack(&t), nil) {
					return errStop
				}
				return nil
			})
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(catalog.MediaItem{}, domainerrors.Wrap(err, domainerrors.CodeCatalogRead, "read tracks"))
		}
	}
}

// Close releases the catalog, and the database when the catalog owns it.
func (c *Catalog) Close() error {
	if c.owned {
		return c.store.Close()
	}
	return nil
}
