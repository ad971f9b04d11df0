package sqlite

import (
	"context"
	"database/sql"
	"iter"
	"log/slog"

	"github.com/listenupapp/library-report/internal/catalog"
	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
)

// Catalog serves one stored snapshot as a read-only catalog.
type Catalog struct {
	store    *Store
	snapshot *domain.Snapshot
	// owned is set when closing the catalog also closes the store.
	owned bool
}

var _ catalog.Catalog = (*Catalog)(nil)

// Catalog returns the snapshot stored for date, or the latest snapshot when
// date is empty. Closing the returned catalog leaves the store open.
func (s *Store) Catalog(ctx context.Context, date string) (*Catalog, error) {
	var (
		snap *domain.Snapshot
		err  error
	)
	if date == "" {
		snap, err = s.LatestSnapshot(ctx)
	} else {
		snap, err = s.GetSnapshot(ctx, date)
	}
	if err != nil {
		return nil, err
	}
	return &Catalog{store: s, snapshot: snap}, nil
}

// OpenCatalog opens the database at path read-only and returns the snapshot
// for date (latest when empty). Closing the catalog closes the database.
// Every failure is a CatalogUnavailable error.
func OpenCatalog(ctx context.Context, path, date string, logger *slog.Logger) (*Catalog, error) {
	s, err := OpenReadOnly(path, logger)
	if err != nil {
		return nil, err
	}

	c, err := s.Catalog(ctx, date)
	if err != nil {
		s.Close()
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.CatalogUnavailable(err.Error()).WithCause(err)
		}
		return nil, errors.CatalogUnavailablef("cannot read snapshot database %s", path).WithCause(err)
	}
	c.owned = true

	s.logger.Info("snapshot catalog opened",
		"date", c.snapshot.Date,
		"id", c.snapshot.ID,
		"source", c.snapshot.SourcePath,
	)
	return c, nil
}

// Snapshot returns the snapshot being served.
func (c *Catalog) Snapshot() *domain.Snapshot {
	return c.snapshot
}

func (c *Catalog) ItemCount(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx,
		`SELECT count(*) FROM raw_itunes_library WHERE snapshot_date = ?`, c.snapshot.Date).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeCatalogRead, "count tracks for %s", c.snapshot.Date)
	}
	return n, nil
}

func (c *Catalog) PlaylistCount(context.Context) (int, error) {
	return c.snapshot.PlaylistCount, nil
}

func (c *Catalog) MediaFolder(context.Context) (string, bool, error) {
	return c.snapshot.MediaFolder, c.snapshot.MediaFolder != "", nil
}

// Items streams tracks in their original library order. Rows are read as
// the sequence is consumed; stopping early releases the query.
func (c *Catalog) Items(ctx context.Context) iter.Seq2[catalog.MediaItem, error] {
	return func(yield func(catalog.MediaItem, error) bool) {
		rows, err := c.store.db.QueryContext(ctx, `
			SELECT name, artist, play_count
			FROM raw_itunes_library
			WHERE snapshot_date = ?
			ORDER BY ordinal ASC`, c.snapshot.Date)
		if err != nil {
			yield(catalog.MediaItem{}, errors.Wrapf(err, errors.CodeCatalogRead, "query tracks for %s", c.snapshot.Date))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				name, artist sql.NullString
				plays        sql.NullInt64
			)
			if err := rows.Scan(&name, &artist, &plays); err != nil {
				yield(catalog.MediaItem{}, errors.Wrapf(err, errors.CodeCatalogRead, "scan track of %s", c.snapshot.Date))
				return
			}
			item := catalog.MediaItem{
				Title:     stringPtr(name),
				Artist:    stringPtr(artist),
				PlayCount: int64Ptr(plays),
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(catalog.MediaItem{}, errors.Wrapf(err, errors.CodeCatalogRead, "read tracks for %s", c.snapshot.Date))
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
