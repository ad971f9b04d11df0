// Package catalog defines the read-only view of a host media library that the
// report is built from, plus an in-memory implementation.
//
// Backends (XML export, CSV export, SQLite snapshots, Badger mirror) each
// produce a Catalog; nothing in this package writes to a library.
package catalog

import (
	"context"
	"iter"

	"github.com/listenupapp/library-report/internal/domain"
)

// MediaItem is a transient view of one track. Nil fields were absent in the catalog.
type MediaItem struct {
	Title     *string
	Artist    *string
	PlayCount *int64
}

// ItemFromTrack builds the report view of a stored track.
func ItemFromTrack(t *domain.Track) MediaItem {
	return MediaItem{
		Title:     t.Name,
		Artist:    t.Artist,
		PlayCount: t.PlayCount,
	}
}

// Catalog is an open, read-only media library handle.
//
// Items yields every item in the catalog's own order. Each call starts a fresh
// pass; no iterator state is kept between calls. A non-nil error ends the
// sequence.
type Catalog interface {
	ItemCount(ctx context.Context) (int, error)
	PlaylistCount(ctx context.Context) (int, error)
	MediaFolder(ctx context.Context) (path string, ok bool, err error)
	Items(ctx context.Context) iter.Seq2[MediaItem, error]
	Close() error
}

// Opener locates and opens a catalog. Failures are CatalogUnavailable errors.
type Opener interface {
	Open(ctx context.Context) (Catalog, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Catalog, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context) (Catalog, error) {
	return f(ctx)
}
