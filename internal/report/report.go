// Package report builds and renders the library summary report.
//
// A report is built entirely from reads against an open catalog.Catalog and is
// only rendered once every read has succeeded, so a failing catalog never
// produces a partial report.
package report

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/listenupapp/library-report/internal/catalog"
	"github.com/listenupapp/library-report/internal/errors"
)

// DefaultLimit is how many items the report lists when no limit is configured.
const DefaultLimit = 10

// UnknownArtist is printed for items with no artist.
const UnknownArtist = "Unknown"

// Summary holds the library-level counts.
type Summary struct {
	ItemCount      int
	PlaylistCount  int
	MediaFolder    string
	HasMediaFolder bool
}

// Entry is one listed item with its missing fields already resolved.
type Entry struct {
	Rank      int
	Title     string
	Artist    string
	PlayCount int64
}

// Report is everything that gets printed.
type Report struct {
	Summary
	Limit   int
	Entries []Entry
	// TotalPlayCount covers every item in the catalog, not only Entries.
	TotalPlayCount uint64
}

// Summarize reads the item count, playlist count and media folder.
func Summarize(ctx context.Context, cat catalog.Catalog) (Summary, error) {
	items, err := cat.ItemCount(ctx)
	if err != nil {
		return Summary{}, readError(err, "count items")
	}
	playlists, err := cat.PlaylistCount(ctx)
	if err != nil {
		return Summary{}, readError(err, "count playlists")
	}
	folder, ok, err := cat.MediaFolder(ctx)
	if err != nil {
		return Summary{}, readError(err, "read media folder")
	}

	return Summary{
		ItemCount:      items,
		PlaylistCount:  playlists,
		MediaFolder:    folder,
		HasMediaFolder: ok,
	}, nil
}

// ListFirst yields up to n entries in catalog order, ranked from 1.
// It stops pulling from the catalog once n entries have been produced.
func ListFirst(ctx context.Context, cat catalog.Catalog, n int) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if n <= 0 {
			return
		}
		rank := 0
		for item, err := range cat.Items(ctx) {
			if err != nil {
				yield(Entry{}, readError(err, "list items"))
				return
			}
			rank++
			if !yield(resolve(rank, item), nil) || rank == n {
				return
			}
		}
	}
}

// TotalPlayCount sums play counts over every item in the catalog.
// Missing and negative counts contribute zero.
func TotalPlayCount(ctx context.Context, cat catalog.Catalog) (uint64, error) {
	var total uint64
	for item, err := range cat.Items(ctx) {
		if err != nil {
			return 0, readError(err, "sum play counts")
		}
		if item.PlayCount != nil && *item.PlayCount > 0 {
			total += uint64(*item.PlayCount)
		}
	}
	return total, nil
}

func resolve(rank int, item catalog.MediaItem) Entry {
	e := Entry{Rank: rank, Artist: UnknownArtist}
	if item.Title != nil {
		e.Title = *item.Title
	}
	if item.Artist != nil {
		e.Artist = *item.Artist
	}
	if item.PlayCount != nil && *item.PlayCount > 0 {
		e.PlayCount = *item.PlayCount
	}
	return e
}

// readError marks err as a catalog read failure unless it already carries a code.
func readError(err error, op string) error {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return errors.Wrap(err, errors.CodeCatalogRead, op)
}

// Render writes r in the report text format.
func Render(w io.Writer, r *Report) error {
	folder := "nil"
	if r.HasMediaFolder {
		folder = r.MediaFolder
	}

	var b strings.Builder
	b.WriteString("=== Library Info ===\n")
	fmt.Fprintf(&b, "Track count: %d\n", r.ItemCount)
	fmt.Fprintf(&b, "Playlist count: %d\n", r.PlaylistCount)
	fmt.Fprintf(&b, "Media folder: %s\n", folder)

	fmt.Fprintf(&b, "\n=== First %d Tracks ===\n", r.Limit)
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%d. %s - %s [Play count: %d]\n", e.Rank, e.Title, e.Artist, e.PlayCount)
	}

	b.WriteString("\n=== Summary ===\n")
	fmt.Fprintf(&b, "Total play count: %d\n", r.TotalPlayCount)

	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the rendered report.
func (r *Report) String() string {
	var b strings.Builder
	_ = Render(&b, r)
	return b.String()
}
