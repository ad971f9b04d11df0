package catalog

import (
	"context"
	"iter"

	"github.com/listenupapp/library-report/internal/domain"
)

// Memory serves a fully loaded library. The export-file backends parse into
// a domain.Library and wrap it with NewMemory.
type Memory struct {
	lib *domain.Library
}

// NewMemory returns a catalog over lib. lib must not be modified while the
// catalog is in use.
func NewMemory(lib *domain.Library) *Memory {
	if lib == nil {
		lib = &domain.Library{}
	}
	return &Memory{lib: lib}
}

// ItemCount implements Catalog.
func (m *Memory) ItemCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(m.lib.Tracks), nil
}

// PlaylistCount implements Catalog.
func (m *Memory) PlaylistCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(m.lib.Playlists), nil
}

// MediaFolder implements Catalog.
func (m *Memory) MediaFolder(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return m.lib.MediaFolder, m.lib.HasMediaFolder(), nil
}

// Items implements Catalog.
func (m *Memory) Items(ctx context.Context) iter.Seq2[MediaItem, error] {
	return func(yield func(MediaItem, error) bool) {
		for i := range m.lib.Tracks {
			if err := ctx.Err(); err != nil {
				yield(MediaItem{}, err)
				return
			}
			if !yield(ItemFromTrack(&m.lib.Tracks[i]), nil) {
				return
			}
		}
	}
}

// Close implements Catalog. There is nothing to release.
func (m *Memory) Close() error {
	return nil
}
