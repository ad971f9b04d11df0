package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-report/internal/domain"
)

func str(s string) *string { return &s }
func num(n int64) *int64   { return &n }

func sampleLibrary() *domain.Library {
	return &domain.Library{
		MediaFolder: "/Users/me/Music/Media",
		Tracks: []domain.Track{
			{TrackID: 1, Name: str("One"), Artist: str("A"), PlayCount: num(5)},
			{TrackID: 2, Name: str("Two")},
			{TrackID: 3, Name: str("Three"), Artist: str("C"), PlayCount: num(12)},
		},
		Playlists: []domain.Playlist{{PlaylistID: 1, Name: "Library", Master: true}},
	}
}

func TestMemory_Counts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(sampleLibrary())

	n, err := m.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	p, err := m.PlaylistCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p)

	folder, ok, err := m.MediaFolder(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/Users/me/Music/Media", folder)
}

func TestMemory_ItemsInOrderAndRestartable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(sampleLibrary())

	collect := func() []string {
		var titles []string
		for item, err := range m.Items(ctx) {
			require.NoError(t, err)
			titles = append(titles, *item.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"One", "Two", "Three"}, collect())
	assert.Equal(t, []string{"One", "Two", "Three"}, collect())
}

func TestMemory_ItemsEarlyStop(t *testing.T) {
	m := NewMemory(sampleLibrary())

	count := 0
	for range m.Items(context.Background()) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestMemory_MissingFieldsStayNil(t *testing.T) {
	m := NewMemory(sampleLibrary())

	var second MediaItem
	i := 0
	for item, err := range m.Items(context.Background()) {
		require.NoError(t, err)
		if i == 1 {
			second = item
		}
		i++
	}
	assert.Nil(t, second.Artist)
	assert.Nil(t, second.PlayCount)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory(sampleLibrary())

	_, err := m.ItemCount(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	var gotErr error
	for _, err := range m.Items(ctx) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestMemory_NilLibrary(t *testing.T) {
	m := NewMemory(nil)
	n, err := m.ItemCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok, err := m.MediaFolder(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, m.Close())
}

func TestOpenerFunc(t *testing.T) {
	var opener Opener = OpenerFunc(func(context.Context) (Catalog, error) {
		return NewMemory(sampleLibrary()), nil
	})
	cat, err := opener.Open(context.Background())
	require.NoError(t, err)
	n, _ := cat.ItemCount(context.Background())
	assert.Equal(t, 3, n)
}
