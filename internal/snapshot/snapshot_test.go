package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
)

const libraryXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Major Version</key><integer>1</integer>
	<key>Minor Version</key><integer>1</integer>
	<key>Date</key><date>2030-06-01T00:00:00Z</date>
	<key>Tracks</key>
	<dict>
		<key>1</key><dict><key>Track ID</key><integer>1</integer><key>Name</key><string>Song</string><key>Play Count</key><integer>4</integer></dict>
		<key>2</key><dict><key>Track ID</key><integer>2</integer><key>Name</key><string>Other</string></dict>
	</dict>
</dict>
</plist>
`

const emptyLibraryXML = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict><key>Major Version</key><integer>1</integer></dict></plist>
`

// recordingSink keeps what it was asked to store.
type recordingSink struct {
	snaps []*domain.Snapshot
	libs  []*domain.Library
	err   error
}

func (r *recordingSink) StoreSnapshot(_ context.Context, snap *domain.Snapshot, lib *domain.Library) error {
	if r.err != nil {
		return r.err
	}
	r.snaps = append(r.snaps, snap)
	r.libs = append(r.libs, lib)
	return nil
}

func newTestLoader(sink Sink) *Loader {
	l := NewLoader(sink, nil)
	l.now = func() time.Time { return time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) }
	n := 0
	l.newID = func() (string, error) {
		n++
		return fmt.Sprintf("snap-%d", n), nil
	}
	return l
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFindBackups(t *testing.T) {
	volume := t.TempDir()
	// APFS layout with the nested directory.
	require.NoError(t, os.MkdirAll(filepath.Join(volume, "2025-01-03-095001.backup", "2025-01-03-095001.backup"), 0o750))
	// Flat layout.
	require.NoError(t, os.MkdirAll(filepath.Join(volume, "2024-12-30-230000.backup"), 0o750))
	// Noise.
	require.NoError(t, os.MkdirAll(filepath.Join(volume, "not-a-date.backup"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(volume, "Latest"), 0o750))
	writeFile(t, filepath.Join(volume, "2025-02-01-000000.backup"), "a file, not a backup")

	backups, err := FindBackups(volume)
	require.NoError(t, err)
	require.Len(t, backups, 2)

	assert.True(t, backups[0].Date.Equal(time.Date(2024, 12, 30, 23, 0, 0, 0, time.Local)))
	assert.Equal(t, filepath.Join(volume, "2024-12-30-230000.backup"), backups[0].Path)

	assert.True(t, backups[1].Date.Equal(time.Date(2025, 1, 3, 9, 50, 1, 0, time.Local)))
	assert.Equal(t, filepath.Join(volume, "2025-01-03-095001.backup", "2025-01-03-095001.backup"), backups[1].Path)
}

func TestFindBackups_MissingVolume(t *testing.T) {
	_, err := FindBackups(filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestFindLibraryFile(t *testing.T) {
	backup := t.TempDir()

	_, ok := FindLibraryFile(backup, "me")
	assert.False(t, ok)

	legacy := filepath.Join(backup, "Macintosh HD", "Users", "me", "Music", "iTunes", "iTunes Music Library.xml")
	writeFile(t, legacy, libraryXML)
	got, ok := FindLibraryFile(backup, "me")
	require.True(t, ok)
	assert.Equal(t, legacy, got)

	preferred := filepath.Join(backup, "Data", "Users", "me", "Music", "Music", "Music Library.xml")
	writeFile(t, preferred, libraryXML)
	got, ok = FindLibraryFile(backup, "me")
	require.True(t, ok)
	assert.Equal(t, preferred, got)

	_, ok = FindLibraryFile(backup, "someone-else")
	assert.False(t, ok)
}

func TestLoader_LoadXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Music Library.xml")
	writeFile(t, path, libraryXML)
	sink := &recordingSink{}

	snap, err := newTestLoader(sink).LoadXML(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "snap-1", snap.ID)
	assert.Equal(t, "2030-06-01", snap.Date)
	assert.Equal(t, 2, snap.TrackCount)
	assert.Equal(t, path, snap.SourcePath)
	assert.Equal(t, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC), snap.LoadedAt)
	require.Len(t, sink.libs, 1)
	assert.Equal(t, uint64(4), sink.libs[0].TotalPlayCount())
}

func TestLoader_LoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.csv")
	writeFile(t, path, "snapshot_date,persistent_id,title,play_count\n2030-06-02T10:00:00Z,ABCDEF0000000001,Song,3\n")
	sink := &recordingSink{}

	snap, err := newTestLoader(sink).LoadCSV(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "2030-06-02", snap.Date)
	require.Len(t, sink.libs, 1)
	assert.Equal(t, int64(1), sink.libs[0].Tracks[0].TrackID)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := newTestLoader(&recordingSink{}).LoadXML(context.Background(), filepath.Join(t.TempDir(), "none.xml"))
		assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
	})

	t.Run("no tracks", func(t *testing.T) {
		sink := &recordingSink{}
		_, err := newTestLoader(sink).Load(context.Background(), &domain.Library{SourcePath: "/x.xml"})

		assert.ErrorIs(t, err, errors.ErrValidation)
		assert.Empty(t, sink.snaps)
	})

	t.Run("sink failure", func(t *testing.T) {
		sink := &recordingSink{err: fmt.Errorf("disk full")}
		lib := &domain.Library{SnapshotDate: time.Now(), Tracks: []domain.Track{{TrackID: 1}}}

		_, err := newTestLoader(sink).Load(context.Background(), lib)
		assert.ErrorIs(t, err, errors.ErrInternal)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestLoader_LoadTimeMachine(t *testing.T) {
	volume := t.TempDir()
	first := filepath.Join(volume, "2025-01-01-120000.backup", "2025-01-01-120000.backup")
	second := filepath.Join(volume, "2025-01-02-120000.backup", "2025-01-02-120000.backup")
	third := filepath.Join(volume, "2025-01-03-120000.backup")
	fourth := filepath.Join(volume, "2025-01-04-120000.backup")

	writeFile(t, filepath.Join(first, "Data", "Users", "me", "Music", "Music", "Music Library.xml"), libraryXML)
	require.NoError(t, os.MkdirAll(second, 0o750)) // no library
	writeFile(t, filepath.Join(third, "Macintosh HD", "Users", "me", "Music", "iTunes", "iTunes Library.xml"), "garbage")
	writeFile(t, filepath.Join(fourth, "Data", "Users", "me", "Music", "Music", "Music Library.xml"), emptyLibraryXML)

	sink := &recordingSink{}
	res, err := newTestLoader(sink).LoadTimeMachine(context.Background(), volume, "me")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Backups)
	assert.Equal(t, 1, res.Missing)
	require.Len(t, res.Loaded, 1)
	assert.Len(t, res.Failed, 2)
	assert.Contains(t, res.Failed, third)
	assert.Contains(t, res.Failed, fourth)

	// Dated by the backup, not the export's own Date key.
	assert.Equal(t, "2025-01-01", res.Loaded[0].Date)
}

func TestLoader_LoadTimeMachine_SinkFailureStops(t *testing.T) {
	volume := t.TempDir()
	for _, name := range []string{"2025-01-01-120000.backup", "2025-01-02-120000.backup"} {
		writeFile(t, filepath.Join(volume, name, "Data", "Users", "me", "Music", "Music", "Music Library.xml"), libraryXML)
	}
	calls := 0
	sink := SinkFunc(func(context.Context, *domain.Snapshot, *domain.Library) error {
		calls++
		return fmt.Errorf("database locked")
	})

	res, err := newTestLoader(sink).LoadTimeMachine(context.Background(), volume, "me")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, res.Loaded)
}

func TestLoader_LoadTimeMachine_MissingVolume(t *testing.T) {
	_, err := newTestLoader(&recordingSink{}).LoadTimeMachine(context.Background(), filepath.Join(t.TempDir(), "gone"), "me")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
