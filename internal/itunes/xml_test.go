package itunes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-report/internal/errors"
)

const plistHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

const sampleLibraryXML = plistHeader + `<dict>
	<key>Major Version</key><integer>1</integer>
	<key>Minor Version</key><integer>1</integer>
	<key>Date</key><date>2025-01-03T09:50:01Z</date>
	<key>Application Version</key><string>1.5.0.75</string>
	<key>Music Folder</key><string>file:///Users/me/Music/Music/Media.localized/</string>
	<key>Tracks</key>
	<dict>
		<key>10</key>
		<dict>
			<key>Track ID</key><integer>10</integer>
			<key>Name</key><string>Intro</string>
			<key>Artist</key><string>Band</string>
			<key>Album</key><string>First</string>
			<key>Play Count</key><integer>5</integer>
			<key>Date Added</key><date>2024-06-01T12:00:00Z</date>
			<key>Persistent ID</key><string>8F1A2B3C4D5E6F70</string>
			<key>Loved</key><true/>
		</dict>
		<key>20</key>
		<dict>
			<key>Track ID</key><integer>20</integer>
			<key>Name</key><string>Middle</string>
			<key>Artist</key><string>Band</string>
		</dict>
		<key>30</key>
		<dict>
			<key>Track ID</key><integer>30</integer>
			<key>Name</key><string>Outro</string>
			<key>Play Count</key><integer>12</integer>
		</dict>
	</dict>
	<key>Playlists</key>
	<array>
		<dict>
			<key>Name</key><string>Library</string>
			<key>Master</key><true/>
			<key>Playlist ID</key><integer>100</integer>
			<key>Playlist Persistent ID</key><string>AAAA000000000001</string>
			<key>Playlist Items</key>
			<array>
				<dict><key>Track ID</key><integer>30</integer></dict>
				<dict><key>Track ID</key><integer>10</integer></dict>
				<dict><key>Track ID</key><integer>20</integer></dict>
			</array>
		</dict>
		<dict>
			<key>Name</key><string>Favourites</string>
			<key>Playlist ID</key><integer>101</integer>
			<key>Playlist Items</key>
			<array>
				<dict><key>Track ID</key><integer>10</integer></dict>
			</array>
		</dict>
	</array>
</dict>
</plist>
`

func TestDecodeLibraryXML(t *testing.T) {
	lib, err := DecodeLibraryXML(strings.NewReader(sampleLibraryXML))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 3, 9, 50, 1, 0, time.UTC), lib.SnapshotDate.UTC())
	assert.Equal(t, "/Users/me/Music/Music/Media.localized", lib.MediaFolder)
	require.Len(t, lib.Tracks, 3)
	require.Len(t, lib.Playlists, 2)

	first := lib.Tracks[0]
	assert.Equal(t, int64(30), first.TrackID)
	require.NotNil(t, first.Name)
	assert.Equal(t, "Outro", *first.Name)
	assert.Nil(t, first.Artist)

	intro := lib.Tracks[1]
	assert.Equal(t, int64(10), intro.TrackID)
	assert.Equal(t, "8F1A2B3C4D5E6F70", intro.PersistentID)
	assert.True(t, intro.Loved)
	require.NotNil(t, intro.DateAdded)
	require.NotNil(t, intro.PlayCount)
	assert.Equal(t, int64(5), *intro.PlayCount)

	assert.Nil(t, lib.Tracks[2].PlayCount)
	assert.Equal(t, uint64(17), lib.TotalPlayCount())

	master, ok := lib.MasterPlaylist()
	require.True(t, ok)
	assert.Equal(t, "Library", master.Name)
	assert.Equal(t, []int64{30, 10, 20}, master.TrackIDs)
}

func TestDecodeLibraryXML_NoMasterPlaylistSortsByTrackID(t *testing.T) {
	doc := plistHeader + `<dict>
	<key>Major Version</key><integer>1</integer>
	<key>Minor Version</key><integer>1</integer>
	<key>Tracks</key>
	<dict>
		<key>7</key><dict><key>Track ID</key><integer>7</integer></dict>
		<key>3</key><dict><key>Name</key><string>keyed only</string></dict>
		<key>5</key><dict><key>Track ID</key><integer>5</integer></dict>
	</dict>
</dict>
</plist>
`
	lib, err := DecodeLibraryXML(strings.NewReader(doc))
	require.NoError(t, err)

	ids := make([]int64, 0, len(lib.Tracks))
	for _, tr := range lib.Tracks {
		ids = append(ids, tr.TrackID)
	}
	assert.Equal(t, []int64{3, 5, 7}, ids)
	assert.Empty(t, lib.Playlists)
	assert.False(t, lib.HasMediaFolder())
	assert.True(t, lib.SnapshotDate.IsZero())
}

func TestDecodeLibraryXML_NormalizesNames(t *testing.T) {
	doc := plistHeader + `<dict>
	<key>Major Version</key><integer>1</integer>
	<key>Tracks</key>
	<dict>
		<key>1</key><dict>
			<key>Track ID</key><integer>1</integer>
			<key>Name</key><string>Cafe` + "\u0301" + `</string>
			<key>Artist</key><string></string>
		</dict>
	</dict>
</dict>
</plist>
`
	lib, err := DecodeLibraryXML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, lib.Tracks, 1)

	assert.Equal(t, "Caf\u00e9", *lib.Tracks[0].Name)
	require.NotNil(t, lib.Tracks[0].Artist, "an empty artist is present, not missing")
	assert.Equal(t, "", *lib.Tracks[0].Artist)
}

func TestDecodeLibraryXML_UnsupportedVersion(t *testing.T) {
	doc := plistHeader + `<dict>
	<key>Major Version</key><integer>2</integer>
	<key>Minor Version</key><integer>0</integer>
</dict>
</plist>
`
	_, err := DecodeLibraryXML(strings.NewReader(doc))

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "unsupported library version 2.0")
}

func TestDecodeLibraryXML_Garbage(t *testing.T) {
	_, err := DecodeLibraryXML(strings.NewReader("<plist><dict><key>"))

	assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
}

func TestReadLibraryXML(t *testing.T) {
	t.Run("reads file and records source path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Music Library.xml")
		require.NoError(t, os.WriteFile(path, []byte(sampleLibraryXML), 0o600))

		lib, err := ReadLibraryXML(path)
		require.NoError(t, err)
		assert.Equal(t, path, lib.SourcePath)
		assert.Len(t, lib.Tracks, 3)
	})

	t.Run("missing Date falls back to modification time", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Music Library.xml")
		doc := plistHeader + "<dict><key>Major Version</key><integer>1</integer></dict></plist>\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
		mtime := time.Date(2024, 12, 24, 18, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(path, mtime, mtime))

		lib, err := ReadLibraryXML(path)
		require.NoError(t, err)
		assert.True(t, lib.SnapshotDate.Equal(mtime))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadLibraryXML(filepath.Join(t.TempDir(), "nope.xml"))

		assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "library not found")
	})

	t.Run("directory", func(t *testing.T) {
		_, err := ReadLibraryXML(t.TempDir())

		assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
	})
}
