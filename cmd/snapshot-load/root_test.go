package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/store"
	"github.com/listenupapp/library-report/internal/store/sqlite"
)

const libraryXML = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>Major Version</key><integer>1</integer>
	<key>Date</key><date>2025-01-03T09:50:01Z</date>
	<key>Tracks</key>
	<dict>
		<key>1</key><dict><key>Track ID</key><integer>1</integer><key>Name</key><string>Blue</string><key>Play Count</key><integer>7</integer></dict>
		<key>2</key><dict><key>Track ID</key><integer>2</integer><key>Name</key><string>River</string></dict>
	</dict>
</dict>
</plist>
`

// execute runs the command tree in an isolated environment rooted at dataDir.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(dataDir, "none.env"))
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ENV", "development")
	t.Setenv("CATALOG_SOURCE", "")
	t.Setenv("CATALOG_PATH", "")
	t.Setenv("CATALOG_SNAPSHOT_DATE", "")
	t.Setenv("REPORT_LIMIT", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestXML_DefaultSQLiteTarget(t *testing.T) {
	dataDir := t.TempDir()
	export := filepath.Join(t.TempDir(), "Music Library.xml")
	writeFile(t, export, libraryXML)

	out, err := execute(t, dataDir, "xml", export)
	require.NoError(t, err)
	dbPath := filepath.Join(dataDir, "snapshots.db")
	assert.Equal(t, "Loaded 2025-01-03: 2 tracks, 0 playlists into "+dbPath+"\n", out)

	s, err := sqlite.OpenReadOnly(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()
	snaps, err := s.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 2, snaps[0].TrackCount)

	// Loading the same day again replaces it.
	_, err = execute(t, dataDir, "xml", export)
	require.NoError(t, err)
	snaps, err = s.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestCSV_BadgerTarget(t *testing.T) {
	dataDir := t.TempDir()
	export := filepath.Join(t.TempDir(), "library.csv")
	writeFile(t, export, "snapshot_date,title,artist,play_count\n2025-01-04T08:00:00Z,A,X,3\n,B,Y,1\n")
	mirrorDir := filepath.Join(t.TempDir(), "mirror")

	out, err := execute(t, dataDir, "csv", export, "--target", "badger", "--db", mirrorDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2025-01-04: 2 tracks")

	s, err := store.OpenReadOnly(mirrorDir, nil)
	require.NoError(t, err)
	defer s.Close()
	lib, err := s.LoadLibrary(context.Background())
	require.NoError(t, err)
	assert.Len(t, lib.Tracks, 2)
}

func TestTimeMachine(t *testing.T) {
	dataDir := t.TempDir()
	volume := t.TempDir()
	writeFile(t, filepath.Join(volume, "2025-01-01-120000.backup", "2025-01-01-120000.backup",
		"Data", "Users", "me", "Music", "Music", "Music Library.xml"), libraryXML)
	require.NoError(t, os.MkdirAll(filepath.Join(volume, "2025-01-02-120000.backup"), 0o750))

	out, err := execute(t, dataDir, "timemachine", volume, "--user", "me")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2025-01-01: 2 tracks\n")
	assert.Contains(t, out, "Backups: 2, loaded: 1, without library: 1, failed: 0\n")
}

func TestErrors(t *testing.T) {
	dataDir := t.TempDir()

	t.Run("unknown target", func(t *testing.T) {
		_, err := execute(t, dataDir, "xml", "whatever.xml", "--target", "postgres")
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("missing export", func(t *testing.T) {
		_, err := execute(t, dataDir, "xml", filepath.Join(dataDir, "none.xml"))
		assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
	})

	t.Run("missing volume", func(t *testing.T) {
		_, err := execute(t, dataDir, "timemachine", filepath.Join(dataDir, "none"), "--user", "me")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("no args", func(t *testing.T) {
		_, err := execute(t, dataDir, "csv")
		assert.Error(t, err)
	})
}
