// Package itunes reads the library exports written by iTunes and the macOS
// Music app: the "Music Library.xml" property list and the CSV produced by
// music-library-exporter.
package itunes

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"howett.net/plist"

	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/normalize"
)

// SupportedMajorVersion is the library XML format version this package reads.
const SupportedMajorVersion = 1

// xmlLibrary mirrors the top-level dictionary of a library XML export.
type xmlLibrary struct {
	MajorVersion       int                 `plist:"Major Version"`
	MinorVersion       int                 `plist:"Minor Version"`
	Date               *time.Time          `plist:"Date"`
	ApplicationVersion string              `plist:"Application Version"`
	MusicFolder        string              `plist:"Music Folder"`
	Tracks             map[string]xmlTrack `plist:"Tracks"`
	Playlists          []xmlPlaylist       `plist:"Playlists"`
}

type xmlTrack struct {
	TrackID      int64      `plist:"Track ID"`
	PersistentID string     `plist:"Persistent ID"`
	Name         *string    `plist:"Name"`
	Artist       *string    `plist:"Artist"`
	AlbumArtist  *string    `plist:"Album Artist"`
	Album        *string    `plist:"Album"`
	Genre        *string    `plist:"Genre"`
	Kind         *string    `plist:"Kind"`
	TotalTime    *int64     `plist:"Total Time"`
	DiscNumber   *int64     `plist:"Disc Number"`
	DiscCount    *int64     `plist:"Disc Count"`
	TrackNumber  *int64     `plist:"Track Number"`
	TrackCount   *int64     `plist:"Track Count"`
	Year         *int64     `plist:"Year"`
	DateAdded    *time.Time `plist:"Date Added"`
	PlayCount    *int64     `plist:"Play Count"`
	PlayDateUTC  *time.Time `plist:"Play Date UTC"`
	SkipCount    *int64     `plist:"Skip Count"`
	SkipDate     *time.Time `plist:"Skip Date"`
	Rating       *int64     `plist:"Rating"`
	Loved        bool       `plist:"Loved"`
	Location     *string    `plist:"Location"`
}

type xmlPlaylist struct {
	PlaylistID   int64             `plist:"Playlist ID"`
	PersistentID string            `plist:"Playlist Persistent ID"`
	Name         string            `plist:"Name"`
	Master       bool              `plist:"Master"`
	Folder       bool              `plist:"Folder"`
	Items        []xmlPlaylistItem `plist:"Playlist Items"`
}

type xmlPlaylistItem struct {
	TrackID int64 `plist:"Track ID"`
}

// ReadLibraryXML opens and parses a library XML export.
// Every failure to get a usable library out of path is a CatalogUnavailable error.
func ReadLibraryXML(path string) (*domain.Library, error) {
	f, err := os.Open(path) //#nosec G304 -- library path is user configuration
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, openError(path, err)
	}
	if info.IsDir() {
		return nil, errors.CatalogUnavailablef("library %s is a directory, not an XML export", path)
	}

	lib, err := DecodeLibraryXML(f)
	if err != nil {
		return nil, err
	}

	lib.SourcePath = path
	if lib.SnapshotDate.IsZero() {
		slog.Warn("library XML has no Date key, using file modification time", "path", path)
		lib.SnapshotDate = info.ModTime()
	}
	return lib, nil
}

// DecodeLibraryXML parses a library XML export from r.
func DecodeLibraryXML(r io.ReadSeeker) (*domain.Library, error) {
	var raw xmlLibrary
	if err := plist.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.CatalogUnavailable("not a readable library export").WithCause(err)
	}

	if raw.MajorVersion != SupportedMajorVersion {
		return nil, errors.CatalogUnavailablef(
			"unsupported library version %d.%d (want %d.x)",
			raw.MajorVersion, raw.MinorVersion, SupportedMajorVersion,
		)
	}

	slog.Debug("decoded library XML",
		"version", fmt.Sprintf("%d.%d", raw.MajorVersion, raw.MinorVersion),
		"application_version", raw.ApplicationVersion,
		"tracks", len(raw.Tracks),
		"playlists", len(raw.Playlists),
	)

	lib := &domain.Library{
		Tracks:    make([]domain.Track, 0, len(raw.Tracks)),
		Playlists: make([]domain.Playlist, 0, len(raw.Playlists)),
	}
	if raw.Date != nil {
		lib.SnapshotDate = *raw.Date
	}

	folder, err := normalize.FileURLPath(raw.MusicFolder)
	if err != nil {
		slog.Warn("ignoring unusable music folder", "music_folder", raw.MusicFolder, "error", err)
	} else {
		lib.MediaFolder = folder
	}

	for key, t := range raw.Tracks {
		id := t.TrackID
		if id == 0 {
			// Older exports only carry the ID as the dictionary key.
			id, _ = strconv.ParseInt(key, 10, 64)
		}
		lib.Tracks = append(lib.Tracks, t.toDomain(id))
	}
	// Map iteration is random; start from ascending track ID, then apply the
	// host's own order from the master playlist when there is one.
	slices.SortFunc(lib.Tracks, func(a, b domain.Track) int {
		switch {
		case a.TrackID < b.TrackID:
			return -1
		case a.TrackID > b.TrackID:
			return 1
		default:
			return 0
		}
	})

	for _, p := range raw.Playlists {
		lib.Playlists = append(lib.Playlists, p.toDomain())
	}
	if master, ok := lib.MasterPlaylist(); ok {
		lib.OrderTracks(master.TrackIDs)
	}

	return lib, nil
}

func (t xmlTrack) toDomain(id int64) domain.Track {
	return domain.Track{
		TrackID:      id,
		PersistentID: t.PersistentID,
		Name:         normalized(t.Name),
		Artist:       normalized(t.Artist),
		AlbumArtist:  normalized(t.AlbumArtist),
		Album:        normalized(t.Album),
		Genre:        normalized(t.Genre),
		Kind:         t.Kind,
		TotalTimeMs:  t.TotalTime,
		DiscNumber:   t.DiscNumber,
		DiscCount:    t.DiscCount,
		TrackNumber:  t.TrackNumber,
		TrackCount:   t.TrackCount,
		Year:         t.Year,
		DateAdded:    t.DateAdded,
		PlayCount:    t.PlayCount,
		PlayDateUTC:  t.PlayDateUTC,
		SkipCount:    t.SkipCount,
		SkipDate:     t.SkipDate,
		Rating:       t.Rating,
		Loved:        t.Loved,
		Location:     t.Location,
	}
}

func (p xmlPlaylist) toDomain() domain.Playlist {
	ids := make([]int64, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.TrackID)
	}
	return domain.Playlist{
		PlaylistID:   p.PlaylistID,
		PersistentID: p.PersistentID,
		Name:         normalize.Text(p.Name),
		Master:       p.Master,
		Folder:       p.Folder,
		TrackIDs:     ids,
	}
}

// normalized keeps a present-but-empty field present; only nil means absent.
func normalized(s *string) *string {
	if s == nil {
		return nil
	}
	v := normalize.Text(*s)
	return &v
}

// openError classifies a failure to open a library file.
func openError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.CatalogUnavailablef("library not found at %s", path).WithCause(err)
	case errors.Is(err, fs.ErrPermission):
		return errors.CatalogUnavailablef("permission denied reading library %s", path).WithCause(err)
	default:
		return errors.CatalogUnavailablef("cannot open library %s", path).WithCause(err)
	}
}
