package itunes

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/normalize"
)

// CSV columns written by music-library-exporter.
const (
	colSnapshotDate   = "snapshot_date"
	colPersistentID   = "persistent_id"
	colTitle          = "title"
	colArtist         = "artist"
	colAlbumArtist    = "album_artist"
	colAlbum          = "album"
	colGenre          = "genre"
	colKind           = "kind"
	colTotalTime      = "total_time"
	colDiscNumber     = "disc_number"
	colDiscCount      = "disc_count"
	colTrackNumber    = "track_number"
	colTrackCount     = "track_count"
	colYear           = "year"
	colDateAdded      = "date_added"
	colPlayCount      = "play_count"
	colLastPlayedDate = "last_played_date"
	colSkipCount      = "skip_count"
	colSkipDate       = "skip_date"
	colRating         = "rating"
	colLoved          = "loved"
	colLocation       = "location"
)

// ReadLibraryCSV opens and parses a music-library-exporter CSV file.
func ReadLibraryCSV(path string) (*domain.Library, error) {
	f, err := os.Open(path) //#nosec G304 -- library path is user configuration
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	lib, err := DecodeLibraryCSV(f)
	if err != nil {
		return nil, err
	}
	lib.SourcePath = path
	return lib, nil
}

// DecodeLibraryCSV parses a CSV export from r. The snapshot date comes from
// the first row; when it is missing or unparseable the current time is used.
// CSV exports carry no playlists and no media folder.
func DecodeLibraryCSV(r io.Reader) (*domain.Library, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.CatalogUnavailable("CSV export is empty")
	}
	if err != nil {
		return nil, errors.CatalogUnavailable("not a readable CSV export").WithCause(err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := cols[colTitle]; !ok {
		return nil, errors.CatalogUnavailablef("CSV export has no %q column", colTitle)
	}

	lib := &domain.Library{}
	for index := 0; ; index++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.CatalogUnavailablef("malformed CSV export at row %d", index+2).WithCause(err)
		}
		row := csvRow{cols: cols, record: record}

		if index == 0 {
			date, ok := row.timestamp(colSnapshotDate)
			if !ok {
				slog.Warn("CSV export has no usable snapshot_date, using current time")
				date = time.Now()
			}
			lib.SnapshotDate = date
		}

		track, err := row.track(index)
		if err != nil {
			return nil, errors.CatalogUnavailablef("malformed CSV export at row %d", index+2).WithCause(err)
		}
		lib.Tracks = append(lib.Tracks, track)
	}

	if lib.SnapshotDate.IsZero() {
		lib.SnapshotDate = time.Now()
	}
	return lib, nil
}

// TrackIDFromPersistentID derives a numeric track ID from the low 8 hex digits
// of a persistent ID. It reports false when the ID is empty or not hex.
func TrackIDFromPersistentID(pid string) (int64, bool) {
	if pid == "" {
		return 0, false
	}
	if len(pid) > 8 {
		pid = pid[len(pid)-8:]
	}
	v, err := strconv.ParseUint(pid, 16, 32)
	if err != nil {
		return 0, false
	}
	return int64(v), true
}

type csvRow struct {
	cols   map[string]int
	record []string
}

func (r csvRow) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) text(col string) *string {
	return normalize.OptionalText(r.get(col))
}

func (r csvRow) integer(col string) (*int64, error) {
	s := r.get(col)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.Validationf("column %s: %q is not a number", col, s)
	}
	return &v, nil
}

// timestamp parses an RFC 3339 timestamp ("Z" or numeric offset).
func (r csvRow) timestamp(col string) (time.Time, bool) {
	s := r.get(col)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r csvRow) optionalTime(col string) *time.Time {
	t, ok := r.timestamp(col)
	if !ok {
		return nil
	}
	return &t
}

func (r csvRow) track(index int) (domain.Track, error) {
	pid := r.get(colPersistentID)
	id, ok := TrackIDFromPersistentID(pid)
	if !ok {
		id = int64(index)
	}

	t := domain.Track{
		TrackID:      id,
		PersistentID: pid,
		Name:         r.text(colTitle),
		Artist:       r.text(colArtist),
		AlbumArtist:  r.text(colAlbumArtist),
		Album:        r.text(colAlbum),
		Genre:        r.text(colGenre),
		Kind:         r.text(colKind),
		DateAdded:    r.optionalTime(colDateAdded),
		PlayDateUTC:  r.optionalTime(colLastPlayedDate),
		SkipDate:     r.optionalTime(colSkipDate),
		Loved:        strings.EqualFold(r.get(colLoved), "true"),
		Location:     r.text(colLocation),
	}
	// The exporter writes an empty title for untitled items; keep it present.
	if t.Name == nil {
		empty := ""
		t.Name = &empty
	}

	ints := []struct {
		col string
		dst **int64
	}{
		{colTotalTime, &t.TotalTimeMs},
		{colDiscNumber, &t.DiscNumber},
		{colDiscCount, &t.DiscCount},
		{colTrackNumber, &t.TrackNumber},
		{colTrackCount, &t.TrackCount},
		{colYear, &t.Year},
		{colPlayCount, &t.PlayCount},
		{colSkipCount, &t.SkipCount},
		{colRating, &t.Rating},
	}
	for _, f := range ints {
		v, err := r.integer(f.col)
		if err != nil {
			return domain.Track{}, err
		}
		*f.dst = v
	}

	// Counts default to zero in exports.
	var zero int64
	if t.PlayCount == nil {
		t.PlayCount = &zero
	}
	if t.SkipCount == nil {
		skips := zero
		t.SkipCount = &skips
	}
	return t, nil
}
