package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
)

// snapshotColumns is the ordered list of columns selected in snapshot queries.
// Must match the scan order in scanSnapshot.
const snapshotColumns = `snapshot_date, snapshot_id, snapshot_path, taken_at, media_folder,
	track_count, playlist_count, loaded_at`

func scanSnapshot(scanner interface{ Scan(dest ...any) error }) (*domain.Snapshot, error) {
	var (
		snap        domain.Snapshot
		takenAt     string
		loadedAt    string
		mediaFolder sql.NullString
	)
	err := scanner.Scan(
		&snap.Date,
		&snap.ID,
		&snap.SourcePath,
		&takenAt,
		&mediaFolder,
		&snap.TrackCount,
		&snap.PlaylistCount,
		&loadedAt,
	)
	if err != nil {
		return nil, err
	}

	if snap.TakenAt, err = parseTime(takenAt); err != nil {
		return nil, fmt.Errorf("snapshot %s taken_at: %w", snap.Date, err)
	}
	if snap.LoadedAt, err = parseTime(loadedAt); err != nil {
		return nil, fmt.Errorf("snapshot %s loaded_at: %w", snap.Date, err)
	}
	snap.MediaFolder = mediaFolder.String

	return &snap, nil
}

// ReplaceSnapshot stores lib as the snapshot for snap.Date, replacing any
// snapshot already stored for that day. The delete and the inserts run in one
// transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap *domain.Snapshot, lib *domain.Library) (err error) {
	if s.readOnly {
		return errors.Internalf("snapshot database is read-only")
	}
	if _, perr := time.Parse(domain.SnapshotDateLayout, snap.Date); perr != nil {
		return errors.Validationf("invalid snapshot date %q", snap.Date)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM raw_itunes_library WHERE snapshot_date = ?`, snap.Date); err != nil {
		return fmt.Errorf("delete tracks for %s: %w", snap.Date, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_date = ?`, snap.Date)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", snap.Date, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("replacing existing snapshot", "date", snap.Date)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Date,
		snap.ID,
		snap.SourcePath,
		formatTime(snap.TakenAt),
		nullString(snap.MediaFolder),
		len(lib.Tracks),
		len(lib.Playlists),
		formatTime(snap.LoadedAt),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.Date, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_itunes_library (
			snapshot_date, ordinal, snapshot_path, track_id,
			name, artist, album_artist, album, genre, kind,
			total_time, disc_number, disc_count, track_number, track_count, year,
			date_added, play_count, play_date_utc, skip_count, skip_date, rating,
			loved, persistent_id, location
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i := range lib.Tracks {
		t := &lib.Tracks[i]
		_, err = stmt.ExecContext(ctx,
			snap.Date,
			i,
			snap.SourcePath,
			t.TrackID,
			nullableString(t.Name),
			nullableString(t.Artist),
			nullableString(t.AlbumArtist),
			nullableString(t.Album),
			nullableString(t.Genre),
			nullableString(t.Kind),
			nullableInt64(t.TotalTimeMs),
			nullableInt64(t.DiscNumber),
			nullableInt64(t.DiscCount),
			nullableInt64(t.TrackNumber),
			nullableInt64(t.TrackCount),
			nullableInt64(t.Year),
			nullTimeString(t.DateAdded),
			nullableInt64(t.PlayCount),
			nullTimeString(t.PlayDateUTC),
			nullableInt64(t.SkipCount),
			nullTimeString(t.SkipDate),
			nullableInt64(t.Rating),
			boolToInt(t.Loved),
			nullString(t.PersistentID),
			nullableString(t.Location),
		)
		if err != nil {
			return fmt.Errorf("insert track %d of %s: %w", t.TrackID, snap.Date, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", snap.Date, err)
	}

	s.logger.Info("snapshot stored",
		"date", snap.Date,
		"id", snap.ID,
		"tracks", len(lib.Tracks),
		"playlists", len(lib.Playlists),
	)
	return nil
}

// ListSnapshots returns every stored snapshot, oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]*domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY snapshot_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// GetSnapshot returns the snapshot stored for date (YYYY-MM-DD).
// Returns a NotFound error when there is none.
func (s *Store) GetSnapshot(ctx context.Context, date string) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE snapshot_date = ?`, date)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no snapshot for %s", date)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot.
// Returns a NotFound error when the history is empty.
func (s *Store) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY snapshot_date DESC LIMIT 1`)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no snapshots stored")
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// trackColumns is the ordered list of columns selected in track queries.
// Must match the scan order in scanTrack.
const trackColumns = `track_id, name, artist, album_artist, album, genre, kind,
	total_time, disc_number, disc_count, track_number, track_count, year,
	date_added, play_count, play_date_utc, skip_count, skip_date, rating,
	loved, persistent_id, location`

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*domain.Track, error) {
	var (
		t            domain.Track
		name         sql.NullString
		artist       sql.NullString
		albumArtist  sql.NullString
		album        sql.NullString
		genre        sql.NullString
		kind         sql.NullString
		totalTime    sql.NullInt64
		discNumber   sql.NullInt64
		discCount    sql.NullInt64
		trackNumber  sql.NullInt64
		trackCount   sql.NullInt64
		year         sql.NullInt64
		dateAdded    sql.NullString
		playCount    sql.NullInt64
		playDate     sql.NullString
		skipCount    sql.NullInt64
		skipDate     sql.NullString
		rating       sql.NullInt64
		loved        int
		persistentID sql.NullString
		location     sql.NullString
	)
	err := scanner.Scan(
		&t.TrackID, &name, &artist, &albumArtist, &album, &genre, &kind,
		&totalTime, &discNumber, &discCount, &trackNumber, &trackCount, &year,
		&dateAdded, &playCount, &playDate, &skipCount, &skipDate, &rating,
		&loved, &persistentID, &location,
	)
	if err != nil {
		return nil, err
	}

	t.Name = stringPtr(name)
	t.Artist = stringPtr(artist)
	t.AlbumArtist = stringPtr(albumArtist)
	t.Album = stringPtr(album)
	t.Genre = stringPtr(genre)
	t.Kind = stringPtr(kind)
	t.TotalTimeMs = int64Ptr(totalTime)
	t.DiscNumber = int64Ptr(discNumber)
	t.DiscCount = int64Ptr(discCount)
	t.TrackNumber = int64Ptr(trackNumber)
	t.TrackCount = int64Ptr(trackCount)
	t.Year = int64Ptr(year)
	t.PlayCount = int64Ptr(playCount)
	t.SkipCount = int64Ptr(skipCount)
	t.Rating = int64Ptr(rating)
	t.Loved = loved != 0
	t.PersistentID = persistentID.String
	t.Location = stringPtr(location)

	if t.DateAdded, err = parseNullableTime(dateAdded); err != nil {
		return nil, fmt.Errorf("track %d date_added: %w", t.TrackID, err)
	}
	if t.PlayDateUTC, err = parseNullableTime(playDate); err != nil {
		return nil, fmt.Errorf("track %d play_date_utc: %w", t.TrackID, err)
	}
	if t.SkipDate, err = parseNullableTime(skipDate); err != nil {
		return nil, fmt.Errorf("track %d skip_date: %w", t.TrackID, err)
	}

	return &t, nil
}

// LoadLibrary reads a stored snapshot back as a library, tracks in their
// original order. Playlist membership is not kept in history.
func (s *Store) LoadLibrary(ctx context.Context, date string) (*domain.Library, error) {
	snap, err := s.GetSnapshot(ctx, date)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM raw_itunes_library WHERE snapshot_date = ? ORDER BY ordinal ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("query tracks for %s: %w", date, err)
	}
	defer rows.Close()

	lib := &domain.Library{
		SnapshotDate: snap.TakenAt,
		SourcePath:   snap.SourcePath,
		MediaFolder:  snap.MediaFolder,
		Tracks:       make([]domain.Track, 0, snap.TrackCount),
	}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		lib.Tracks = append(lib.Tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lib, nil
}
