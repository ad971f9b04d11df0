package domain

import "time"

// SnapshotDateLayout is the layout of Snapshot.Date. History keeps one
// snapshot per calendar day.
const SnapshotDateLayout = "2006-01-02"

// Snapshot describes one stored copy of a library.
type Snapshot struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	TakenAt       time.Time `json:"taken_at"`
	SourcePath    string    `json:"source_path"`
	MediaFolder   string    `json:"media_folder,omitempty"`
	TrackCount    int       `json:"track_count"`
	PlaylistCount int       `json:"playlist_count"`
	LoadedAt      time.Time `json:"loaded_at"`
}

// NewSnapshot describes lib as a snapshot with the given ID.
func NewSnapshot(id string, lib *Library, loadedAt time.Time) *Snapshot {
	return &Snapshot{
		ID:            id,
		Date:          lib.SnapshotDate.Format(SnapshotDateLayout),
		TakenAt:       lib.SnapshotDate,
		SourcePath:    lib.SourcePath,
		MediaFolder:   lib.MediaFolder,
		TrackCount:    len(lib.Tracks),
		PlaylistCount: len(lib.Playlists),
		LoadedAt:      loadedAt,
	}
}
