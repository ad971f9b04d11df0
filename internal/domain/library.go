package domain

import (
	"slices"
	"time"
)

// Library is one point-in-time copy of a host media library: the tracks in
// library order, the playlists, and where the media lives on disk.
type Library struct {
	// SnapshotDate is when the host wrote this copy of the library.
	SnapshotDate time.Time `json:"snapshot_date"`
	// SourcePath is the file the library was read from.
	SourcePath string `json:"source_path"`
	// MediaFolder is empty when the host does not record one.
	MediaFolder string `json:"media_folder,omitempty"`

	Tracks    []Track    `json:"tracks"`
	Playlists []Playlist `json:"playlists"`
}

// HasMediaFolder reports whether the library records a media folder.
func (l *Library) HasMediaFolder() bool {
	return l.MediaFolder != ""
}

// TotalPlayCount sums play counts over every track. Missing counts contribute zero.
func (l *Library) TotalPlayCount() uint64 {
	var total uint64
	for i := range l.Tracks {
		total += l.Tracks[i].Plays()
	}
	return total
}

// OrderTracks reorders tracks to follow ids, the host's own library order
// (usually the master playlist). Tracks not mentioned keep their relative
// order and go after the ordered ones.
func (l *Library) OrderTracks(ids []int64) {
	if len(ids) == 0 {
		return
	}
	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}
	slices.SortStableFunc(l.Tracks, func(a, b Track) int {
		pa, okA := pos[a.TrackID]
		pb, okB := pos[b.TrackID]
		switch {
		case okA && okB:
			return pa - pb
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
}

// MasterPlaylist returns the playlist that lists the whole library, if any.
func (l *Library) MasterPlaylist() (*Playlist, bool) {
	for i := range l.Playlists {
		if l.Playlists[i].Master {
			return &l.Playlists[i], true
		}
	}
	return nil, false
}

// Playlist is a named list of tracks in the host library.
type Playlist struct {
	PlaylistID   int64   `json:"playlist_id"`
	PersistentID string  `json:"persistent_id,omitempty"`
	Name         string  `json:"name"`
	Master       bool    `json:"master,omitempty"`
	Folder       bool    `json:"folder,omitempty"`
	TrackIDs     []int64 `json:"track_ids,omitempty"`
}
