package domain

import "time"

// Track is one media item as recorded by the host library.
// Pointer fields are nil when the host left the field out.
type Track struct {
	TrackID      int64  `json:"track_id"`
	PersistentID string `json:"persistent_id,omitempty"`

	Name        *string `json:"name,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	AlbumArtist *string `json:"album_artist,omitempty"`
	Album       *string `json:"album,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	Kind        *string `json:"kind,omitempty"`

	TotalTimeMs *int64 `json:"total_time_ms,omitempty"`
	DiscNumber  *int64 `json:"disc_number,omitempty"`
	DiscCount   *int64 `json:"disc_count,omitempty"`
	TrackNumber *int64 `json:"track_number,omitempty"`
	TrackCount  *int64 `json:"track_count,omitempty"`
	Year        *int64 `json:"year,omitempty"`

	DateAdded   *time.Time `json:"date_added,omitempty"`
	PlayCount   *int64     `json:"play_count,omitempty"`
	PlayDateUTC *time.Time `json:"play_date_utc,omitempty"`
	SkipCount   *int64     `json:"skip_count,omitempty"`
	SkipDate    *time.Time `json:"skip_date,omitempty"`
	Rating      *int64     `json:"rating,omitempty"`
	Loved       bool       `json:"loved,omitempty"`

	Location *string `json:"location,omitempty"`
}

// Plays returns the play count, treating a missing or negative count as zero.
func (t *Track) Plays() uint64 {
	if t.PlayCount == nil || *t.PlayCount < 0 {
		return 0
	}
	return uint64(*t.PlayCount)
}
