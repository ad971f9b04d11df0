package store

import (
	"strconv"
	"sync"
)

// Key layout:
//
//	library:meta           snapshot description (JSON domain.Snapshot)
//	track:{ordinal:010}    track in library order (JSON domain.Track)
//	playlist:{ordinal:06}  playlist in library order (JSON domain.Playlist)
//
// Ordinals are zero-padded so Badger's byte order is library order.
const (
	metaKey        = "library:meta"
	trackPrefix    = "track:"
	playlistPrefix = "playlist:"

	trackWidth    = 10
	playlistWidth = 6
)

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 32)
	},
}

// buildOrdinalKey constructs prefix followed by ordinal zero-padded to width.
// The returned slice is valid until releaseKey is called.
func buildOrdinalKey(prefix string, ordinal, width int) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)

	var digits [20]byte
	d := strconv.AppendInt(digits[:0], int64(ordinal), 10)
	for i := len(d); i < width; i++ {
		buf = append(buf, '0')
	}
	return append(buf, d...)
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 64 {
		keyPool.Put(key[:0])
	}
}
