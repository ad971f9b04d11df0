package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/library-report/internal/domain"
)

// BatchWriter writes library entries through Badger's WriteBatch, flushing
// every maxSize entries.
type BatchWriter struct {
	store   *Store
	batch   *badger.WriteBatch
	maxSize int
	count   int
	total   int
}

// NewBatchWriter creates a batch writer that auto-flushes at maxSize entries.
func (s *Store) NewBatchWriter(maxSize int) *BatchWriter {
	if maxSize < 1 {
		maxSize = 1000
	}
	return &BatchWriter{
		store:   s,
		batch:   s.db.NewWriteBatch(),
		maxSize: maxSize,
	}
}

// PutTrack adds the track at position ordinal in library order.
func (b *BatchWriter) PutTrack(ordinal int, t *domain.Track) error {
	key := buildOrdinalKey(trackPrefix, ordinal, trackWidth)
	defer releaseKey(key)
	return b.put(key, t)
}

// PutPlaylist adds the playlist at position ordinal.
func (b *BatchWriter) PutPlaylist(ordinal int, p *domain.Playlist) error {
	key := buildOrdinalKey(playlistPrefix, ordinal, playlistWidth)
	defer releaseKey(key)
	return b.put(key, p)
}

// PutMeta adds the snapshot description.
func (b *BatchWriter) PutMeta(snap *domain.Snapshot) error {
	return b.put([]byte(metaKey), snap)
}

func (b *BatchWriter) put(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	// WriteBatch keeps the key slice; hand it a copy since ours is pooled.
	if err := b.batch.Set(append([]byte(nil), key...), data); err != nil {
		return fmt.Errorf("batch set %s: %w", key, err)
	}

	b.count++
	if b.count >= b.maxSize {
		if err := b.commit(); err != nil {
			return fmt.Errorf("auto flush: %w", err)
		}
		b.batch = b.store.db.NewWriteBatch()
	}
	return nil
}

// Flush commits all pending writes. The writer must not be used afterwards.
func (b *BatchWriter) Flush() error {
	return b.commit()
}

func (b *BatchWriter) commit() error {
	if err := b.batch.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}

	b.total += b.count
	b.store.logger.LogAttrs(context.Background(), slog.LevelDebug, "batch flushed",
		slog.Int("count", b.count),
		slog.Int("total", b.total),
	)
	b.count = 0
	return nil
}

// Cancel discards all pending writes in the batch.
func (b *BatchWriter) Cancel() {
	b.batch.Cancel()
	b.count = 0
}

// Count returns the number of entries in the current batch.
func (b *BatchWriter) Count() int {
	return b.count
}
