package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/library-report/internal/domain"
	domainerrors "github.com/listenupapp/library-report/internal/errors"
)

const replaceBatchSize = 1000

// ReplaceLibrary makes lib the mirrored library, dropping whatever was
// mirrored before.
func (s *Store) ReplaceLibrary(ctx context.Context, snap *domain.Snapshot, lib *domain.Library) error {
	if s.readOnly {
		return domainerrors.Internalf("library mirror is read-only")
	}

	// Drop the meta key first so an interrupted replace never looks complete.
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(metaKey))
	}); err != nil {
		return fmt.Errorf("delete meta: %w", err)
	}
	if err := s.db.DropPrefix([]byte(trackPrefix), []byte(playlistPrefix)); err != nil {
		return fmt.Errorf("drop previous library: %w", err)
	}

	w := s.NewBatchWriter(replaceBatchSize)
	for i := range lib.Tracks {
		if err := ctx.Err(); err != nil {
			w.Cancel()
			return err
		}
		if err := w.PutTrack(i, &lib.Tracks[i]); err != nil {
			w.Cancel()
			return fmt.Errorf("write track %d: %w", lib.Tracks[i].TrackID, err)
		}
	}
	for i := range lib.Playlists {
		if err := w.PutPlaylist(i, &lib.Playlists[i]); err != nil {
			w.Cancel()
			return fmt.Errorf("write playlist %d: %w", lib.Playlists[i].PlaylistID, err)
		}
	}
	if err := w.PutMeta(snap); err != nil {
		w.Cancel()
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s.logger.Info("library mirrored",
		"date", snap.Date,
		"id", snap.ID,
		"tracks", len(lib.Tracks),
		"playlists", len(lib.Playlists),
	)
	return nil
}

// Meta returns the description of the mirrored library.
// Returns a NotFound error when nothing has been mirrored.
func (s *Store) Meta(context.Context) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.get([]byte(metaKey), &snap)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.NotFoundf("no library has been mirrored")
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	return &snap, nil
}

// HasLibrary reports whether a complete library is mirrored.
func (s *Store) HasLibrary(context.Context) (bool, error) {
	return s.exists([]byte(metaKey))
}

// LoadLibrary reads the whole mirrored library back.
func (s *Store) LoadLibrary(ctx context.Context) (*domain.Library, error) {
	snap, err := s.Meta(ctx)
	if err != nil {
		return nil, err
	}

	lib := &domain.Library{
		SnapshotDate: snap.TakenAt,
		SourcePath:   snap.SourcePath,
		MediaFolder:  snap.MediaFolder,
		Tracks:       make([]domain.Track, 0, snap.TrackCount),
		Playlists:    make([]domain.Playlist, 0, snap.PlaylistCount),
	}

	err = s.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, trackPrefix, func(val []byte) error {
			var t domain.Track
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			lib.Tracks = append(lib.Tracks, t)
			return nil
		}); err != nil {
			return fmt.Errorf("read tracks: %w", err)
		}
		if err := scanPrefix(txn, playlistPrefix, func(val []byte) error {
			var p domain.Playlist
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			lib.Playlists = append(lib.Playlists, p)
			return nil
		}); err != nil {
			return fmt.Errorf("read playlists: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// scanPrefix calls fn with every value under prefix, in key order.
func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	p := []byte(prefix)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = p

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
