// Package snapshot imports library exports into snapshot storage: single
// XML or CSV files, or every backup on a Time Machine volume.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/id"
	"github.com/listenupapp/library-report/internal/itunes"
)

// Sink stores a parsed library.
type Sink interface {
	StoreSnapshot(ctx context.Context, snap *domain.Snapshot, lib *domain.Library) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, snap *domain.Snapshot, lib *domain.Library) error

// StoreSnapshot calls f.
func (f SinkFunc) StoreSnapshot(ctx context.Context, snap *domain.Snapshot, lib *domain.Library) error {
	return f(ctx, snap, lib)
}

// Loader parses exports and hands them to a Sink.
type Loader struct {
	sink   Sink
	logger *slog.Logger

	now   func() time.Time
	newID func() (string, error)
}

// NewLoader creates a loader writing to sink.
func NewLoader(sink Sink, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		sink:   sink,
		logger: logger,
		now:    time.Now,
		newID:  id.Snapshot,
	}
}

// LoadXML parses a library XML export and stores it.
func (l *Loader) LoadXML(ctx context.Context, path string) (*domain.Snapshot, error) {
	lib, err := itunes.ReadLibraryXML(path)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, lib)
}

// LoadCSV parses a CSV export and stores it.
func (l *Loader) LoadCSV(ctx context.Context, path string) (*domain.Snapshot, error) {
	lib, err := itunes.ReadLibraryCSV(path)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, lib)
}

// Load stores an already parsed library. A library without tracks is
// rejected with a Validation error and nothing is stored.
func (l *Loader) Load(ctx context.Context, lib *domain.Library) (*domain.Snapshot, error) {
	if len(lib.Tracks) == 0 {
		return nil, errors.Validationf("no tracks to load from %s", lib.SourcePath)
	}

	snapID, err := l.newID()
	if err != nil {
		return nil, err
	}
	snap := domain.NewSnapshot(snapID, lib, l.now())

	if err := l.sink.StoreSnapshot(ctx, snap, lib); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "store snapshot %s", snap.Date)
	}

	l.logger.Info("snapshot loaded",
		"date", snap.Date,
		"tracks", snap.TrackCount,
		"source", snap.SourcePath,
	)
	return snap, nil
}

// Result summarizes a Time Machine import.
type Result struct {
	Backups int
	Loaded  []*domain.Snapshot
	// Missing counts backups that hold no library export for the user.
	Missing int
	// Failed maps the backup path to why its export could not be loaded.
	Failed map[string]error
}

// LoadTimeMachine loads user's library export from every backup on volume,
// oldest first. Each snapshot is dated by its backup. Backups without an
// export, or with one that cannot be parsed, are skipped and reported in
// the result; only a failure to list the volume or to store a snapshot
// stops the import.
func (l *Loader) LoadTimeMachine(ctx context.Context, volume, user string) (*Result, error) {
	backups, err := FindBackups(volume)
	if err != nil {
		return nil, err
	}
	l.logger.Info("found backups", "volume", volume, "count", len(backups))

	res := &Result{Backups: len(backups), Failed: make(map[string]error)}
	for _, b := range backups {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		log := l.logger.With("backup", b.Date.Format(backupLayout))
		path, ok := FindLibraryFile(b.Path, user)
		if !ok {
			log.Info("no library file in backup")
			res.Missing++
			continue
		}

		lib, err := itunes.ReadLibraryXML(path)
		if err != nil {
			log.Warn("skipping unreadable library", "path", path, "error", err)
			res.Failed[b.Path] = err
			continue
		}
		lib.SnapshotDate = b.Date

		snap, err := l.Load(ctx, lib)
		if errors.Is(err, errors.ErrValidation) {
			log.Warn("skipping empty library", "path", path)
			res.Failed[b.Path] = err
			continue
		}
		if err != nil {
			return res, err
		}
		res.Loaded = append(res.Loaded, snap)
	}
	return res, nil
}
