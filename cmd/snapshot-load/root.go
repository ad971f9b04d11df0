package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/listenupapp/library-report/internal/config"
	"github.com/listenupapp/library-report/internal/domain"
	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/logger"
	"github.com/listenupapp/library-report/internal/snapshot"
	"github.com/listenupapp/library-report/internal/store"
	"github.com/listenupapp/library-report/internal/store/sqlite"
)

// Load targets.
const (
	targetSQLite = "sqlite"
	targetBadger = "badger"
)

// app carries what every subcommand shares.
type app struct {
	stdout io.Writer
	stderr io.Writer

	dbPath string
	target string
	user   string

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "snapshot-load",
		Short: "Import library exports for later reports",
		Long: `snapshot-load reads Music/iTunes library exports and stores them so
library-report can read them back with CATALOG_SOURCE=snapshot or badger.

Loading a snapshot for a date that is already stored replaces it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "snapshot database or mirror directory (default from DATA_PATH)")

	xmlCmd := &cobra.Command{
		Use:   "xml <file>",
		Short: "Load a Music Library.xml export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], (*snapshot.Loader).LoadXML)
		},
	}
	csvCmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Load a music-library-exporter CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], (*snapshot.Loader).LoadCSV)
		},
	}
	for _, cmd := range []*cobra.Command{xmlCmd, csvCmd} {
		cmd.Flags().StringVar(&a.target, "target", targetSQLite, "where to load: sqlite or badger")
	}

	tmCmd := &cobra.Command{
		Use:   "timemachine <volume>",
		Short: "Load the library from every backup on a Time Machine volume",
		Long: `timemachine walks <volume>/<YYYY-MM-DD-HHMMSS>.backup directories, finds the
user's library export in each and loads it into the snapshot database,
dated by the backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadTimeMachine(cmd.Context(), args[0])
		},
	}
	tmCmd.Flags().StringVar(&a.user, "user", os.Getenv("USER"), "user whose library to load")

	root.AddCommand(xmlCmd, csvCmd, tmCmd)
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(logger.Config{
		Writer:      a.stderr,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})
	return nil
}

// openSink opens the load target and returns it with its closer.
func (a *app) openSink(target string) (snapshot.Sink, string, func() error, error) {
	switch target {
	case targetSQLite:
		path := a.dbPath
		if path == "" {
			path = a.cfg.Data.SnapshotDBPath()
		}
		s, err := sqlite.Open(path, a.log.Logger)
		if err != nil {
			return nil, "", nil, errors.Wrapf(err, errors.CodeInternal, "open snapshot database %s", path)
		}
		return snapshot.SinkFunc(s.ReplaceSnapshot), path, s.Close, nil

	case targetBadger:
		path := a.dbPath
		if path == "" {
			path = a.cfg.Data.MirrorPath()
		}
		s, err := store.New(path, a.log.Logger)
		if err != nil {
			return nil, "", nil, errors.Wrapf(err, errors.CodeInternal, "open library mirror %s", path)
		}
		return snapshot.SinkFunc(s.ReplaceLibrary), path, s.Close, nil

	default:
		return nil, "", nil, errors.Validationf("unknown target %q (want %s or %s)", target, targetSQLite, targetBadger)
	}
}

func (a *app) loadFile(ctx context.Context, path string, load func(*snapshot.Loader, context.Context, string) (*domain.Snapshot, error)) error {
	sink, dest, closeSink, err := a.openSink(a.target)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			a.log.Warn("failed to close store", "path", dest, "error", err)
		}
	}()

	snap, err := load(snapshot.NewLoader(sink, a.log.Logger), ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Loaded %s: %d tracks, %d playlists into %s\n",
		snap.Date, snap.TrackCount, snap.PlaylistCount, dest)
	return nil
}

func (a *app) loadTimeMachine(ctx context.Context, volume string) error {
	if a.user == "" {
		return errors.Validation("no user given (set --user or USER)")
	}

	sink, dest, closeSink, err := a.openSink(targetSQLite)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			a.log.Warn("failed to close store", "path", dest, "error", err)
		}
	}()

	res, err := snapshot.NewLoader(sink, a.log.Logger).LoadTimeMachine(ctx, volume, a.user)
	if res != nil {
		for _, snap := range res.Loaded {
			fmt.Fprintf(a.stdout, "Loaded %s: %d tracks\n", snap.Date, snap.TrackCount)
		}
		fmt.Fprintf(a.stdout, "Backups: %d, loaded: %d, without library: %d, failed: %d\n",
			res.Backups, len(res.Loaded), res.Missing, len(res.Failed))
	}
	return err
}
