package providers

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/listenupapp/library-report/internal/catalog"
	"github.com/listenupapp/library-report/internal/config"
	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/itunes"
	"github.com/listenupapp/library-report/internal/logger"
	"github.com/listenupapp/library-report/internal/store"
	"github.com/listenupapp/library-report/internal/store/sqlite"
)

// ProvideCatalogOpener provides the opener for the configured catalog source.
// Opening is deferred to the caller so the catalog is released as soon as
// the report is built.
func ProvideCatalogOpener(i do.Injector) (catalog.Opener, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return NewCatalogOpener(cfg.Catalog, log.Logger), nil
}

// NewCatalogOpener returns an opener for cfg. Every failure to reach the
// catalog surfaces as a CatalogUnavailable error.
func NewCatalogOpener(cfg config.CatalogConfig, log *slog.Logger) catalog.Opener {
	return catalog.OpenerFunc(func(ctx context.Context) (catalog.Catalog, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeCatalogUnavailable, "open catalog")
		}

		switch cfg.Source {
		case config.SourceXML:
			path := cfg.Path
			if path == "" {
				home, err := userHomeDir()
				if err != nil {
					return nil, errors.Wrap(err, errors.CodeCatalogUnavailable, "locate library: no home directory")
				}
				if path, err = itunes.LocateLibrary(home); err != nil {
					return nil, err
				}
			}
			log.Debug("opening library export", "path", path)
			lib, err := itunes.ReadLibraryXML(path)
			if err != nil {
				return nil, err
			}
			return catalog.NewMemory(lib), nil

		case config.SourceCSV:
			log.Debug("opening csv export", "path", cfg.Path)
			lib, err := itunes.ReadLibraryCSV(cfg.Path)
			if err != nil {
				return nil, err
			}
			return catalog.NewMemory(lib), nil

		case config.SourceSnapshot:
			c, err := sqlite.OpenCatalog(ctx, cfg.Path, cfg.SnapshotDate, log)
			if err != nil {
				return nil, err
			}
			log.Debug("opened snapshot", "date", c.Snapshot().Date, "path", cfg.Path)
			return c, nil

		case config.SourceBadger:
			c, err := store.OpenCatalog(ctx, cfg.Path, log)
			if err != nil {
				return nil, err
			}
			log.Debug("opened library mirror", "date", c.Snapshot().Date, "path", cfg.Path)
			return c, nil

		default:
			return nil, errors.CatalogUnavailablef("unknown catalog source %q", cfg.Source)
		}
	})
}
