// Package providers contains dependency injection providers for the library report tools.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/library-report/internal/config"
	"github.com/listenupapp/library-report/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger. It writes to stderr so
// stdout carries only the report.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"catalog_source", cfg.Catalog.Source,
		"catalog_path", cfg.Catalog.Path,
		"data_path", cfg.Data.Path,
	)

	return log, nil
}
