// Package di provides dependency injection configuration for the library report tools.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/library-report/internal/catalog"
	"github.com/listenupapp/library-report/internal/config"
	"github.com/listenupapp/library-report/internal/di/providers"
	"github.com/listenupapp/library-report/internal/logger"
	"github.com/listenupapp/library-report/internal/report"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog and report
	do.Provide(injector, providers.ProvideCatalogOpener)
	do.Provide(injector, providers.ProvideGenerator)

	return injector
}

// Components are the services the report command needs.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Opener    catalog.Opener
	Generator *report.Generator
}

// Bootstrap resolves every service. Configuration errors surface here,
// before any catalog is opened.
func Bootstrap(injector do.Injector) (*Components, error) {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return nil, err
	}
	opener, err := do.Invoke[catalog.Opener](injector)
	if err != nil {
		return nil, err
	}
	gen, err := do.Invoke[*report.Generator](injector)
	if err != nil {
		return nil, err
	}
	return &Components{Config: cfg, Logger: log, Opener: opener, Generator: gen}, nil
}
