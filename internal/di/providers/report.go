package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/library-report/internal/config"
	"github.com/listenupapp/library-report/internal/logger"
	"github.com/listenupapp/library-report/internal/report"
)

// ProvideGenerator provides the report generator.
func ProvideGenerator(i do.Injector) (*report.Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return report.NewGenerator(log.Logger, cfg.Report.Limit), nil
}
