package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"aquawatch/internal/dashboard"
	"aquawatch/internal/domain"
	"aquawatch/internal/metrics"
	"aquawatch/internal/report"
	"aquawatch/internal/service"
)

// Console collaborators of the console API. Recorder may be nil.
type Console struct {
	Catalog  *domain.Catalog
	Session  *service.SettingsSession
	Reports  *report.Service
	Today    *dashboard.Today
	Recorder *metrics.Recorder
}

// NewConsoleHandler registers every console route and wraps them with request metrics.
func NewConsoleHandler(c Console, logger *zap.Logger) http.Handler {
	r := NewRouter(logger)
	r.RegisterSettingsRoutes(NewSettingsHandler(c.Session, logger))

	var observer ReportObserver
	var scrape http.Handler
	if c.Recorder != nil {
		observer = c.Recorder
		scrape = c.Recorder.Handler()
	}
	r.RegisterReportRoutes(NewReportHandler(c.Reports, c.Catalog, c.Session, observer, logger))
	r.RegisterDashboardRoutes(NewDashboardHandler(c.Today, logger))
	r.RegisterOpsRoutes(scrape)

	if c.Recorder == nil {
		return r
	}
	return c.Recorder.Middleware(Endpoint, r)
}
