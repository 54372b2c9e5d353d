package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const metricsPrefix = "/api/v1/settings/metrics/"

// Router wraps http.ServeMux with per-route method checks.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers a plain http.Handler (promhttp).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != m {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterSettingsRoutes page session endpoints.
func (r *Router) RegisterSettingsRoutes(s *SettingsHandler) {
	r.Handle("/api/v1/settings", method(http.MethodGet, s.Get))
	r.Handle("/api/v1/settings/load", method(http.MethodPost, s.Load))
	r.Handle("/api/v1/settings/recipients", method(http.MethodPut, s.SetRecipients))
	r.Handle("/api/v1/settings/save", method(http.MethodPost, s.Save))
	r.Handle("/api/v1/settings/test", method(http.MethodPost, s.SendTest))
	r.Handle("/api/v1/settings/reset", method(http.MethodPost, s.Reset))

	// metrics/{key} and metrics/{key}/toggle
	r.Handle(metricsPrefix, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, metricsPrefix)
		key, action, _ := strings.Cut(rest, "/")
		if key == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch action {
		case "":
			if req.Method != http.MethodPatch {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			s.UpdateMetric(w, req, key)
		case "toggle":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			s.Toggle(w, req, key)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterReportRoutes export and presets.
func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("/api/v1/report/excel", method(http.MethodGet, h.Excel))
	r.Handle("/api/v1/report/presets", method(http.MethodGet, h.Presets))
}

func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.Handle("/api/v1/dashboard/today", method(http.MethodGet, h.Today))
}

// RegisterOpsRoutes health check and Prometheus scrape endpoint.
func (r *Router) RegisterOpsRoutes(metrics http.Handler) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	if metrics != nil {
		r.HandleHandler("/metrics", metrics)
	}
}

// Endpoint collapses per-metric paths so request metrics keep a bounded label set.
func Endpoint(req *http.Request) string {
	p := req.URL.Path
	if strings.HasPrefix(p, metricsPrefix) {
		if strings.HasSuffix(p, "/toggle") {
			return metricsPrefix + "{key}/toggle"
		}
		return metricsPrefix + "{key}"
	}
	switch p {
	case "/api/v1/settings", "/api/v1/settings/load", "/api/v1/settings/recipients",
		"/api/v1/settings/save", "/api/v1/settings/test", "/api/v1/settings/reset",
		"/api/v1/report/excel", "/api/v1/report/presets", "/api/v1/dashboard/today",
		"/healthz", "/metrics":
		return p
	}
	return "other"
}
