package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"aquawatch/internal/dashboard"
)

// DashboardHandler today's readings.
type DashboardHandler struct {
	today  *dashboard.Today
	logger *zap.Logger
}

func NewDashboardHandler(today *dashboard.Today, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{today: today, logger: logger}
}

// GET /api/v1/dashboard/today
// params:
// - refresh? "1" forces a fetch instead of returning the last polled snapshot
func (h *DashboardHandler) Today(w http.ResponseWriter, r *http.Request) {
	snap := h.today.Latest()
	if snap == nil || r.URL.Query().Get("refresh") == "1" {
		snap = h.today.Refresh(r.Context())
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}
