package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"aquawatch/internal/domain"
	"aquawatch/internal/report"
	"aquawatch/internal/service"
)

// ReportObserver counts exports by mode and result.
type ReportObserver interface {
	ObserveReport(mode string, err error)
}

// ReportHandler spreadsheet download and metric presets.
type ReportHandler struct {
	reports  *report.Service
	catalog  *domain.Catalog
	session  *service.SettingsSession
	observer ReportObserver
	logger   *zap.Logger
}

// NewReportHandler observer may be nil.
func NewReportHandler(reports *report.Service, catalog *domain.Catalog, session *service.SettingsSession, observer ReportObserver, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, catalog: catalog, session: session, observer: observer, logger: logger}
}

// GET /api/v1/report/excel
// params:
// - mode? date|month (default date)
// - from, to: YYYY-MM-DD or YYYY-MM
// - metrics? comma separated keys (default all)
func (h *ReportHandler) Excel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metrics := splitList(q.Get("metrics"))
	if _, present := q["metrics"]; !present {
		metrics = h.catalog.Keys()
	}
	req := report.Request{
		Mode:    report.Mode(q.Get("mode")),
		From:    q.Get("from"),
		To:      q.Get("to"),
		Metrics: metrics,
	}

	f, err := h.reports.Export(r.Context(), req)
	if h.observer != nil {
		h.observer.ObserveReport(modeLabel(req.Mode), err)
	}
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, Fail(ve.Error()))
			return
		}
		writeJSON(w, http.StatusBadGateway, Fail("failed to download report"))
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

// GET /api/v1/report/presets
// params:
// - selected? current selection, used when no metric is enabled in settings
// - toggle? metric key flipped in the selection, returned as "selected"
func (h *ReportHandler) Presets(w http.ResponseWriter, r *http.Request) {
	current := splitList(r.URL.Query().Get("selected"))
	enabled := h.session.EnabledMetricKeys()
	resp := map[string][]string{
		string(report.PresetAll):     report.ApplyPreset(h.catalog, report.PresetAll, current, enabled),
		string(report.PresetNone):    report.ApplyPreset(h.catalog, report.PresetNone, current, enabled),
		string(report.PresetEnabled): report.ApplyPreset(h.catalog, report.PresetEnabled, current, enabled),
	}
	if key := r.URL.Query().Get("toggle"); key != "" {
		if !h.catalog.Has(key) {
			writeJSON(w, http.StatusBadRequest, Fail("unknown metric: "+key))
			return
		}
		resp["selected"] = report.ToggleMetric(current, key)
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func modeLabel(m report.Mode) string {
	switch m {
	case "", report.ModeDate:
		return string(report.ModeDate)
	case report.ModeMonth:
		return string(report.ModeMonth)
	}
	return "other"
}
