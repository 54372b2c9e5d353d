package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"aquawatch/internal/domain"
	"aquawatch/internal/service"
)

// SettingsHandler exposes the page session of the console.
type SettingsHandler struct {
	session *service.SettingsSession
	logger  *zap.Logger
}

func NewSettingsHandler(session *service.SettingsSession, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{session: session, logger: logger}
}

// GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.session.Snapshot()))
}

// POST /api/v1/settings/load
func (h *SettingsHandler) Load(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.session.Load(r.Context()))
}

// PUT /api/v1/settings/recipients
// body: {"input": "a@x.com, b@y.org"}
func (h *SettingsHandler) SetRecipients(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input string `json:"input"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	h.session.SetRecipientsInput(body.Input)
	writeJSON(w, http.StatusOK, Ok(h.session.Snapshot()))
}

// PATCH /api/v1/settings/metrics/{key}
// body: {"min"?: number|string, "max"?: number|string}
func (h *SettingsHandler) UpdateMetric(w http.ResponseWriter, r *http.Request, key string) {
	var body struct {
		Min *flexNumber `json:"min"`
		Max *flexNumber `json:"max"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	err := h.session.UpdateMetric(key, service.MetricPatch{Min: body.Min.ptr(), Max: body.Max.ptr()})
	if err != nil {
		h.respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.session.Snapshot()))
}

// POST /api/v1/settings/metrics/{key}/toggle
// body: {"enabled": bool}
//
// The immediate persist, when the policy asks for one, runs detached from the request.
func (h *SettingsHandler) Toggle(w http.ResponseWriter, r *http.Request, key string) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil || body.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, Fail("enabled is required"))
		return
	}
	if _, err := h.session.ToggleEnabled(context.WithoutCancel(r.Context()), key, *body.Enabled); err != nil {
		h.respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.session.Snapshot()))
}

// POST /api/v1/settings/save
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.session.Save(r.Context()))
}

// POST /api/v1/settings/test
func (h *SettingsHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.session.SendTest(r.Context()))
}

// POST /api/v1/settings/reset
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.session.Reset(r.Context()))
}

// respond maps an action result onto the envelope. The session notice carries the
// operator-facing message; backend details stay in the log.
func (h *SettingsHandler) respond(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBusy):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
		return
	case errors.Is(err, service.ErrUnknownMetric):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}

	view := h.session.Snapshot()
	if err != nil {
		msg := "request failed"
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			msg = ve.Error()
		case view.Notice != nil:
			msg = view.Notice.Message
		}
		writeJSON(w, http.StatusOK, FailWith(msg, view))
		return
	}
	if n := view.Notice; n != nil && n.Level == service.NoticeWarning {
		writeJSON(w, http.StatusOK, Warn(n.Message, view))
		return
	}
	res := Ok(view)
	if view.Notice != nil {
		res.Message = view.Notice.Message
	}
	writeJSON(w, http.StatusOK, res)
}
