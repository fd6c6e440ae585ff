package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/focusflow/focusflow/internal/journal"
	"github.com/focusflow/focusflow/internal/logging"
	"github.com/focusflow/focusflow/internal/notify"
	"github.com/focusflow/focusflow/internal/session"
)

const maxBody = 64 << 10

type handlers struct {
	Deps
}

type statusResponse struct {
	Enabled      bool            `json:"enabled"`
	Permission   string          `json:"permission"`
	Supported    bool            `json:"supported"`
	ActiveAlerts int             `json:"active_alerts"`
	Session      *session.Status `json:"session,omitempty"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Enabled:      h.Notifier.Enabled(),
		Permission:   h.Notifier.Permission().String(),
		Supported:    h.Notifier.Supported(),
		ActiveAlerts: h.Notifier.ActiveCount(),
	}
	if h.Session != nil {
		st := h.Session.Status()
		resp.Session = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) setEnabled(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decode(w, r, &body); err != nil || body.Enabled == nil {
		writeError(w, decodeStatus(err), "body must be {\"enabled\": true|false}")
		return
	}
	h.Notifier.SetEnabled(*body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *body.Enabled})
}

func (h *handlers) requestPermission(w http.ResponseWriter, r *http.Request) {
	granted, err := h.Notifier.RequestPermission(r.Context())
	perm := h.Notifier.Permission().String()
	switch {
	case err == nil:
	case errors.Is(err, notify.ErrCapabilityUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		logging.Get().Warn().Err(err).Msg("permission request failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"granted": granted, "permission": perm})
}

func (h *handlers) dispatch(w http.ResponseWriter, r *http.Request) {
	var req notify.AlertRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, decodeStatus(err), "invalid alert: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	h.send(w, r, req)
}

func (h *handlers) dispatchPreset(w http.ResponseWriter, r *http.Request) {
	req, ok := notify.Preset(mux.Vars(r)["name"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown preset")
		return
	}
	h.send(w, r, req)
}

func (h *handlers) send(w http.ResponseWriter, r *http.Request, req notify.AlertRequest) {
	a, err := h.Notifier.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, dispatchStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": a.ID(), "tag": a.Tag()})
}

// dispatchStatus maps a dispatch outcome to its HTTP status.
func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, notify.ErrSuppressed):
		return http.StatusAccepted
	case errors.Is(err, notify.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, notify.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, notify.ErrDisplayFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *handlers) dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.Notifier.Dismiss(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "no such alert")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	if h.History == nil {
		writeJSON(w, http.StatusOK, []journal.Entry{})
		return
	}
	entries, err := h.History.Recent(r.Context(), limit)
	if err != nil {
		logging.Get().Error().Err(err).Msg("failed reading alert history")
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		writeError(w, http.StatusNotFound, "session timer disabled")
		return
	}
	if err := h.Session.Start(h.BaseContext); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Status())
}

func (h *handlers) stopSession(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		writeError(w, http.StatusNotFound, "session timer disabled")
		return
	}
	h.Session.Stop()
	writeJSON(w, http.StatusOK, h.Session.Status())
}

var errNotJSON = errors.New("content type must be application/json")

// decode reads a JSON request body. Other media types are refused so a
// cross-origin page cannot post a body without a preflight.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return errNotJSON
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func decodeStatus(err error) int {
	if errors.Is(err, errNotJSON) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get().Debug().Err(err).Msg("failed writing response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	body := map[string]string{"error": msg}
	if code == http.StatusAccepted {
		body = map[string]string{"status": "suppressed"}
	}
	writeJSON(w, code, body)
}
