// Package api is the local HTTP control surface the focusflow web app talks
// to.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/focusflow/focusflow/internal/journal"
	"github.com/focusflow/focusflow/internal/metrics"
	"github.com/focusflow/focusflow/internal/notify"
	"github.com/focusflow/focusflow/internal/session"
)

// Notifier is the manager surface exposed over HTTP.
type Notifier interface {
	Supported() bool
	Enabled() bool
	SetEnabled(enabled bool)
	Permission() notify.PermissionState
	RequestPermission(ctx context.Context) (bool, error)
	Dispatch(ctx context.Context, req notify.AlertRequest) (*notify.ActiveAlert, error)
	Dismiss(id string) bool
	ActiveCount() int
}

// Timer controls the focus session cycle.
type Timer interface {
	Start(ctx context.Context) error
	Stop()
	Status() session.Status
}

// History lists journal entries.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Deps wires the router. Session and History may be nil. BaseContext is the
// lifetime of work started by a request, such as a session cycle.
type Deps struct {
	Notifier    Notifier
	Session     Timer
	History     History
	BaseContext context.Context
	Metrics     bool
}

// NewRouter builds the control API routes.
func NewRouter(d Deps) *mux.Router {
	h := &handlers{Deps: d}
	if h.BaseContext == nil {
		h.BaseContext = context.Background()
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/status", h.status).Methods("GET")
	r.HandleFunc("/enabled", h.setEnabled).Methods("PUT")
	r.HandleFunc("/permission", h.requestPermission).Methods("POST")

	r.HandleFunc("/alerts", h.dispatch).Methods("POST")
	r.HandleFunc("/alerts/history", h.history).Methods("GET")
	r.HandleFunc("/alerts/presets/{name}", h.dispatchPreset).Methods("POST")
	r.HandleFunc("/alerts/{id}", h.dismiss).Methods("DELETE")

	r.HandleFunc("/session/start", h.startSession).Methods("POST")
	r.HandleFunc("/session/stop", h.stopSession).Methods("POST")

	if d.Metrics {
		r.Handle("/metrics", metrics.PromHandler()).Methods("GET")
		r.Handle("/stats", metrics.JSONHandler()).Methods("GET")
	}
	return r
}
