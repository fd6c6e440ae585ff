// Package metrics provides counters, Prometheus collectors, and HTTP
// handlers for exporting focusflow notification metrics.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcomes, used as the "outcome" label.
const (
	OutcomeDisplayed        = "displayed"
	OutcomeSuppressed       = "suppressed"
	OutcomeUnavailable      = "unavailable"
	OutcomePermissionDenied = "permission_denied"
	OutcomeDisplayFailed    = "display_failed"
)

// 1. Internal State (Source of Truth)
var (
	displayed         int64
	suppressed        int64
	unavailable       int64
	permissionDenied  int64
	displayFailed     int64
	permissionPrompts int64
	dismissedClick    int64
	dismissedTimeout  int64
	dismissedManual   int64
	dismissedClosed   int64
	activeAlerts      int64
	lastDisplay       int64
)

const counterInc int64 = 1

// 2. Prometheus Collectors
var (
	promDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusflow_dispatch_total",
			Help: "Alert dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)
	promPermission = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusflow_permission_requests_total",
			Help: "Platform consent prompts by resulting permission",
		},
		[]string{"result"},
	)
	promDismissed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusflow_alerts_dismissed_total",
			Help: "Closed alerts by reason",
		},
		[]string{"reason"},
	)
	promActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusflow_active_alerts",
			Help: "Alerts currently on screen",
		},
	)
	promPromptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "focusflow_permission_prompt_seconds",
			Help:    "Time the user took to answer the consent prompt",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
		},
	)
	promLastDisplay = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusflow_last_display_timestamp_seconds",
			Help: "Unix timestamp of the last displayed alert",
		},
	)
)

func init() {
	prometheus.MustRegister(
		promDispatch,
		promPermission,
		promDismissed,
		promActive,
		promPromptDuration,
		promLastDisplay,
	)
}

// 3. Public API (Updates both Atomic and Prometheus)

// IncDispatch counts one dispatch call under its outcome. Unknown outcomes
// only reach Prometheus.
func IncDispatch(outcome string) {
	switch outcome {
	case OutcomeDisplayed:
		atomic.AddInt64(&displayed, counterInc)
	case OutcomeSuppressed:
		atomic.AddInt64(&suppressed, counterInc)
	case OutcomeUnavailable:
		atomic.AddInt64(&unavailable, counterInc)
	case OutcomePermissionDenied:
		atomic.AddInt64(&permissionDenied, counterInc)
	case OutcomeDisplayFailed:
		atomic.AddInt64(&displayFailed, counterInc)
	}
	promDispatch.WithLabelValues(outcome).Inc()
}

// IncPermissionRequest counts a consent prompt that resolved to result.
func IncPermissionRequest(result string) {
	atomic.AddInt64(&permissionPrompts, counterInc)
	promPermission.WithLabelValues(result).Inc()
}

// ObservePromptDuration records how long a consent prompt was pending.
func ObservePromptDuration(d time.Duration) {
	promPromptDuration.Observe(d.Seconds())
}

// IncDismissed counts a closed alert by reason ("click", "timeout", "manual",
// "closed").
func IncDismissed(reason string) {
	switch reason {
	case "click":
		atomic.AddInt64(&dismissedClick, counterInc)
	case "timeout":
		atomic.AddInt64(&dismissedTimeout, counterInc)
	case "manual":
		atomic.AddInt64(&dismissedManual, counterInc)
	case "closed":
		atomic.AddInt64(&dismissedClosed, counterInc)
	}
	promDismissed.WithLabelValues(reason).Inc()
}

// SetActiveAlerts publishes the number of alerts currently displayed.
func SetActiveAlerts(n int) {
	atomic.StoreInt64(&activeAlerts, int64(n))
	promActive.Set(float64(n))
}

// SetLastDisplay stores the time of the most recent successful display.
func SetLastDisplay(t time.Time) {
	atomic.StoreInt64(&lastDisplay, t.Unix())
	promLastDisplay.Set(float64(t.Unix()))
}

// 4. JSON Snapshot Struct

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	Displayed         int64  `json:"displayed"`
	Suppressed        int64  `json:"suppressed"`
	Unavailable       int64  `json:"unavailable"`
	PermissionDenied  int64  `json:"permission_denied"`
	DisplayFailed     int64  `json:"display_failed"`
	PermissionPrompts int64  `json:"permission_prompts"`
	DismissedClick    int64  `json:"dismissed_click"`
	DismissedTimeout  int64  `json:"dismissed_timeout"`
	DismissedManual   int64  `json:"dismissed_manual"`
	DismissedClosed   int64  `json:"dismissed_closed"`
	ActiveAlerts      int64  `json:"active_alerts"`
	LastDisplay       int64  `json:"last_display_timestamp"`
	LastDisplayHuman  string `json:"last_display_human"`
}

// GetSnapshot returns a StatsSnapshot with the current values of all
// internal counters and timestamps.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastDisplay)
	human := ""
	if ts > 0 {
		human = time.Unix(ts, 0).Format(time.RFC3339)
	}
	return StatsSnapshot{
		Displayed:         atomic.LoadInt64(&displayed),
		Suppressed:        atomic.LoadInt64(&suppressed),
		Unavailable:       atomic.LoadInt64(&unavailable),
		PermissionDenied:  atomic.LoadInt64(&permissionDenied),
		DisplayFailed:     atomic.LoadInt64(&displayFailed),
		PermissionPrompts: atomic.LoadInt64(&permissionPrompts),
		DismissedClick:    atomic.LoadInt64(&dismissedClick),
		DismissedTimeout:  atomic.LoadInt64(&dismissedTimeout),
		DismissedManual:   atomic.LoadInt64(&dismissedManual),
		DismissedClosed:   atomic.LoadInt64(&dismissedClosed),
		ActiveAlerts:      atomic.LoadInt64(&activeAlerts),
		LastDisplay:       ts,
		LastDisplayHuman:  human,
	}
}

// 5. Handlers

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }

// JSONHandler returns an HTTP handler that serves the current metrics as
// a JSON-encoded StatsSnapshot.
func JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetSnapshot())
	})
}
