package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/focusflow/focusflow/internal/logging"
	"github.com/focusflow/focusflow/internal/metrics"
)

// DefaultDismissAfter is how long a displayed alert stays up before it is
// closed automatically.
const DefaultDismissAfter = 5000 * time.Millisecond

// Options configures a Manager. Zero values are usable: no default icon or
// badge, DefaultDismissAfter, the real clock, no focus action and no recorder.
type Options struct {
	DefaultIcon  string
	DefaultBadge string
	DismissAfter time.Duration
	Focuser      Focuser
	Clock        Clock
	Recorder     Recorder
}

// permissionRequest is a consent prompt in flight, shared by every caller
// that asks while it is pending.
type permissionRequest struct {
	done    chan struct{}
	granted bool
	err     error
}

// Manager is the notification dispatch manager. The application holds
// exactly one, created at its composition root.
type Manager struct {
	platform  Platform
	opts      Options
	clock     Clock
	supported bool

	// mu guards everything below
	mu         sync.Mutex
	enabled    bool
	permission PermissionState
	pending    *permissionRequest
	active     map[string]*ActiveAlert
}

// NewManager creates a manager driving p. Platform support is detected once
// here; a nil or unsupported platform turns every operation into a no-op that
// reports ErrCapabilityUnavailable.
func NewManager(p Platform, opts Options) *Manager {
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = DefaultDismissAfter
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	m := &Manager{
		platform:   p,
		opts:       opts,
		clock:      clock,
		enabled:    true,
		permission: PermissionDefault,
		active:     make(map[string]*ActiveAlert),
	}
	m.supported = p != nil && p.Supported()
	if !m.supported {
		logging.Get().Warn().Msg("desktop notifications unavailable on this host; alerts will be skipped")
	}
	return m
}

// Initialize reads the platform's current permission. It is safe to call
// repeatedly; every call re-reads the state since it may change out of band.
func (m *Manager) Initialize() {
	if !m.supported {
		return
	}
	perm := m.platform.CurrentPermission()
	m.mu.Lock()
	m.permission = perm
	m.mu.Unlock()
	logging.Get().Info().Str("permission", perm.String()).Msg("notification permission loaded")
}

// Supported reports whether the platform capability is present.
func (m *Manager) Supported() bool { return m.supported }

// Permission returns the stored permission state.
func (m *Manager) Permission() PermissionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permission
}

// Enabled reports the user's enablement flag.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// SetEnabled toggles the enablement flag for subsequent dispatches. Alerts
// already on screen are left alone.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	changed := m.enabled != enabled
	m.enabled = enabled
	m.mu.Unlock()
	if changed {
		logging.Get().Info().Bool("enabled", enabled).Msg("notifications toggled")
	}
}

// RequestPermission makes sure the platform permission is granted, prompting
// the user at most once. Granted returns true without a prompt; denied
// returns false without a prompt since the platform never re-prompts.
// Concurrent callers while a prompt is pending share its answer.
func (m *Manager) RequestPermission(ctx context.Context) (bool, error) {
	if !m.supported {
		return false, ErrCapabilityUnavailable
	}

	m.mu.Lock()
	switch m.permission {
	case PermissionGranted:
		m.mu.Unlock()
		return true, nil
	case PermissionDenied:
		m.mu.Unlock()
		return false, nil
	}
	if req := m.pending; req != nil {
		m.mu.Unlock()
		select {
		case <-req.done:
			return req.granted, req.err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	req := &permissionRequest{done: make(chan struct{})}
	m.pending = req
	m.mu.Unlock()

	start := m.clock.Now()
	state, err := m.askPlatform(ctx)

	m.mu.Lock()
	if err == nil {
		m.permission = state
	}
	m.pending = nil
	req.granted = err == nil && state == PermissionGranted
	req.err = err
	m.mu.Unlock()
	close(req.done)

	if err != nil {
		logging.Get().Warn().Err(err).Msg("permission request failed")
		return false, err
	}
	metrics.IncPermissionRequest(state.String())
	metrics.ObservePromptDuration(m.clock.Now().Sub(start))
	logging.Get().Info().Str("permission", state.String()).Msg("permission request resolved")
	return req.granted, nil
}

func (m *Manager) askPlatform(ctx context.Context) (state PermissionState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("request permission: platform panic: %v", r)
		}
	}()
	state, err = m.platform.RequestPermission(ctx)
	if err != nil {
		return PermissionDefault, fmt.Errorf("request permission: %w", err)
	}
	return state, nil
}

// Dispatch shows req if policy and permission allow it. Steps run in order
// and stop at the first failure: enablement (ErrSuppressed), platform
// support (ErrCapabilityUnavailable), permission with a single request
// attempt (ErrPermissionDenied), display (ErrDisplayFailed). Nothing is
// retried. On success the alert closes itself after the dismiss delay or
// when clicked, whichever comes first.
func (m *Manager) Dispatch(ctx context.Context, req AlertRequest) (*ActiveAlert, error) {
	m.mu.Lock()
	enabled, perm := m.enabled, m.permission
	m.mu.Unlock()

	if !enabled {
		m.outcome(ctx, req, "", metrics.OutcomeSuppressed, nil)
		return nil, ErrSuppressed
	}
	if !m.supported {
		m.outcome(ctx, req, "", metrics.OutcomeUnavailable, nil)
		return nil, ErrCapabilityUnavailable
	}
	if perm != PermissionGranted {
		granted, err := m.RequestPermission(ctx)
		if !granted {
			if err != nil {
				err = fmt.Errorf("%w: %w", ErrPermissionDenied, err)
			} else {
				err = ErrPermissionDenied
			}
			m.outcome(ctx, req, "", metrics.OutcomePermissionDenied, err)
			return nil, err
		}
	}

	now := m.clock.Now()
	icon := req.Icon
	if icon == "" {
		icon = m.opts.DefaultIcon
	}
	opts := DisplayOptions{
		Body:               req.Body,
		Icon:               icon,
		Badge:              m.opts.DefaultBadge,
		Tag:                req.Tag,
		Silent:             true,
		RequireInteraction: false,
		Timestamp:          now,
	}
	handle, err := m.display(req.Title, opts)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDisplayFailed, err)
		m.outcome(ctx, req, "", metrics.OutcomeDisplayFailed, err)
		return nil, err
	}

	a := newActiveAlert(m, handle, req, now)
	m.track(a)
	timer := m.clock.AfterFunc(m.opts.DismissAfter, func() { a.finish(ReasonTimeout, nil) })
	subs := []func(){handle.OnClick(a.click)}
	if cn, ok := handle.(ClosedNotifier); ok {
		subs = append(subs, cn.OnClosed(a.closedByPlatform))
	}
	a.arm(timer, subs...)

	metrics.SetLastDisplay(now)
	m.outcome(ctx, req, a.id, metrics.OutcomeDisplayed, nil)
	return a, nil
}

// display calls the platform, turning a panic or a missing handle into an
// error.
func (m *Manager) display(title string, opts DisplayOptions) (a Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("platform panic: %v", r)
		}
	}()
	a, err = m.platform.Display(title, opts)
	if err == nil && a == nil {
		err = errors.New("platform returned no handle")
	}
	return a, err
}

// Dismiss closes the live alert with the given id. It reports false when no
// such alert is on screen.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	a, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	a.Dismiss()
	return true
}

// DismissAll closes every alert still on screen and cancels their timers.
// Call it on shutdown before the platform or the recorder go away.
func (m *Manager) DismissAll() int {
	m.mu.Lock()
	alerts := make([]*ActiveAlert, 0, len(m.active))
	for _, a := range m.active {
		alerts = append(alerts, a)
	}
	m.mu.Unlock()
	for _, a := range alerts {
		a.Dismiss()
	}
	return len(alerts)
}

// ActiveCount returns the number of alerts currently on screen.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) track(a *ActiveAlert) {
	m.mu.Lock()
	m.active[a.id] = a
	n := len(m.active)
	m.mu.Unlock()
	metrics.SetActiveAlerts(n)
}

func (m *Manager) untrack(a *ActiveAlert, reason DismissReason) {
	m.mu.Lock()
	delete(m.active, a.id)
	n := len(m.active)
	m.mu.Unlock()
	metrics.SetActiveAlerts(n)
	metrics.IncDismissed(string(reason))
	logging.Get().Debug().Str("alert", a.id).Str("tag", a.tag).Str("reason", string(reason)).Msg("alert closed")
	m.record(context.Background(), Event{AlertID: a.id, Tag: a.tag, Title: a.title, Outcome: "dismissed", Reason: string(reason), At: m.clock.Now()})
}

func (m *Manager) focus() {
	if m.opts.Focuser == nil {
		return
	}
	if err := m.opts.Focuser.Focus(); err != nil {
		logging.Get().Warn().Err(err).Msg("failed to focus application")
	}
}

// outcome logs, counts and records a dispatch result.
func (m *Manager) outcome(ctx context.Context, req AlertRequest, id, outcome string, err error) {
	metrics.IncDispatch(outcome)
	log := logging.Get()
	switch outcome {
	case metrics.OutcomeDisplayed:
		log.Info().Str("alert", id).Str("tag", req.Tag).Msg("alert displayed")
	case metrics.OutcomeSuppressed:
		log.Debug().Str("tag", req.Tag).Msg("alert suppressed by settings")
	case metrics.OutcomeDisplayFailed:
		log.Error().Err(err).Str("tag", req.Tag).Msg("alert display failed")
	default:
		log.Warn().Err(err).Str("tag", req.Tag).Str("outcome", outcome).Msg("alert skipped")
	}
	e := Event{AlertID: id, Tag: req.Tag, Title: req.Title, Outcome: outcome, At: m.clock.Now()}
	if err != nil {
		e.Reason = err.Error()
	}
	m.record(ctx, e)
}

func (m *Manager) record(ctx context.Context, e Event) {
	if m.opts.Recorder == nil {
		return
	}
	if err := m.opts.Recorder.Record(ctx, e); err != nil {
		logging.Get().Warn().Err(err).Str("outcome", e.Outcome).Msg("failed to record notification event")
	}
}
