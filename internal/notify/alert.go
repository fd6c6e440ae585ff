package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focusflow/focusflow/internal/logging"
)

// DismissReason says why an alert went away.
type DismissReason string

const (
	ReasonClick   DismissReason = "click"
	ReasonTimeout DismissReason = "timeout"
	ReasonManual  DismissReason = "manual"
	// ReasonClosed means the platform closed the notification itself.
	ReasonClosed DismissReason = "closed"
)

// ActiveAlert is a displayed alert together with its subscriptions: the
// auto-dismiss timer, the click registration and, where the platform reports
// it, the closed registration. Whichever event happens first closes the
// alert and cancels the rest.
type ActiveAlert struct {
	id      string
	tag     string
	title   string
	shownAt time.Time
	m       *Manager
	alert   Alert
	done    chan struct{}

	mu          sync.Mutex
	timer       Timer
	unsubscribe []func()
	closed      bool
	reason      DismissReason
}

func newActiveAlert(m *Manager, alert Alert, req AlertRequest, shownAt time.Time) *ActiveAlert {
	return &ActiveAlert{
		id:      uuid.New().String(),
		tag:     req.Tag,
		title:   req.Title,
		shownAt: shownAt,
		m:       m,
		alert:   alert,
		done:    make(chan struct{}),
	}
}

func (a *ActiveAlert) ID() string         { return a.id }
func (a *ActiveAlert) Tag() string        { return a.tag }
func (a *ActiveAlert) ShownAt() time.Time { return a.shownAt }

// Done is closed once the alert has been closed.
func (a *ActiveAlert) Done() <-chan struct{} { return a.done }

// Reason returns why the alert closed, or "" while it is still up.
func (a *ActiveAlert) Reason() DismissReason {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason
}

// Dismiss closes the alert now. Calling it again, or after the alert already
// closed, does nothing.
func (a *ActiveAlert) Dismiss() {
	a.finish(ReasonManual, nil)
}

func (a *ActiveAlert) click() {
	a.finish(ReasonClick, a.m.focus)
}

func (a *ActiveAlert) closedByPlatform() {
	a.finish(ReasonClosed, nil)
}

// arm attaches the subscriptions. If the alert already closed in between,
// they are cancelled right away.
func (a *ActiveAlert) arm(t Timer, unsubscribe ...func()) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		t.Stop()
		cancelAll(unsubscribe)
		return
	}
	a.timer, a.unsubscribe = t, unsubscribe
	a.mu.Unlock()
}

func cancelAll(fns []func()) {
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

// finish closes the alert exactly once. before runs ahead of the close and
// only on the call that wins.
func (a *ActiveAlert) finish(reason DismissReason, before func()) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.reason = reason
	t, unsubscribe := a.timer, a.unsubscribe
	a.timer, a.unsubscribe = nil, nil
	a.mu.Unlock()

	if before != nil {
		before()
	}
	if t != nil {
		t.Stop()
	}
	cancelAll(unsubscribe)
	if err := a.alert.Close(); err != nil {
		logging.Get().Warn().Err(err).Str("alert", a.id).Msg("failed to close alert")
	}
	a.m.untrack(a, reason)
	close(a.done)
}
