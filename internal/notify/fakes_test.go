package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// fakeClock is a virtual clock; timers fire only from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every due timer in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type displayCall struct {
	title string
	opts  DisplayOptions
}

// fakePlatform records every call made by the manager.
type fakePlatform struct {
	mu         sync.Mutex
	supported  bool
	permission PermissionState
	answer     PermissionState
	askErr     error
	displayErr error
	panicMsg   string
	// entered/release make RequestPermission block until the test lets go
	entered  chan struct{}
	release  chan struct{}
	requests int
	displays []displayCall
	alerts   []*fakeAlert
}

func newFakePlatform(perm PermissionState) *fakePlatform {
	return &fakePlatform{supported: true, permission: perm, answer: PermissionGranted}
}

func (p *fakePlatform) Supported() bool { return p.supported }

func (p *fakePlatform) CurrentPermission() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

func (p *fakePlatform) RequestPermission(ctx context.Context) (PermissionState, error) {
	p.mu.Lock()
	p.requests++
	entered, release := p.entered, p.release
	p.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return PermissionDefault, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.askErr != nil {
		return PermissionDefault, p.askErr
	}
	p.permission = p.answer
	return p.answer, nil
}

func (p *fakePlatform) Display(title string, opts DisplayOptions) (Alert, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	p.displays = append(p.displays, displayCall{title: title, opts: opts})
	if p.displayErr != nil {
		return nil, p.displayErr
	}
	a := &fakeAlert{}
	p.alerts = append(p.alerts, a)
	return a, nil
}

func (p *fakePlatform) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *fakePlatform) displayCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.displays)
}

type fakeAlert struct {
	mu           sync.Mutex
	closes       int
	onClick      func()
	unsubscribed bool
	onClosed     func()
}

func (a *fakeAlert) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closes++
	return nil
}

func (a *fakeAlert) OnClick(fn func()) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onClick = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.unsubscribed = true
	}
}

// Click simulates the platform's click event.
func (a *fakeAlert) Click() {
	a.mu.Lock()
	fn := a.onClick
	unsubscribed := a.unsubscribed
	a.mu.Unlock()
	if fn != nil && !unsubscribed {
		fn()
	}
}

func (a *fakeAlert) OnClosed(fn func()) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onClosed = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.onClosed = nil
	}
}

// CloseFromPlatform simulates the platform removing the notification.
func (a *fakeAlert) CloseFromPlatform() {
	a.mu.Lock()
	fn := a.onClosed
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (a *fakeAlert) closeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closes
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *fakeRecorder) Record(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *fakeRecorder) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Outcome)
	}
	return out
}
