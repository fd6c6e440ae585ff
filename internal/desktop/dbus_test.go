package desktop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/focusflow/focusflow/internal/notify"
)

type busCall struct {
	method string
	args   []interface{}
}

// fakeBus stands in for the notification service object.
type fakeBus struct {
	dbus.BusObject
	mu     sync.Mutex
	nextID uint32
	calls  []busCall
}

func (f *fakeBus) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, busCall{method: method, args: args})
	if method == fdoIface+".Notify" {
		f.nextID++
		if replaces, _ := args[1].(uint32); replaces != 0 {
			return &dbus.Call{Body: []interface{}{replaces}}
		}
		return &dbus.Call{Body: []interface{}{f.nextID}}
	}
	return &dbus.Call{}
}

func (f *fakeBus) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == fdoIface+"."+method {
			n++
		}
	}
	return n
}

func (f *fakeBus) last() busCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func signal(member string, body ...interface{}) *dbus.Signal {
	return &dbus.Signal{Name: fdoIface + "." + member, Body: body}
}

func TestDBusShowSendsHints(t *testing.T) {
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)

	_, err := b.Show("🎯 Focus Session Complete!", notify.DisplayOptions{
		Body: "Great work!", Icon: "/icon.png", Badge: "/badge.png", Tag: "work-complete", Silent: true,
	})
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	call := bus.last()
	if call.args[0] != "focusflow" || call.args[2] != "/badge.png" || call.args[3] != "🎯 Focus Session Complete!" {
		t.Fatalf("unexpected Notify args: %v", call.args)
	}
	hints := call.args[6].(map[string]dbus.Variant)
	if hints["suppress-sound"].Value() != true {
		t.Fatalf("expected suppress-sound hint, got %v", hints)
	}
	if hints["image-path"].Value() != "/icon.png" {
		t.Fatalf("expected image-path hint, got %v", hints)
	}
	if call.args[7] != int32(-1) {
		t.Fatalf("expected server default expiry, got %v", call.args[7])
	}
}

func TestDBusClickRoutesToAlert(t *testing.T) {
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)
	a, err := b.Show("T", notify.DisplayOptions{})
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	id := a.(*dbusAlert).id
	clicks := 0
	unsubscribe := a.OnClick(func() { clicks++ })

	b.handleSignal(signal("ActionInvoked", id, "other-action"))
	b.handleSignal(signal("ActionInvoked", id+100, actionDefault))
	b.handleSignal(signal("ActionInvoked", id, actionDefault))
	if clicks != 1 {
		t.Fatalf("expected one click, got %d", clicks)
	}
	unsubscribe()
	b.handleSignal(signal("ActionInvoked", id, actionDefault))
	if clicks != 1 {
		t.Fatalf("click delivered after unsubscribe")
	}
}

func TestDBusCloseOnce(t *testing.T) {
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)
	a, _ := b.Show("T", notify.DisplayOptions{})

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if n := bus.count("CloseNotification"); n != 1 {
		t.Fatalf("expected one CloseNotification, got %d", n)
	}
}

func TestDBusClosedByServerForgetsAlert(t *testing.T) {
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)
	a, _ := b.Show("T", notify.DisplayOptions{Tag: "work-complete"})
	id := a.(*dbusAlert).id

	b.handleSignal(signal("NotificationClosed", id, uint32(2)))
	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if n := bus.count("CloseNotification"); n != 0 {
		t.Fatalf("expected no CloseNotification for an already closed alert, got %d", n)
	}
	if _, ok := b.tags["work-complete"]; ok {
		t.Fatal("expected tag to be released")
	}
}

func TestDBusSameTagReplaces(t *testing.T) {
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)
	first, _ := b.Show("T1", notify.DisplayOptions{Tag: "work-complete"})
	second, _ := b.Show("T2", notify.DisplayOptions{Tag: "work-complete"})

	if replaces := bus.last().args[1].(uint32); replaces != first.(*dbusAlert).id {
		t.Fatalf("expected replaces_id %d, got %d", first.(*dbusAlert).id, replaces)
	}
	// the stale handle must not close the replacement
	if err := first.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if n := bus.count("CloseNotification"); n != 0 {
		t.Fatalf("stale handle closed the replacement")
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if n := bus.count("CloseNotification"); n != 1 {
		t.Fatalf("expected replacement to close, got %d calls", n)
	}
}

func TestDBusPrompt(t *testing.T) {
	tests := []struct {
		name   string
		sig    func(id uint32) *dbus.Signal
		expect notify.PermissionState
	}{
		{"allow", func(id uint32) *dbus.Signal { return signal("ActionInvoked", id, actionAllow) }, notify.PermissionGranted},
		{"deny", func(id uint32) *dbus.Signal { return signal("ActionInvoked", id, actionDeny) }, notify.PermissionDenied},
		{"closed", func(id uint32) *dbus.Signal { return signal("NotificationClosed", id, uint32(2)) }, notify.PermissionDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &fakeBus{}
			b := newDBusBackend("focusflow", nil, bus)

			type result struct {
				perm notify.PermissionState
				err  error
			}
			out := make(chan result, 1)
			go func() {
				perm, err := b.Prompt(context.Background())
				out <- result{perm, err}
			}()

			id := waitForWaiter(t, b)
			b.handleSignal(tt.sig(id))

			select {
			case r := <-out:
				if r.err != nil || r.perm != tt.expect {
					t.Fatalf("expected %v, got %v %v", tt.expect, r.perm, r.err)
				}
			case <-time.After(time.Second):
				t.Fatal("prompt did not resolve")
			}
		})
	}
}

func TestDBusPromptContextCancel(t *testing.T) {
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)
	ctx, cancel := context.WithCancel(context.Background())

	out := make(chan error, 1)
	go func() {
		_, err := b.Prompt(ctx)
		out <- err
	}()
	waitForWaiter(t, b)
	cancel()

	select {
	case err := <-out:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(time.Second):
		t.Fatal("prompt ignored cancellation")
	}
	if n := bus.count("CloseNotification"); n != 1 {
		t.Fatalf("expected the prompt to be closed, got %d", n)
	}
}

func waitForWaiter(t *testing.T, b *DBusBackend) uint32 {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		for id := range b.waiters {
			b.mu.Unlock()
			return id
		}
		b.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("prompt was never registered")
	return 0
}

func TestDBusServerCloseEndsActiveAlert(t *testing.T) {
	t.Setenv("FOCUSFLOW_STATE_DIR", t.TempDir())
	bus := &fakeBus{}
	b := newDBusBackend("focusflow", nil, bus)
	m := notify.NewManager(NewPlatform("focusflow", b, StaticPrompter(notify.PermissionGranted)), notify.Options{})
	m.Initialize()

	a, err := m.WorkComplete(context.Background())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	// the first Notify call on a fresh bus gets id 1
	b.handleSignal(signal("NotificationClosed", uint32(1), uint32(2)))

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("alert stayed active after the server closed it")
	}
	if a.Reason() != notify.ReasonClosed {
		t.Fatalf("expected closed reason, got %q", a.Reason())
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("expected no active alerts, got %d", m.ActiveCount())
	}
	if n := bus.count("CloseNotification"); n != 0 {
		t.Fatalf("expected no CloseNotification for a server-closed alert, got %d", n)
	}
}
