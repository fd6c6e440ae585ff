package desktop

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/focusflow/focusflow/internal/logging"
	"github.com/focusflow/focusflow/internal/notify"
)

const (
	fdoDest  = "org.freedesktop.Notifications"
	fdoPath  = "/org/freedesktop/Notifications"
	fdoIface = "org.freedesktop.Notifications"

	actionDefault = "default"
	actionAllow   = "allow"
	actionDeny    = "deny"
)

// DBusBackend talks to the freedesktop notification service. It supports
// closing alerts, click reporting through the "default" action and tag
// replacement through replaces_id.
type DBusBackend struct {
	app     string
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal

	mu      sync.Mutex
	owners  map[uint32]*dbusAlert
	tags    map[string]uint32
	waiters map[uint32]chan string
}

// NewDBusBackend opens a private session bus connection and checks that a
// notification service answers on it.
func NewDBusBackend(app string) (*DBusBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	b := newDBusBackend(app, conn, conn.Object(fdoDest, fdoPath))

	var caps []string
	if err := b.obj.Call(fdoIface+".GetCapabilities", 0).Store(&caps); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notification service not reachable: %w", err)
	}
	logging.Get().Debug().Strs("capabilities", caps).Msg("freedesktop notification service found")

	for _, member := range []string{"ActionInvoked", "NotificationClosed"} {
		if err := conn.AddMatchSignal(dbus.WithMatchInterface(fdoIface), dbus.WithMatchMember(member)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("subscribing to %s: %w", member, err)
		}
	}
	b.signals = make(chan *dbus.Signal, 16)
	conn.Signal(b.signals)
	go b.listen()
	return b, nil
}

func newDBusBackend(app string, conn *dbus.Conn, obj dbus.BusObject) *DBusBackend {
	return &DBusBackend{
		app:     app,
		conn:    conn,
		obj:     obj,
		owners:  make(map[uint32]*dbusAlert),
		tags:    make(map[string]uint32),
		waiters: make(map[uint32]chan string),
	}
}

func (b *DBusBackend) Name() string    { return "freedesktop" }
func (b *DBusBackend) Available() bool { return b.obj != nil }

// Show sends a Notify call. An alert with the tag of one still on screen
// replaces it in place; the older handle then no longer owns the id.
func (b *DBusBackend) Show(title string, opts notify.DisplayOptions) (notify.Alert, error) {
	hints := map[string]dbus.Variant{
		"suppress-sound": dbus.MakeVariant(opts.Silent),
		"urgency":        dbus.MakeVariant(byte(1)),
	}
	if opts.Icon != "" {
		hints["image-path"] = dbus.MakeVariant(opts.Icon)
	}
	appIcon := opts.Badge
	if appIcon == "" {
		appIcon = opts.Icon
	}
	expire := int32(-1)
	if opts.RequireInteraction {
		expire = 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var replaces uint32
	if opts.Tag != "" {
		replaces = b.tags[opts.Tag]
	}
	var id uint32
	call := b.obj.Call(fdoIface+".Notify", 0,
		b.app, replaces, appIcon, title, opts.Body,
		[]string{actionDefault, "Open"}, hints, expire)
	if err := call.Store(&id); err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	a := &dbusAlert{b: b, id: id, tag: opts.Tag}
	b.owners[id] = a
	if opts.Tag != "" {
		b.tags[opts.Tag] = id
	}
	return a, nil
}

// Prompt asks for consent with an actionable notification and waits for the
// answer. Closing the prompt without choosing leaves the state at default.
func (b *DBusBackend) Prompt(ctx context.Context) (notify.PermissionState, error) {
	ch := make(chan string, 1)
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(byte(1)),
		"resident": dbus.MakeVariant(true),
	}
	var id uint32
	b.mu.Lock()
	call := b.obj.Call(fdoIface+".Notify", 0,
		b.app, uint32(0), "", "Allow focusflow notifications?",
		"focusflow shows an alert when a focus session or a break ends.",
		[]string{actionAllow, "Allow", actionDeny, "Don't allow"}, hints, int32(0))
	if err := call.Store(&id); err != nil {
		b.mu.Unlock()
		return notify.PermissionDefault, fmt.Errorf("consent prompt: %w", err)
	}
	b.waiters[id] = ch
	b.mu.Unlock()

	select {
	case action := <-ch:
		switch action {
		case actionAllow:
			return notify.PermissionGranted, nil
		case actionDeny:
			return notify.PermissionDenied, nil
		}
		return notify.PermissionDefault, nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.waiters, id)
		b.mu.Unlock()
		b.closeNotification(id)
		return notify.PermissionDefault, ctx.Err()
	}
}

func (b *DBusBackend) listen() {
	for sig := range b.signals {
		b.handleSignal(sig)
	}
}

// handleSignal routes ActionInvoked and NotificationClosed to the alert or
// prompt owning the id.
func (b *DBusBackend) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	switch sig.Name {
	case fdoIface + ".ActionInvoked":
		action, _ := sig.Body[1].(string)
		b.mu.Lock()
		if ch, ok := b.waiters[id]; ok {
			delete(b.waiters, id)
			b.mu.Unlock()
			ch <- action
			b.closeNotification(id)
			return
		}
		var onClick func()
		if a, ok := b.owners[id]; ok && action == actionDefault {
			onClick = a.onClick
		}
		b.mu.Unlock()
		if onClick != nil {
			onClick()
		}
	case fdoIface + ".NotificationClosed":
		b.mu.Lock()
		if ch, ok := b.waiters[id]; ok {
			delete(b.waiters, id)
			ch <- ""
		}
		var onClosed func()
		if a, ok := b.owners[id]; ok {
			onClosed = a.onClosed
			b.forgetLocked(a)
		}
		b.mu.Unlock()
		if onClosed != nil {
			onClosed()
		}
	}
}

func (b *DBusBackend) forgetLocked(a *dbusAlert) {
	delete(b.owners, a.id)
	if a.tag != "" && b.tags[a.tag] == a.id {
		delete(b.tags, a.tag)
	}
}

func (b *DBusBackend) closeNotification(id uint32) {
	if call := b.obj.Call(fdoIface+".CloseNotification", 0, id); call.Err != nil {
		logging.Get().Debug().Err(call.Err).Uint32("id", id).Msg("close notification failed")
	}
}

// Close stops signal delivery and closes the bus connection.
func (b *DBusBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	if b.signals != nil {
		b.conn.RemoveSignal(b.signals)
	}
	return b.conn.Close()
}

type dbusAlert struct {
	b        *DBusBackend
	id       uint32
	tag      string
	onClick  func()
	onClosed func()
}

// Close closes the notification unless a newer alert with the same tag has
// taken over the id.
func (a *dbusAlert) Close() error {
	a.b.mu.Lock()
	if a.b.owners[a.id] != a {
		a.b.mu.Unlock()
		return nil
	}
	a.b.forgetLocked(a)
	a.b.mu.Unlock()
	if call := a.b.obj.Call(fdoIface+".CloseNotification", 0, a.id); call.Err != nil {
		return fmt.Errorf("close notification %d: %w", a.id, call.Err)
	}
	return nil
}

func (a *dbusAlert) OnClick(fn func()) func() {
	a.b.mu.Lock()
	a.onClick = fn
	a.b.mu.Unlock()
	return func() {
		a.b.mu.Lock()
		a.onClick = nil
		a.b.mu.Unlock()
	}
}

// OnClosed registers fn for when the notification server closes the
// notification, whether the user dismissed it or the server expired it.
func (a *dbusAlert) OnClosed(fn func()) func() {
	a.b.mu.Lock()
	a.onClosed = fn
	a.b.mu.Unlock()
	return func() {
		a.b.mu.Lock()
		a.onClosed = nil
		a.b.mu.Unlock()
	}
}
