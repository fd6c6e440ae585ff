// Package tray shows the optional system tray menu.
package tray

import (
	"time"

	"github.com/getlantern/systray"

	"github.com/focusflow/focusflow/internal/logging"
)

// Toggle is the enablement switch the tray drives.
type Toggle interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// syncEvery is how often the checkbox re-reads the flag, which the HTTP API
// can change behind the tray's back.
const syncEvery = time.Second

// checkbox is the part of *systray.MenuItem the sync loop uses.
type checkbox interface {
	Checked() bool
	Check()
	Uncheck()
}

var _ checkbox = (*systray.MenuItem)(nil)

// Tray is the focusflow tray menu.
type Tray struct {
	toggle Toggle
	onTest func()
	onOpen func()
	onQuit func()
}

func New(t Toggle) *Tray {
	return &Tray{toggle: t}
}

// SetOnTest sets the "Send test notification" action.
func (t *Tray) SetOnTest(fn func()) { t.onTest = fn }

// SetOnOpen sets the "Open focusflow" action.
func (t *Tray) SetOnOpen(fn func()) { t.onOpen = fn }

// SetOnQuit sets what runs before the tray exits.
func (t *Tray) SetOnQuit(fn func()) { t.onQuit = fn }

// Run blocks on the tray event loop. It must be called from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop from any goroutine.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(icon())
	systray.SetTitle("focusflow")
	systray.SetTooltip("focusflow - focus session alerts")

	mEnabled := systray.AddMenuItemCheckbox("Notifications enabled", "Show an alert when a session or break ends", t.toggle.Enabled())
	mTest := systray.AddMenuItem("Send test notification", "Show the focus session alert now")
	systray.AddSeparator()
	mOpen := systray.AddMenuItem("Open focusflow", "Open the focusflow web app")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit focusflow")

	go func() {
		ticker := time.NewTicker(syncEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				syncCheck(mEnabled, t.toggle.Enabled())
			case <-mEnabled.ClickedCh:
				syncCheck(mEnabled, flip(t.toggle))
			case <-mTest.ClickedCh:
				if t.onTest != nil {
					t.onTest()
				}
			case <-mOpen.ClickedCh:
				if t.onOpen != nil {
					t.onOpen()
				}
			case <-mQuit.ClickedCh:
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

// syncCheck makes the checkbox show enabled, touching it only on a change.
func syncCheck(c checkbox, enabled bool) {
	if c.Checked() == enabled {
		return
	}
	if enabled {
		c.Check()
	} else {
		c.Uncheck()
	}
}

// flip inverts the enablement flag and returns the new value.
func flip(t Toggle) bool {
	enabled := !t.Enabled()
	t.SetEnabled(enabled)
	logging.Get().Info().Bool("enabled", enabled).Msg("notifications toggled from tray")
	return enabled
}
