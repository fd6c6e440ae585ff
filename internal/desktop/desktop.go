// Package desktop binds the notification manager to the operating system's
// notification service.
//
// None of the services used here (freedesktop D-Bus, Windows toasts, the
// macOS notifier behind beeep) keep a per-application consent state that a
// program can query, so Platform keeps its own in the state package and asks
// the user through a Prompter. Once a decision is stored it is returned
// without prompting; a denial is never re-prompted.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focusflow/focusflow/internal/logging"
	"github.com/focusflow/focusflow/internal/notify"
	"github.com/focusflow/focusflow/internal/state"
)

// Backend shows alerts on one kind of notification service.
type Backend interface {
	Name() string
	Available() bool
	Show(title string, opts notify.DisplayOptions) (notify.Alert, error)
	Close() error
}

// Prompter asks the user whether notifications may be shown. Returning
// PermissionDefault means the user dismissed the question without answering.
type Prompter interface {
	Prompt(ctx context.Context) (notify.PermissionState, error)
}

// StaticPrompter answers every prompt with the same state.
type StaticPrompter notify.PermissionState

func (s StaticPrompter) Prompt(context.Context) (notify.PermissionState, error) {
	return notify.PermissionState(s), nil
}

// Platform implements notify.Platform on top of a Backend.
type Platform struct {
	app      string
	backend  Backend
	prompter Prompter
	now      func() time.Time
}

// NewPlatform combines a backend and a prompter. app keys the stored consent.
func NewPlatform(app string, b Backend, p Prompter) *Platform {
	return &Platform{app: app, backend: b, prompter: p, now: time.Now}
}

func (p *Platform) Supported() bool {
	return p.backend != nil && p.backend.Available()
}

// CurrentPermission returns the stored decision, or default when none is
// stored or the state file cannot be read.
func (p *Platform) CurrentPermission() notify.PermissionState {
	rec, ok, err := state.GetConsent(p.app)
	if err != nil {
		logging.Get().Warn().Err(err).Msg("failed reading stored notification consent")
		return notify.PermissionDefault
	}
	if !ok {
		return notify.PermissionDefault
	}
	perm, err := notify.ParsePermission(rec.Permission)
	if err != nil {
		logging.Get().Warn().Err(err).Msg("ignoring invalid stored notification consent")
		return notify.PermissionDefault
	}
	return perm
}

// RequestPermission resolves immediately from a stored decision, otherwise
// prompts the user and stores a granted or denied answer.
func (p *Platform) RequestPermission(ctx context.Context) (notify.PermissionState, error) {
	if perm := p.CurrentPermission(); perm != notify.PermissionDefault {
		return perm, nil
	}
	if p.prompter == nil {
		return notify.PermissionDefault, errors.New("no consent prompt configured")
	}
	perm, err := p.prompter.Prompt(ctx)
	if err != nil {
		return notify.PermissionDefault, err
	}
	if perm == notify.PermissionDefault {
		return perm, nil
	}
	rec := state.ConsentRecord{App: p.app, Permission: perm.String(), DecidedAt: p.now().UTC()}
	if err := state.SaveConsent(rec); err != nil {
		// the answer still counts for this run
		logging.Get().Error().Err(err).Msg("failed to persist notification consent")
	}
	return perm, nil
}

func (p *Platform) Display(title string, opts notify.DisplayOptions) (notify.Alert, error) {
	return p.backend.Show(title, opts)
}

// Close releases the backend.
func (p *Platform) Close() error {
	if p.backend == nil {
		return nil
	}
	return p.backend.Close()
}

// Open builds the platform for this operating system. promptMode is
// "desktop" (ask through the notification service when it supports
// actions), "grant" or "deny". When no service is reachable the returned
// platform reports itself unsupported.
func Open(app, promptMode string) (*Platform, error) {
	b, err := newSystemBackend(app)
	if err != nil {
		logging.Get().Warn().Err(err).Msg("no desktop notification service reachable")
	}
	var prompter Prompter
	switch strings.ToLower(promptMode) {
	case "grant":
		prompter = StaticPrompter(notify.PermissionGranted)
	case "deny":
		prompter = StaticPrompter(notify.PermissionDenied)
	case "", "desktop":
		if pr, ok := b.(Prompter); ok {
			prompter = pr
		} else {
			// the OS keeps its own notification switch for the app
			prompter = StaticPrompter(notify.PermissionGranted)
		}
	default:
		return nil, fmt.Errorf("unknown permission prompt mode %q", promptMode)
	}
	if b != nil {
		logging.Get().Info().Str("backend", b.Name()).Msg("desktop notification backend ready")
	}
	return NewPlatform(app, b, prompter), nil
}

// noopAlert is the handle of services that neither close nor report clicks.
type noopAlert struct{}

func (noopAlert) Close() error { return nil }

func (noopAlert) OnClick(func()) func() { return func() {} }
