// Package notify implements the notification dispatch manager: it negotiates
// permission with the host notification primitive, decides whether an alert
// may be shown, and owns the display/auto-dismiss/click-focus lifecycle of
// every alert it puts on screen.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PermissionState mirrors the platform's consent state.
type PermissionState int

const (
	PermissionDefault PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionState) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "default"
	}
}

// ParsePermission parses "default", "granted" or "denied".
func ParsePermission(s string) (PermissionState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PermissionDefault, nil
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	}
	return PermissionDefault, fmt.Errorf("unknown permission state %q", s)
}

// AlertRequest is what callers ask to have shown. Tag groups alerts of one
// category; the platform may coalesce requests sharing a tag.
type AlertRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// DisplayOptions is the full option set handed to the platform.
type DisplayOptions struct {
	Body               string
	Icon               string
	Badge              string
	Tag                string
	Silent             bool
	RequireInteraction bool
	Timestamp          time.Time
}

// Platform is the host notification primitive the manager drives.
type Platform interface {
	Supported() bool
	CurrentPermission() PermissionState
	// RequestPermission may block until the user answers a consent prompt.
	RequestPermission(ctx context.Context) (PermissionState, error)
	Display(title string, opts DisplayOptions) (Alert, error)
}

// Alert is the platform handle of a displayed notification.
type Alert interface {
	Close() error
	// OnClick registers fn for the alert's click event and returns a
	// function that removes the registration.
	OnClick(fn func()) (unsubscribe func())
}

// ClosedNotifier is implemented by alerts whose platform reports when the
// notification leaves the screen on its own, for example when the user
// dismisses it from the notification center.
type ClosedNotifier interface {
	OnClosed(fn func()) (unsubscribe func())
}

// Focuser brings the host application to the foreground.
type Focuser interface {
	Focus() error
}

// FocusFunc adapts a plain function to Focuser.
type FocusFunc func() error

func (f FocusFunc) Focus() error { return f() }

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so auto-dismiss can run on a virtual clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Event is one dispatch or lifecycle outcome, handed to the Recorder.
type Event struct {
	AlertID string
	Tag     string
	Title   string
	Outcome string
	Reason  string
	At      time.Time
}

// Recorder persists dispatch outcomes.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}
