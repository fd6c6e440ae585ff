//go:build linux

package desktop

import "github.com/focusflow/focusflow/internal/logging"

// newSystemBackend prefers the D-Bus service and falls back to beeep's
// notify-send path when the bus is not reachable.
func newSystemBackend(app string) (Backend, error) {
	b, err := NewDBusBackend(app)
	if err == nil {
		return b, nil
	}
	fallback := NewBeeepBackend(app)
	if fallback.Available() {
		logging.Get().Warn().Err(err).Msg("d-bus notifications unavailable, falling back to notify-send")
		return fallback, nil
	}
	return nil, err
}
