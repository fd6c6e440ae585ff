//go:build !linux && !windows

package desktop

import "errors"

func newSystemBackend(app string) (Backend, error) {
	b := NewBeeepBackend(app)
	if !b.Available() {
		return nil, errors.New("no notifier available on this system")
	}
	return b, nil
}
