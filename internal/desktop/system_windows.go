//go:build windows

package desktop

func newSystemBackend(app string) (Backend, error) {
	return NewToastBackend(app), nil
}
