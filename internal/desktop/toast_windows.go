//go:build windows

package desktop

import (
	"fmt"

	"github.com/go-toast/toast"

	"github.com/focusflow/focusflow/internal/notify"
)

// ToastBackend shows Windows toast notifications. Toasts are pushed through
// PowerShell, so they can neither be closed nor report clicks back.
type ToastBackend struct {
	appID string
}

func NewToastBackend(appID string) *ToastBackend {
	return &ToastBackend{appID: appID}
}

func (t *ToastBackend) Name() string    { return "toast" }
func (t *ToastBackend) Available() bool { return true }

func (t *ToastBackend) Show(title string, opts notify.DisplayOptions) (notify.Alert, error) {
	n := toast.Notification{
		AppID:    t.appID,
		Title:    title,
		Message:  opts.Body,
		Icon:     opts.Icon,
		Audio:    toast.Default,
		Duration: toast.Short,
	}
	if opts.Silent {
		n.Audio = toast.Silent
	}
	if opts.RequireInteraction {
		n.Duration = toast.Long
	}
	if err := n.Push(); err != nil {
		return nil, fmt.Errorf("push toast: %w", err)
	}
	return noopAlert{}, nil
}

func (t *ToastBackend) Close() error { return nil }
