package desktop

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/gen2brain/beeep"

	"github.com/focusflow/focusflow/internal/notify"
)

var (
	beeepNotify = beeep.Notify
	lookPath    = exec.LookPath
)

// BeeepBackend shows alerts through gen2brain/beeep. Alerts cannot be closed
// or clicked; the OS expires them on its own.
type BeeepBackend struct {
	app string
}

func NewBeeepBackend(app string) *BeeepBackend {
	return &BeeepBackend{app: app}
}

func (b *BeeepBackend) Name() string { return "beeep" }

// Available checks for the helper tools beeep shells out to on Linux/BSD.
// macOS and Windows always have a notifier.
func (b *BeeepBackend) Available() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	}
	for _, tool := range []string{"notify-send", "kdialog"} {
		if _, err := lookPath(tool); err == nil {
			return true
		}
	}
	return false
}

func (b *BeeepBackend) Show(title string, opts notify.DisplayOptions) (notify.Alert, error) {
	if err := beeepNotify(title, opts.Body, opts.Icon); err != nil {
		return nil, fmt.Errorf("beeep notify: %w", err)
	}
	return noopAlert{}, nil
}

func (b *BeeepBackend) Close() error { return nil }
