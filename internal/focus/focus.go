// Package focus brings the focusflow web app to the foreground when an alert
// is clicked.
package focus

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/focusflow/focusflow/internal/logging"
)

// execCommand starts a detached helper process.
var execCommand = func(name string, args ...string) error {
	_, err := start(exec.Command(name, args...))
	return err
}

// start runs cmd in the background and reaps it once it exits. The returned
// channel yields the exit result.
func start(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil {
			logging.Get().Debug().Err(err).Str("cmd", cmd.Path).Msg("open helper exited")
		}
		done <- err
	}()
	return done, nil
}

// Opener opens a URL with the desktop's default handler.
type Opener struct {
	URL  string
	goos string
}

// NewOpener returns an opener for url on the running OS.
func NewOpener(url string) *Opener {
	return &Opener{URL: url, goos: runtime.GOOS}
}

// Focus implements notify.Focuser.
func (o *Opener) Focus() error {
	if o.URL == "" {
		return errors.New("no app url configured")
	}
	name, args := command(o.goos, o.URL)
	if err := execCommand(name, args...); err != nil {
		return fmt.Errorf("open %s: %w", o.URL, err)
	}
	logging.Get().Debug().Str("url", o.URL).Msg("focused app")
	return nil
}

func command(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	}
	return "xdg-open", []string{url}
}
