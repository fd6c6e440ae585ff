// Package logging owns the process-wide zerolog logger used by focusflow.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps "debug", "info", "warn" and "error" to zerolog levels.
// Anything else falls back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger. Logs always go to stdout; when
// logFilePath is non-empty they are also appended to that file as JSON.
// console switches the stdout stream to zerolog's human readable writer.
func Init(logFilePath, level string, console bool) (func(), error) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	var stdout io.Writer = os.Stdout
	if console {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	writers := []io.Writer{stdout}

	var f *os.File
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	Log = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Str("app", "focusflow").Logger()
	return func() {
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// Log is the package-global logger configured by Init. Before Init it is a
// disabled logger so packages can log from tests without setup.
var Log = zerolog.Nop()

// Get returns a pointer to the package-global logger
func Get() *zerolog.Logger {
	return &Log
}
