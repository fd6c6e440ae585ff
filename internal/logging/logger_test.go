package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"default level", "", zerolog.InfoLevel},
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"warning alias", "warning", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
		{"case insensitive", "DEBUG", zerolog.DebugLevel},
		{"unknown falls back", "verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup, err := Init("", tt.level, false)
			if err != nil {
				t.Fatalf("Init() failed: %v", err)
			}
			defer cleanup()

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("expected level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestInitWritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "focusflow.log")

	cleanup, err := Init(logPath, "info", true)
	if err != nil {
		t.Fatalf("Init() with file failed: %v", err)
	}
	Get().Info().Str("tag", "work-complete").Msg("alert displayed")
	cleanup()

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file was not created at %s: %v", logPath, err)
	}
	line := string(b)
	if !strings.Contains(line, `"tag":"work-complete"`) || !strings.Contains(line, `"app":"focusflow"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestGetBeforeInit(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() returned nil logger")
	}
	Get().Info().Msg("no-op before init")
}
