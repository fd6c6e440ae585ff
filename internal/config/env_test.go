package config

import (
	"testing"
	"time"
)

func TestApplyEnvOverrides(t *testing.T) {
	applyEnvSetup(t)

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides failed: %v", err)
	}
	validateAppliedEnvOverrides(t, cfg)
}

func applyEnvSetup(t *testing.T) {
	t.Helper()
	env := map[string]string{
		"FOCUSFLOW_APP_URL":               "http://localhost:5173/timer",
		"FOCUSFLOW_DEFAULT_ICON":          "/usr/share/focusflow/icon.png",
		"FOCUSFLOW_DISMISS_AFTER":         "8s",
		"FOCUSFLOW_NOTIFICATIONS_ENABLED": "false",
		"FOCUSFLOW_PERMISSION_PROMPT":     "grant",
		"FOCUSFLOW_TRUSTED_ORIGINS":       "localhost:5173, 127.0.0.1:5173",
		"FOCUSFLOW_WORK_DURATION":         "50m",
		"FOCUSFLOW_LONG_BREAK_EVERY":      "3",
		"FOCUSFLOW_TRAY":                  "true",
		"FOCUSFLOW_METRICS_ENABLED":       "true",
		"FOCUSFLOW_INFLUX_URL":            "http://influx:8086",
		"FOCUSFLOW_INFLUX_BUCKET":         "b",
		"FOCUSFLOW_INFLUX_ORG":            "o",
		"FOCUSFLOW_INFLUX_TOKEN":          "t",
		"FOCUSFLOW_INFLUX_INTERVAL":       "30s",
		"FOCUSFLOW_LOG_LEVEL":             "debug",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func validateAppliedEnvOverrides(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.AppURL != "http://localhost:5173/timer" || cfg.DefaultIcon != "/usr/share/focusflow/icon.png" {
		t.Fatalf("unexpected app settings: %q %q", cfg.AppURL, cfg.DefaultIcon)
	}
	if cfg.DismissAfter != 8*time.Second {
		t.Fatalf("expected dismiss 8s, got %v", cfg.DismissAfter)
	}
	if cfg.NotificationsEnabled {
		t.Fatalf("expected notifications disabled")
	}
	if cfg.PermissionPrompt != "grant" {
		t.Fatalf("unexpected prompt mode: %s", cfg.PermissionPrompt)
	}
	if len(cfg.TrustedOrigins) != 2 || cfg.TrustedOrigins[1] != "127.0.0.1:5173" {
		t.Fatalf("unexpected trusted origins: %q", cfg.TrustedOrigins)
	}
	if cfg.WorkDuration != 50*time.Minute || cfg.LongBreakEvery != 3 {
		t.Fatalf("unexpected session config: %v %d", cfg.WorkDuration, cfg.LongBreakEvery)
	}
	if !cfg.Tray || !cfg.MetricsEnabled {
		t.Fatalf("expected tray and metrics enabled")
	}
	if cfg.InfluxURL != "http://influx:8086" {
		t.Fatalf("unexpected influx url: %s", cfg.InfluxURL)
	}
	if cfg.InfluxBucket != "b" || cfg.InfluxOrg != "o" || cfg.InfluxToken != "t" {
		t.Fatalf("unexpected influx config: %v", cfg)
	}
	if cfg.InfluxInterval != 30*time.Second {
		t.Fatalf("unexpected influx interval: %v", cfg.InfluxInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.ShortBreakDuration != 5*time.Minute {
		t.Fatalf("unset variables must keep defaults, got %v", cfg.ShortBreakDuration)
	}
}

func TestApplyEnvOverridesInvalid(t *testing.T) {
	cases := map[string]string{
		"FOCUSFLOW_DISMISS_AFTER":         "soon",
		"FOCUSFLOW_NOTIFICATIONS_ENABLED": "maybe",
		"FOCUSFLOW_LONG_BREAK_EVERY":      "four",
		"FOCUSFLOW_INFLUX_INTERVAL":       "1x",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			if err := ApplyEnvOverrides(DefaultConfig()); err == nil {
				t.Fatalf("expected error for %s=%s", env, val)
			}
		})
	}
}
