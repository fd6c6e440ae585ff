package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - FOCUSFLOW_APP_NAME, FOCUSFLOW_APP_URL (string)
// - FOCUSFLOW_DEFAULT_ICON, FOCUSFLOW_DEFAULT_BADGE (file path)
// - FOCUSFLOW_DISMISS_AFTER (duration, e.g. "5s")
// - FOCUSFLOW_NOTIFICATIONS_ENABLED (bool)
// - FOCUSFLOW_PERMISSION_PROMPT ("desktop", "grant", "deny")
// - FOCUSFLOW_LISTEN (host:port), FOCUSFLOW_CSRF_KEY, FOCUSFLOW_TRUSTED_ORIGINS (comma separated)
// - FOCUSFLOW_JOURNAL_PATH, FOCUSFLOW_JOURNAL_RETENTION (duration)
// - FOCUSFLOW_WORK_DURATION, FOCUSFLOW_SHORT_BREAK_DURATION, FOCUSFLOW_LONG_BREAK_DURATION (duration)
// - FOCUSFLOW_LONG_BREAK_EVERY (int), FOCUSFLOW_AUTO_START_SESSION (bool)
// - FOCUSFLOW_TRAY (bool)
// - FOCUSFLOW_METRICS_ENABLED (bool)
// - FOCUSFLOW_INFLUX_URL, FOCUSFLOW_INFLUX_TOKEN, FOCUSFLOW_INFLUX_ORG, FOCUSFLOW_INFLUX_BUCKET
// - FOCUSFLOW_INFLUX_INTERVAL (duration, e.g. "1m")
// - FOCUSFLOW_LOG_LEVEL, FOCUSFLOW_LOG_FILE, FOCUSFLOW_LOG_CONSOLE (bool)
func ApplyEnvOverrides(cfg *Config) error {
	steps := []func(*Config) error{
		applyNotificationEnv,
		applyAPIEnv,
		applySessionEnv,
		applyMetricsEnv,
		applyInfluxEnv,
		applyLogEnv,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			return err
		}
	}
	return nil
}

func applyNotificationEnv(cfg *Config) error {
	setStringEnv("FOCUSFLOW_APP_NAME", &cfg.AppName)
	setStringEnv("FOCUSFLOW_APP_URL", &cfg.AppURL)
	setStringEnv("FOCUSFLOW_DEFAULT_ICON", &cfg.DefaultIcon)
	setStringEnv("FOCUSFLOW_DEFAULT_BADGE", &cfg.DefaultBadge)
	setStringEnv("FOCUSFLOW_PERMISSION_PROMPT", &cfg.PermissionPrompt)
	if err := setDurationEnv("FOCUSFLOW_DISMISS_AFTER", &cfg.DismissAfter); err != nil {
		return err
	}
	return setBoolEnv("FOCUSFLOW_NOTIFICATIONS_ENABLED", func(b bool) { cfg.NotificationsEnabled = b })
}

func applyAPIEnv(cfg *Config) error {
	setStringEnv("FOCUSFLOW_LISTEN", &cfg.Listen)
	setStringEnv("FOCUSFLOW_CSRF_KEY", &cfg.CSRFKey)
	if v := os.Getenv("FOCUSFLOW_TRUSTED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.TrustedOrigins = parts
	}
	return setBoolEnv("FOCUSFLOW_TRAY", func(b bool) { cfg.Tray = b })
}

func applySessionEnv(cfg *Config) error {
	setStringEnv("FOCUSFLOW_JOURNAL_PATH", &cfg.JournalPath)
	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"FOCUSFLOW_JOURNAL_RETENTION", &cfg.JournalRetention},
		{"FOCUSFLOW_WORK_DURATION", &cfg.WorkDuration},
		{"FOCUSFLOW_SHORT_BREAK_DURATION", &cfg.ShortBreakDuration},
		{"FOCUSFLOW_LONG_BREAK_DURATION", &cfg.LongBreakDuration},
	}
	for _, d := range durations {
		if err := setDurationEnv(d.env, d.dst); err != nil {
			return err
		}
	}
	if v := os.Getenv("FOCUSFLOW_LONG_BREAK_EVERY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FOCUSFLOW_LONG_BREAK_EVERY: %w", err)
		}
		cfg.LongBreakEvery = n
	}
	return setBoolEnv("FOCUSFLOW_AUTO_START_SESSION", func(b bool) { cfg.AutoStartSession = b })
}

// applyMetricsEnv consolidates metrics-related env parsing
func applyMetricsEnv(cfg *Config) error {
	if v := os.Getenv("FOCUSFLOW_METRICS_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "true":
			cfg.MetricsEnabled = true
		case "false":
			cfg.MetricsEnabled = false
		}
	}
	return nil
}

// applyInfluxEnv consolidates Influx-related env parsing
func applyInfluxEnv(cfg *Config) error {
	setStringEnv("FOCUSFLOW_INFLUX_URL", &cfg.InfluxURL)
	setStringEnv("FOCUSFLOW_INFLUX_TOKEN", &cfg.InfluxToken)
	setStringEnv("FOCUSFLOW_INFLUX_ORG", &cfg.InfluxOrg)
	setStringEnv("FOCUSFLOW_INFLUX_BUCKET", &cfg.InfluxBucket)
	return setDurationEnv("FOCUSFLOW_INFLUX_INTERVAL", &cfg.InfluxInterval)
}

func applyLogEnv(cfg *Config) error {
	setStringEnv("FOCUSFLOW_LOG_LEVEL", &cfg.LogLevel)
	setStringEnv("FOCUSFLOW_LOG_FILE", &cfg.LogFile)
	return setBoolEnv("FOCUSFLOW_LOG_CONSOLE", func(b bool) { cfg.LogConsole = b })
}

func setStringEnv(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setDurationEnv(env string, dst *time.Duration) error {
	if v := os.Getenv(env); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*dst = d
	}
	return nil
}

// setBoolEnv is a small helper to parse boolean environment variables
func setBoolEnv(env string, setter func(bool)) error {
	if v := os.Getenv(env); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		setter(b)
	}
	return nil
}
