package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for focusflow
type Config struct {
	// AppName is shown as the notification sender and keys stored consent
	AppName string `json:"app_name" yaml:"app_name"`
	// AppURL is opened when an alert is clicked
	AppURL       string `json:"app_url" yaml:"app_url"`
	DefaultIcon  string `json:"default_icon" yaml:"default_icon"`
	DefaultBadge string `json:"default_badge" yaml:"default_badge"`
	// DismissAfter closes displayed alerts automatically
	DismissAfter time.Duration `json:"dismiss_after" yaml:"dismiss_after"`
	// NotificationsEnabled is the initial value of the user's toggle
	NotificationsEnabled bool `json:"notifications_enabled" yaml:"notifications_enabled"`
	// PermissionPrompt is "desktop", "grant" or "deny"
	PermissionPrompt string `json:"permission_prompt" yaml:"permission_prompt"`

	// Control API
	Listen         string   `json:"listen" yaml:"listen"`
	CSRFKey        string   `json:"csrf_key" yaml:"csrf_key"`
	TrustedOrigins []string `json:"trusted_origins" yaml:"trusted_origins"`

	// Journal
	JournalPath      string        `json:"journal_path" yaml:"journal_path"`
	JournalRetention time.Duration `json:"journal_retention" yaml:"journal_retention"`

	// Session cycle
	WorkDuration       time.Duration `json:"work_duration" yaml:"work_duration"`
	ShortBreakDuration time.Duration `json:"short_break_duration" yaml:"short_break_duration"`
	LongBreakDuration  time.Duration `json:"long_break_duration" yaml:"long_break_duration"`
	LongBreakEvery     int           `json:"long_break_every" yaml:"long_break_every"`
	AutoStartSession   bool          `json:"auto_start_session" yaml:"auto_start_session"`

	Tray bool `json:"tray" yaml:"tray"`

	// Metrics
	MetricsEnabled bool `json:"metrics_enabled" yaml:"metrics_enabled"`

	// InfluxDB (push)
	InfluxURL      string        `json:"influx_url" yaml:"influx_url"`
	InfluxToken    string        `json:"influx_token" yaml:"influx_token"`
	InfluxOrg      string        `json:"influx_org" yaml:"influx_org"`
	InfluxBucket   string        `json:"influx_bucket" yaml:"influx_bucket"`
	InfluxInterval time.Duration `json:"influx_interval" yaml:"influx_interval"`

	// Logging
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogFile    string `json:"log_file" yaml:"log_file"`
	LogConsole bool   `json:"log_console" yaml:"log_console"`
}

// DefaultConfig returns a sane default configuration
func DefaultConfig() *Config {
	return &Config{
		AppName:              "focusflow",
		AppURL:               "http://localhost:3000",
		DismissAfter:         5 * time.Second,
		NotificationsEnabled: true,
		PermissionPrompt:     "desktop",

		// loopback only; the web app runs on the same machine
		Listen: "127.0.0.1:7373",

		JournalPath:      "focusflow.db",
		JournalRetention: 30 * 24 * time.Hour,

		WorkDuration:       25 * time.Minute,
		ShortBreakDuration: 5 * time.Minute,
		LongBreakDuration:  15 * time.Minute,
		LongBreakEvery:     4,

		// Metrics defaults (opt-in)
		MetricsEnabled: false,
		InfluxInterval: 1 * time.Minute,

		LogLevel: "info",
	}
}

// Validate returns a list of non-fatal configuration warnings.
func (c *Config) Validate() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{c.AppURL == "", "app_url is empty; clicking an alert will not open the app"},
		{c.DismissAfter <= 0, "dismiss_after must be positive; the 5s default is used"},
		{c.CSRFKey != "" && len(c.CSRFKey) != 32, "csrf_key must be exactly 32 bytes; CSRF protection is disabled"},
		{c.InfluxURL != "" && (c.InfluxBucket == "" || c.InfluxOrg == ""), "influx URL provided but org or bucket is missing"},
		{c.InfluxURL == "" && c.InfluxToken != "", "influx token provided but URL is missing"},
		{c.LongBreakEvery < 1, "long_break_every must be at least 1; the default of 4 is used"},
		{c.JournalPath == "", "journal_path is empty; alert history is not kept"},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	switch strings.ToLower(c.PermissionPrompt) {
	case "", "desktop", "grant", "deny":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown permission_prompt %q (expected desktop, grant or deny)", c.PermissionPrompt))
	}
	if w := validateListen(c.Listen); w != "" {
		warnings = append(warnings, w)
	}
	return warnings
}

// validateListen warns when the control API would be reachable from other
// machines.
func validateListen(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("invalid listen address %q (expected host:port)", addr)
	}
	if host == "localhost" {
		return ""
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Sprintf("listen address %q is not loopback; the control API has no authentication", addr)
	}
	return ""
}

// LoadConfigFromFile loads config from a YAML/JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
