package controller

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Destination is one navigable target, matched by any of its keywords.
type Destination struct {
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Keywords []string `yaml:"keywords"`
}

// Config holds every timing constant and the destination table. All
// delays are explicit so the choreography between speech output and
// listening windows is tunable and testable.
type Config struct {
	// SettleDelay separates a spoken prompt from the listening window
	// that follows it, so the prompt itself is not captured.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// EnrollCaptureTime is the fixed recording length per enrollment phrase.
	EnrollCaptureTime time.Duration `yaml:"enroll_capture_time"`

	// ListenCaptureMax caps open-ended captures (commands and challenge
	// responses) so they cannot hang.
	ListenCaptureMax time.Duration `yaml:"listen_capture_max"`

	// StatusRevertDelay is how long transient statuses stay on screen
	// before the session returns to idle.
	StatusRevertDelay time.Duration `yaml:"status_revert_delay"`

	// Destinations is the navigate keyword table.
	Destinations []Destination `yaml:"destinations"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		SettleDelay:       500 * time.Millisecond,
		EnrollCaptureTime: 4 * time.Second,
		ListenCaptureMax:  8 * time.Second,
		StatusRevertDelay: 3 * time.Second,
		Destinations: []Destination{
			{Name: "home", Path: "/", Keywords: []string{"home", "dashboard"}},
			{Name: "sensors", Path: "/sensors", Keywords: []string{"vibration", "sensor"}},
			{Name: "notifications", Path: "/notifications", Keywords: []string{"notification", "alert"}},
			{Name: "profile", Path: "/profile", Keywords: []string{"profile", "account"}},
			{Name: "settings", Path: "/settings", Keywords: []string{"setting", "config"}},
		},
	}
}

// LoadConfig reads a YAML config file, falling back to defaults for a
// missing file or unset fields.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("parse controller config, using defaults", "path", path, "err", err)
		return DefaultConfig()
	}
	return cfg
}
