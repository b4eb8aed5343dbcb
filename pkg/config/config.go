// Package config handles loading and saving taskgrid configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/taskgrid/config.yaml
//
// Durations are stored as milliseconds so the file round-trips cleanly
// through YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/x2605/taskgrid/pkg/detect"
)

// DetectorConfig holds the change-detection thresholds.
type DetectorConfig struct {
	// ForceRefreshAfterMs forces a rebuild when no refresh happened for
	// this long, even without a change notification.
	ForceRefreshAfterMs int `yaml:"force_refresh_after_ms,omitempty"`
	// MaxChangedRecords bounds how many changed records are worth
	// patching individually.
	MaxChangedRecords int `yaml:"max_changed_records,omitempty"`
}

// ToDetect converts to the detector's native config.
func (c DetectorConfig) ToDetect() detect.Config {
	cfg := detect.DefaultConfig()
	if c.ForceRefreshAfterMs > 0 {
		cfg.ForceRefreshAfter = time.Duration(c.ForceRefreshAfterMs) * time.Millisecond
	}
	if c.MaxChangedRecords > 0 {
		cfg.MaxChangedRecords = c.MaxChangedRecords
	}
	return cfg
}

// WatchConfig holds change-notification tuning.
type WatchConfig struct {
	DebounceMs     int `yaml:"debounce_ms,omitempty"`
	PollIntervalMs int `yaml:"poll_interval_ms,omitempty"`
}

// Debounce returns the burst-coalescing window.
func (c WatchConfig) Debounce() time.Duration {
	if c.DebounceMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// PollInterval returns the fallback stat cadence.
func (c WatchConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// VerifyConfig holds the operation-verification budget.
type VerifyConfig struct {
	TimeoutMs      int `yaml:"timeout_ms,omitempty"`
	PollIntervalMs int `yaml:"poll_interval_ms,omitempty"`
}

// Timeout returns the verification budget per operation.
func (c VerifyConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// PollInterval returns the predicate check cadence.
func (c VerifyConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	// MaxDepth is how many category levels render as columns.
	MaxDepth int `yaml:"max_depth,omitempty"`
	// ShowCompleted includes done tasks in the table by default.
	ShowCompleted bool `yaml:"show_completed,omitempty"`
}

// WorkspacePrefs is the small per-workspace preference blob.
type WorkspacePrefs struct {
	Visible       bool `yaml:"visible"`
	ShowCompleted bool `yaml:"show_completed"`
}

// Config is the top-level configuration for taskgrid.
type Config struct {
	Detector   DetectorConfig            `yaml:"detector,omitempty"`
	Watch      WatchConfig               `yaml:"watch,omitempty"`
	Verify     VerifyConfig              `yaml:"verify,omitempty"`
	UI         UIConfig                  `yaml:"ui,omitempty"`
	Workspaces map[string]WorkspacePrefs `yaml:"workspaces,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI:         UIConfig{MaxDepth: 2},
		Workspaces: make(map[string]WorkspacePrefs),
	}
}

// ConfigDir returns the XDG config directory for taskgrid.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "taskgrid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "taskgrid")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Workspaces == nil {
		cfg.Workspaces = make(map[string]WorkspacePrefs)
	}
	if cfg.UI.MaxDepth <= 0 {
		cfg.UI.MaxDepth = 2
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// PrefsFor returns the preference blob for a workspace id, defaulting to a
// visible table honoring the global show-completed setting.
func (c Config) PrefsFor(workspace string) WorkspacePrefs {
	if p, ok := c.Workspaces[workspace]; ok {
		return p
	}
	return WorkspacePrefs{Visible: true, ShowCompleted: c.UI.ShowCompleted}
}

// SetPrefs stores the preference blob for a workspace id.
func (c *Config) SetPrefs(workspace string, p WorkspacePrefs) {
	if c.Workspaces == nil {
		c.Workspaces = make(map[string]WorkspacePrefs)
	}
	c.Workspaces[workspace] = p
}
