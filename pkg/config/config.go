// Package config loads the daemon and surface configuration file
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// Config holds all configuration for transit-snoozer.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Alarm    AlarmConfig    `yaml:"alarm"`
	Listener ListenerConfig `yaml:"listener"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
}

// BridgeConfig selects how the foreground reaches the listener.
// An empty NATSURL runs everything in one process.
type BridgeConfig struct {
	NATSURL        string   `yaml:"nats_url"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// AlarmConfig tunes the alarm channels.
type AlarmConfig struct {
	Cooldown         Duration             `yaml:"cooldown"`
	DefaultSettings  models.AlarmSettings `yaml:"default_settings"`
	MediaVolumeMax   int                  `yaml:"media_volume_max"`
	MediaVolumeLevel int                  `yaml:"media_volume_level"`
	Vibration        string               `yaml:"vibration"` // none or bell
	VibrationPattern []Duration           `yaml:"vibration_pattern"`
	CustomSounds     map[string]string    `yaml:"custom_sounds"` // id -> WAV path
}

// ListenerConfig controls notification capture and mirroring.
type ListenerConfig struct {
	AllowList     []models.TransitApp `yaml:"allow_list"`
	PendingLimit  int                 `yaml:"pending_limit"`
	RetryDelay    Duration            `yaml:"retry_delay"`
	RetryAttempts int                 `yaml:"retry_attempts"`
}

// MetricsConfig controls the /metrics endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// UIConfig controls the tray application.
type UIConfig struct {
	StopHotkey string `yaml:"stop_hotkey"` // empty disables the global hotkey
}

const (
	VibrationNone = "none"
	VibrationBell = "bell"
)

// Duration wraps time.Duration for YAML unmarshalling from strings like "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Bridge: BridgeConfig{
			SubjectPrefix:  "transit-snoozer",
			RequestTimeout: Duration{2 * time.Second},
		},
		Alarm: AlarmConfig{
			Cooldown:         Duration{30 * time.Second},
			DefaultSettings:  models.DefaultSettings(),
			MediaVolumeMax:   15,
			MediaVolumeLevel: 10,
			Vibration:        VibrationBell,
			VibrationPattern: []Duration{{0}, {time.Second}, {time.Second}},
		},
		Listener: ListenerConfig{
			AllowList:     append([]models.TransitApp(nil), models.DefaultTransitApps...),
			PendingLimit:  50,
			RetryDelay:    Duration{2 * time.Second},
			RetryAttempts: 2,
		},
		UI: UIConfig{
			StopHotkey: "ctrl+shift+s",
		},
	}
}

// Load reads the config file and merges with defaults.
// Missing file is not an error, defaults are used silently.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads config from a specific path and applies env overrides.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Defaults(), fmt.Errorf("config validation: %w", err)
	}
	cfg.Alarm.DefaultSettings = cfg.Alarm.DefaultSettings.Normalize()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRANSIT_SNOOZER_NATS_URL"); v != "" {
		c.Bridge.NATSURL = v
	}
	if v := os.Getenv("TRANSIT_SNOOZER_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

func (c Config) validate() error {
	if cd := c.Alarm.Cooldown.Duration; cd < time.Second || cd > 10*time.Minute {
		return fmt.Errorf("cooldown must be between 1s and 10m, got %s", cd)
	}
	if c.Alarm.MediaVolumeMax <= 0 {
		return fmt.Errorf("media_volume_max must be positive, got %d", c.Alarm.MediaVolumeMax)
	}
	if lvl := c.Alarm.MediaVolumeLevel; lvl < 0 || lvl > c.Alarm.MediaVolumeMax {
		return fmt.Errorf("media_volume_level must be between 0 and %d, got %d", c.Alarm.MediaVolumeMax, lvl)
	}
	switch c.Alarm.Vibration {
	case VibrationNone, VibrationBell:
	default:
		return fmt.Errorf("vibration must be %q or %q, got %q", VibrationNone, VibrationBell, c.Alarm.Vibration)
	}
	if n := len(c.Alarm.VibrationPattern); n != 3 {
		return fmt.Errorf("vibration_pattern needs delay, on and off, got %d values", n)
	}
	if len(c.Listener.AllowList) == 0 {
		return fmt.Errorf("allow_list must name at least one app")
	}
	for _, app := range c.Listener.AllowList {
		if strings.TrimSpace(app.Identifier) == "" {
			return fmt.Errorf("allow_list entry %q has no identifier", app.DisplayName)
		}
	}
	if c.Listener.PendingLimit < 1 {
		return fmt.Errorf("pending_limit must be at least 1, got %d", c.Listener.PendingLimit)
	}
	if c.Listener.RetryDelay.Duration <= 0 {
		return fmt.Errorf("retry_delay must be positive, got %s", c.Listener.RetryDelay)
	}
	if c.Listener.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts cannot be negative, got %d", c.Listener.RetryAttempts)
	}
	if c.Bridge.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.Bridge.RequestTimeout)
	}
	if _, _, err := c.UI.Hotkey(); err != nil {
		return err
	}
	for id, path := range c.Alarm.CustomSounds {
		if !strings.EqualFold(filepath.Ext(path), ".wav") {
			return fmt.Errorf("custom sound %q must be a .wav file, got %s", id, path)
		}
	}
	return nil
}

// Path returns the default config file location
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "transit-snoozer", "config.yml")
}

// Pattern returns the vibration pattern as delay, on and off
func (a AlarmConfig) Pattern() (delay, on, off time.Duration) {
	if len(a.VibrationPattern) != 3 {
		return 0, time.Second, time.Second
	}
	return a.VibrationPattern[0].Duration, a.VibrationPattern[1].Duration, a.VibrationPattern[2].Duration
}

// AllowListIDs returns the identifiers of the allow-listed apps
func (l ListenerConfig) AllowListIDs() []string {
	ids := make([]string, 0, len(l.AllowList))
	for _, app := range l.AllowList {
		ids = append(ids, app.Identifier)
	}
	return ids
}

// Hotkey splits StopHotkey into its modifiers (ctrl, shift) and a single
// letter or digit key. An empty StopHotkey yields no key and no error.
func (u UIConfig) Hotkey() (mods []string, key string, err error) {
	combo := strings.ToLower(strings.TrimSpace(u.StopHotkey))
	if combo == "" {
		return nil, "", nil
	}
	parts := strings.Split(combo, "+")
	for _, p := range parts[:len(parts)-1] {
		switch p = strings.TrimSpace(p); p {
		case "ctrl", "shift":
			mods = append(mods, p)
		default:
			return nil, "", fmt.Errorf("stop_hotkey: unsupported modifier %q", p)
		}
	}
	key = strings.TrimSpace(parts[len(parts)-1])
	if len(key) != 1 || !(key[0] >= 'a' && key[0] <= 'z' || key[0] >= '0' && key[0] <= '9') {
		return nil, "", fmt.Errorf("stop_hotkey: key must be a letter or digit, got %q", key)
	}
	if len(mods) == 0 {
		return nil, "", fmt.Errorf("stop_hotkey: %q needs at least one modifier", u.StopHotkey)
	}
	return mods, key, nil
}
