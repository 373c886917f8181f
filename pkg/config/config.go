// Package config handles loading and saving incidentline configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/incidentline/config.yaml
//   - State:   ~/.local/state/incidentline/ (recent incident files)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

const appDir = "incidentline"

// maxRecent caps the recent files list.
const maxRecent = 10

// TimelineConfig tunes the layout engine.
type TimelineConfig struct {
	TickSpacingPx   float64 `yaml:"tick_spacing_px,omitempty"`   // Pixels per tick segment (default 130)
	MarkerSpacingPx float64 `yaml:"marker_spacing_px,omitempty"` // Pixels reserved per marker (default 35)
	ProximityPx     float64 `yaml:"proximity_px,omitempty"`      // Merge distance for records (default 25)
	ZoomMax         float64 `yaml:"zoom_max,omitempty"`
	MinBarWidthPx   float64 `yaml:"min_bar_width_px,omitempty"`
	Location        string  `yaml:"location,omitempty"` // IANA zone for tick labels, empty = local
}

// MinimapConfig sizes the overview strip.
type MinimapConfig struct {
	Width     float64 `yaml:"width,omitempty"`
	RowHeight float64 `yaml:"row_height,omitempty"`
}

// UIConfig holds terminal viewer preferences.
type UIConfig struct {
	CellWidthPx float64 `yaml:"cell_width_px,omitempty"` // Virtual pixels per terminal column
	Theme       string  `yaml:"theme,omitempty"`         // auto, dark, light
	LabelWidth  int     `yaml:"label_width,omitempty"`   // Columns for row titles
}

// ServerConfig controls `il --serve`.
type ServerConfig struct {
	Listen   string `yaml:"listen,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// Config is the top-level configuration for il.
type Config struct {
	Timeline    TimelineConfig `yaml:"timeline,omitempty"`
	Minimap     MinimapConfig  `yaml:"minimap,omitempty"`
	UI          UIConfig       `yaml:"ui,omitempty"`
	Server      ServerConfig   `yaml:"server,omitempty"`
	RecentFiles []string       `yaml:"recent_files,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeline: TimelineConfig{
			TickSpacingPx:   timeline.DefaultTickSpacingPx,
			MarkerSpacingPx: timeline.DefaultMarkerSpacingPx,
			ProximityPx:     timeline.DefaultProximityPx,
			ZoomMax:         timeline.DefaultZoomMax,
			MinBarWidthPx:   timeline.MinBarWidthPx,
		},
		Minimap: MinimapConfig{
			Width:     timeline.DefaultMinimapWidth,
			RowHeight: timeline.DefaultMinimapRowHeight,
		},
		UI: UIConfig{
			CellWidthPx: 8,
			Theme:       "auto",
			LabelWidth:  24,
		},
		Server: ServerConfig{
			Listen:   "127.0.0.1:8088",
			LogLevel: "info",
		},
	}
}

// EngineOptions converts the timeline and minimap sections into engine
// options. Unset values fall back to the engine defaults.
func (c Config) EngineOptions() (timeline.Options, error) {
	opts := timeline.DefaultOptions()
	opts.ZoomMax = c.Timeline.ZoomMax
	opts.TickSpacingPx = c.Timeline.TickSpacingPx
	opts.MinBarWidthPx = c.Timeline.MinBarWidthPx
	opts.Cluster = timeline.ClusterOptions{
		ProximityPx:     c.Timeline.ProximityPx,
		MarkerSpacingPx: c.Timeline.MarkerSpacingPx,
	}
	if c.Minimap.Width > 0 {
		opts.Minimap.Width = c.Minimap.Width
	}
	if c.Minimap.RowHeight > 0 {
		opts.Minimap.RowHeight = c.Minimap.RowHeight
	}
	if c.Timeline.Location != "" {
		loc, err := time.LoadLocation(c.Timeline.Location)
		if err != nil {
			return opts, fmt.Errorf("timeline location: %w", err)
		}
		opts.Location = loc
	}
	return opts, nil
}

// ConfigDir returns the XDG config directory for il.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDir)
}

// StateDir returns the XDG state directory for il.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appDir)
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

	for i := range cfg.RecentFiles {
		cfg.RecentFiles[i] = expandHome(cfg.RecentFiles[i])
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

// AddRecent moves path to the front of the recent files list.
func (c *Config) AddRecent(path string) {
	if path == "" {
		return
	}
	out := []string{path}
	for _, p := range c.RecentFiles {
		if p != path {
			out = append(out, p)
		}
	}
	if len(out) > maxRecent {
		out = out[:maxRecent]
	}
	c.RecentFiles = out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
