// Package hooks runs user commands when the viewer hands off an action or
// writes a snapshot. Hooks are configured via .il/hooks.yaml and run at two
// points: when an action is chosen for a selection (on-action) and after a
// snapshot is written (post-export).
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// OnAction runs when the user picks an action from the menu.
	OnAction HookPhase = "on-action"
	// PostExport runs after a snapshot is written. Failure is logged but doesn't break export.
	PostExport HookPhase = "post-export"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`                             // Human-readable name
	Command string            `yaml:"command" json:"command"`                       // Shell command to run
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`   // Execution timeout (default: 30s)
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // Additional environment variables
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue" (default)
	Actions []string          `yaml:"actions,omitempty" json:"actions,omitempty"`   // on-action only; empty matches every action
}

// Matches reports whether the hook applies to action.
func (h Hook) Matches(action string) bool {
	return len(h.Actions) == 0 || slices.Contains(h.Actions, action)
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	OnAction   []Hook `yaml:"on-action,omitempty" json:"on-action,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
}

// ActionContext describes a chosen action; hooks receive it as environment
// variables.
type ActionContext struct {
	EventID    string    // IL_EVENT_ID: id of the selection event
	Action     string    // IL_ACTION: e.g. "acknowledge"
	IncidentID string    // IL_INCIDENT_ID
	EntityID   string    // IL_ENTITY_ID: alert entity, may be empty
	NodeID     string    // IL_NODE_ID: selected row, may be empty
	RecordIDs  []string  // IL_RECORD_IDS: comma separated marker records
	Timestamp  time.Time // IL_TIMESTAMP (RFC3339)
}

// ToEnv converts the action context to environment variables
func (c ActionContext) ToEnv() []string {
	return []string{
		fmt.Sprintf("IL_EVENT_ID=%s", c.EventID),
		fmt.Sprintf("IL_ACTION=%s", c.Action),
		fmt.Sprintf("IL_INCIDENT_ID=%s", c.IncidentID),
		fmt.Sprintf("IL_ENTITY_ID=%s", c.EntityID),
		fmt.Sprintf("IL_NODE_ID=%s", c.NodeID),
		fmt.Sprintf("IL_RECORD_IDS=%s", strings.Join(c.RecordIDs, ",")),
		fmt.Sprintf("IL_TIMESTAMP=%s", c.Timestamp.Format(time.RFC3339)),
	}
}

// ExportContext contains information passed to post-export hooks
type ExportContext struct {
	ExportPath   string    // IL_EXPORT_PATH: Output file path
	ExportFormat string    // IL_EXPORT_FORMAT: 'svg' or 'png'
	IncidentID   string    // IL_INCIDENT_ID
	RecordCount  int       // IL_RECORD_COUNT: records in the incident
	Timestamp    time.Time // IL_TIMESTAMP: Export timestamp (RFC3339)
}

// ToEnv converts export context to environment variables
func (c ExportContext) ToEnv() []string {
	return []string{
		fmt.Sprintf("IL_EXPORT_PATH=%s", c.ExportPath),
		fmt.Sprintf("IL_EXPORT_FORMAT=%s", c.ExportFormat),
		fmt.Sprintf("IL_INCIDENT_ID=%s", c.IncidentID),
		fmt.Sprintf("IL_RECORD_COUNT=%d", c.RecordCount),
		fmt.Sprintf("IL_TIMESTAMP=%s", c.Timestamp.Format(time.RFC3339)),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// Loader loads hook configuration from .il/hooks.yaml
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithProjectDir sets the project directory (default: current directory)
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}

	for _, opt := range opts {
		opt(l)
	}

	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}

	return l
}

// Load loads hook configuration from .il/hooks.yaml
func (l *Loader) Load() error {
	configPath := filepath.Join(l.projectDir, ".il", "hooks.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file means no hooks
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}

	config.Hooks.OnAction, l.warnings = normalizeHooks(config.Hooks.OnAction, OnAction, l.warnings)
	config.Hooks.PostExport, l.warnings = normalizeHooks(config.Hooks.PostExport, PostExport, l.warnings)

	l.config = &config
	return nil
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i := range hooks {
		hook := hooks[i]
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		if hook.OnError == "" {
			hook.OnError = "continue"
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		if phase != OnAction && len(hook.Actions) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s hook %q: actions filter ignored", phase, hook.Name))
			hook.Actions = nil
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.OnAction) > 0 || len(l.config.Hooks.PostExport) > 0
}

// GetHooks returns hooks for a specific phase
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}

	switch phase {
	case OnAction:
		return l.config.Hooks.OnAction
	case PostExport:
		return l.config.Hooks.PostExport
	default:
		return nil
	}
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// LoadDefault creates a loader and loads with default settings
func LoadDefault() (*Loader, error) {
	loader := NewLoader()
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// UnmarshalYAML accepts timeouts as durations ("5s") or plain seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Must mirror Hook except for Timeout.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
		Actions []string          `yaml:"actions,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError
	h.Actions = dto.Actions

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
		} else {
			// "timeout: 30" decodes as "30", which ParseDuration rejects.
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr == nil {
				h.Timeout = time.Duration(seconds * float64(time.Second))
			} else {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
		}
	}

	return nil
}
