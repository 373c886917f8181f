package ui

import (
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

func TestDefaultTheme(t *testing.T) {
	theme := TestTheme()
	if theme.Renderer == nil {
		t.Fatal("theme has no renderer")
	}
	for name, c := range map[string]lipgloss.AdaptiveColor{
		"Primary":      theme.Primary,
		"Unresolved":   theme.Unresolved,
		"Recovered":    theme.Recovered,
		"FeedbackRoot": theme.FeedbackRoot,
		"RootCause":    theme.RootCause,
	} {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("%s color is empty: %+v", name, c)
		}
	}
}

func TestRoleColor(t *testing.T) {
	theme := TestTheme()
	tests := []struct {
		role timeline.BarRole
		want lipgloss.AdaptiveColor
	}{
		{timeline.RoleDefault, theme.Default},
		{timeline.RoleUnresolved, theme.Unresolved},
		{timeline.RoleRecovered, theme.Recovered},
		{timeline.RoleFeedbackRoot, theme.FeedbackRoot},
		{timeline.RoleRootCause, theme.RootCause},
	}
	for _, tt := range tests {
		if got := theme.RoleColor(tt.role); got != tt.want {
			t.Errorf("RoleColor(%v) = %+v, want %+v", tt.role, got, tt.want)
		}
	}
}

func TestStatusColor(t *testing.T) {
	theme := TestTheme()
	tests := []struct {
		status model.Status
		want   lipgloss.AdaptiveColor
	}{
		{model.StatusFiring, theme.Unresolved},
		{model.StatusProcessing, theme.Unresolved},
		{model.StatusRecovered, theme.Recovered},
		{model.StatusClosed, theme.Recovered},
		{model.Status("unknown"), theme.Subtext},
	}
	for _, tt := range tests {
		if got := theme.StatusColor(tt.status); got != tt.want {
			t.Errorf("StatusColor(%q) = %+v, want %+v", tt.status, got, tt.want)
		}
	}
}

func TestThemeRenderer_ForcedBackground(t *testing.T) {
	if !themeRenderer("dark").HasDarkBackground() {
		t.Error("dark theme should report a dark background")
	}
	if themeRenderer("light").HasDarkBackground() {
		t.Error("light theme should report a light background")
	}
}

func TestThemeFg_TrueColor(t *testing.T) {
	saved := TermProfile
	defer func() { TermProfile = saved }()

	TermProfile = colorprofile.TrueColor

	if _, ok := ThemeFg("#FF6B6B").(lipgloss.ANSIColor); ok {
		t.Error("ThemeFg should return hex color in TrueColor mode, got ANSIColor")
	}
}

func TestThemeFg_ANSI(t *testing.T) {
	saved := TermProfile
	defer func() { TermProfile = saved }()

	TermProfile = colorprofile.ANSI

	got, ok := ThemeFg("#FF6B6B").(lipgloss.ANSIColor)
	if !ok {
		t.Fatalf("ThemeFg should return ANSIColor in ANSI mode, got %T", ThemeFg("#FF6B6B"))
	}
	if got != 7 {
		t.Errorf("ThemeFg should return ANSI white (7) in ANSI mode, got %d", got)
	}
}

func TestThemeFg_NoTTY(t *testing.T) {
	saved := TermProfile
	defer func() { TermProfile = saved }()

	TermProfile = colorprofile.NoTTY

	if _, ok := ThemeFg("#FF6B6B").(lipgloss.ANSIColor); !ok {
		t.Error("ThemeFg should return ANSIColor in NoTTY mode")
	}
}
