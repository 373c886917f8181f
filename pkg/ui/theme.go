package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme holds the colors and pre-built styles of the viewer.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	// Bar roles, in the same order of precedence as the minimap
	Default      lipgloss.AdaptiveColor
	Unresolved   lipgloss.AdaptiveColor
	Recovered    lipgloss.AdaptiveColor
	FeedbackRoot lipgloss.AdaptiveColor
	RootCause    lipgloss.AdaptiveColor

	Highlight lipgloss.AdaptiveColor
	Selection lipgloss.AdaptiveColor

	Base      lipgloss.Style
	Header    lipgloss.Style
	Selected  lipgloss.Style
	MutedText lipgloss.Style
	TickLabel lipgloss.Style
	Badge     lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Panel     lipgloss.Style
}

// DefaultTheme returns the adaptive Dracula-like theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Subtext: lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Muted:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Border:  lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},

		Default:      lipgloss.AdaptiveColor{Light: "#6B778C", Dark: "#6272A4"},
		Unresolved:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Recovered:    lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		FeedbackRoot: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		RootCause:    lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#FF79C6"},

		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Selection: lipgloss.AdaptiveColor{Light: "#CCE5FF", Dark: "#3A3F5C"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Selected = r.NewStyle().Background(t.Highlight).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.TickLabel = r.NewStyle().Foreground(ThemeFg("#BFBFBF"))
	t.Badge = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(t.Primary).
		Bold(true)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	t.Error = r.NewStyle().Foreground(t.Unresolved).Bold(true)
	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	return t
}

// RoleColor maps a bar role to its color.
func (t Theme) RoleColor(role timeline.BarRole) lipgloss.AdaptiveColor {
	switch role {
	case timeline.RoleRootCause:
		return t.RootCause
	case timeline.RoleFeedbackRoot:
		return t.FeedbackRoot
	case timeline.RoleRecovered:
		return t.Recovered
	case timeline.RoleUnresolved:
		return t.Unresolved
	default:
		return t.Default
	}
}

// StatusColor returns the color of a node status.
func (t Theme) StatusColor(s model.Status) lipgloss.AdaptiveColor {
	switch {
	case s.IsRecovered():
		return t.Recovered
	case s.IsUnresolved():
		return t.Unresolved
	default:
		return t.Subtext
	}
}

// themeRenderer returns a renderer honoring the configured theme name.
func themeRenderer(name string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(os.Stdout)
	switch name {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return r
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
