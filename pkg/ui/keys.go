package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap is the viewer key layout. It implements help.KeyMap.
type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	ZoomReset  key.Binding
	Toggle     key.Binding
	Select     key.Binding
	NextMarker key.Binding
	PrevMarker key.Binding
	OpenMarker key.Binding
	Detail     key.Binding
	Copy       key.Binding
	Export     key.Binding
	Reload     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "earlier"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "later"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		ZoomReset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "fit"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "o"),
			key.WithHelp("space", "expand/collapse"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "actions"),
		),
		NextMarker: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next marker"),
		),
		PrevMarker: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev marker"),
		),
		OpenMarker: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "marker actions"),
		),
		Detail: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "details"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy id"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export svg"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Toggle, k.Select, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Select},
		{k.PanLeft, k.PanRight, k.ZoomIn, k.ZoomOut, k.ZoomReset},
		{k.NextMarker, k.PrevMarker, k.OpenMarker},
		{k.Detail, k.Copy, k.Export, k.Reload, k.Help, k.Quit},
	}
}
