package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/incidentline/internal/datasource"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/watcher"
)

// redrawInterval re-evaluates "now" so ongoing alert bars keep growing.
const redrawInterval = 30 * time.Second

// FileChangedMsg is sent when the incident file changes on disk.
type FileChangedMsg struct {
	Event watcher.Event
}

// IncidentLoadedMsg carries the result of a reload.
type IncidentLoadedMsg struct {
	Incident *model.Incident
	Err      error
}

// redrawTickMsg drives the periodic redraw.
type redrawTickMsg struct{}

// WatchFileCmd returns a command that waits for the next watcher event.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return FileChangedMsg{Event: ev}
	}
}

// LoadIncidentCmd reloads the incident at path.
func LoadIncidentCmd(path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		inc, err := datasource.Load(ctx, path)
		return IncidentLoadedMsg{Incident: inc, Err: err}
	}
}

func redrawTickCmd() tea.Cmd {
	return tea.Tick(redrawInterval, func(time.Time) tea.Msg {
		return redrawTickMsg{}
	})
}
