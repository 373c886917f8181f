package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// ActionRequest is what the viewer hands to the action handler when the user
// picks an action from the menu.
type ActionRequest struct {
	EventID  string
	Action   timeline.Action
	EntityID string
	NodeID   string
	Records  []string
}

// ActionChosenMsg is sent when the action menu completes.
type ActionChosenMsg struct {
	Request ActionRequest
}

// actionMenu is the huh form listing the actions of one selection.
type actionMenu struct {
	form   *huh.Form
	sel    timeline.Selection
	choice timeline.Action
}

// newActionMenu returns nil when the selection has no actions.
func newActionMenu(sel timeline.Selection, width int) *actionMenu {
	if len(sel.Actions) == 0 {
		return nil
	}
	am := &actionMenu{sel: sel, choice: sel.Actions[0]}
	opts := make([]huh.Option[timeline.Action], len(sel.Actions))
	for i, a := range sel.Actions {
		opts[i] = huh.NewOption(a.Label(), a)
	}
	am.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[timeline.Action]().
				Title(menuTitle(sel)).
				Options(opts...).
				Value(&am.choice),
		),
	).WithShowHelp(false).WithWidth(max(width, 30))
	return am
}

func menuTitle(sel timeline.Selection) string {
	switch {
	case sel.Node != nil && sel.Node.Title != "":
		return sel.Node.Title
	case sel.Node != nil:
		return sel.Node.ID
	default:
		return fmt.Sprintf("%d records", len(sel.Records))
	}
}

func (am *actionMenu) request() ActionRequest {
	req := ActionRequest{
		EventID:  am.sel.EventID,
		Action:   am.choice,
		EntityID: am.sel.EntityID,
	}
	if am.sel.Node != nil {
		req.NodeID = am.sel.Node.ID
	}
	for _, r := range am.sel.Records {
		req.Records = append(req.Records, r.ID)
	}
	return req
}

// update forwards msg to the form. done is true once the form completed or
// was aborted; chosen carries the request on completion.
func (am *actionMenu) update(msg tea.Msg) (cmd tea.Cmd, done bool, chosen *ActionRequest) {
	form, cmd := am.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		am.form = f
	}
	switch am.form.State {
	case huh.StateCompleted:
		req := am.request()
		return cmd, true, &req
	case huh.StateAborted:
		return cmd, true, nil
	}
	return cmd, false, nil
}

func (am *actionMenu) view() string {
	return am.form.View()
}
