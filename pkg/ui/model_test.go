package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
	"github.com/vanderheijden86/incidentline/pkg/watcher"
)

var fixedNow = time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

func i64(v int64) *int64 { return &v }

// fixtureIncident has one open status row holding a root alert and a
// collapsed branch.
func fixtureIncident() *model.Incident {
	base := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC).Unix()
	return &model.Incident{
		ID:    "INC-7",
		Title: "checkout latency",
		Tree: []*model.AggregationNode{{
			ID:        "firing",
			Title:     "firing",
			LevelName: model.LevelStatus,
			BeginTime: base,
			Status:    model.StatusFiring,
			IsOpen:    true,
			Children: []*model.AggregationNode{
				{
					ID:        "a1",
					Title:     "db pool exhausted",
					LevelName: "alert",
					BeginTime: base,
					Status:    model.StatusFiring,
					IsRoot:    true,
					EntityID:  "a1",
				},
				{
					ID:        "a2",
					Title:     "api errors",
					LevelName: "alert",
					BeginTime: base + 1800,
					EndTime:   i64(base + 3*3600),
					Status:    model.StatusRecovered,
					EntityID:  "a2",
					Children: []*model.AggregationNode{{
						ID:        "a3",
						Title:     "pod restarts",
						LevelName: "alert",
						BeginTime: base + 3600,
						EndTime:   i64(base + 2*3600),
						Status:    model.StatusRecovered,
						EntityID:  "a3",
					}},
				},
			},
		}},
		Records: []model.OperationRecord{
			{ID: "r1", CreateTime: base + 60, OperationType: model.OpAlert, OperationClass: model.ClassSystem, RelatedEntityID: "a1"},
			{ID: "r2", CreateTime: base + 2*3600, OperationType: model.OpAcknowledge, OperationClass: model.ClassHuman, RelatedEntityID: "a1"},
			{ID: "r3", CreateTime: base + 3*3600, OperationType: model.OpRecover, OperationClass: model.ClassSystem, RelatedEntityID: "a2"},
		},
	}
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	opts.Engine = timeline.DefaultOptions()
	opts.Engine.Location = time.UTC
	opts.Engine.Now = func() time.Time { return fixedNow }
	m := NewModel(fixtureIncident(), opts)
	t.Cleanup(m.Close)
	return send(m, tea.WindowSizeMsg{Width: 120, Height: 30})
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_MeasuresTerminal(t *testing.T) {
	m := newTestModel(t, Options{})
	vp := m.engine.Viewport()
	if vp.ViewportWidth != m.layout.viewPx() {
		t.Fatalf("viewport width = %v, want %v", vp.ViewportWidth, m.layout.viewPx())
	}
	if m.engine.Observers() != 1 {
		t.Errorf("observers = %d, want 1", m.engine.Observers())
	}
}

func TestWindowResize_RemeasuresEngine(t *testing.T) {
	m := newTestModel(t, Options{})
	before := m.engine.Viewport().ViewportWidth
	m = send(m, tea.WindowSizeMsg{Width: 200, Height: 40})
	after := m.engine.Viewport().ViewportWidth
	if after <= before {
		t.Fatalf("viewport width %v did not grow from %v", after, before)
	}
}

func TestClose_ReleasesRegistrations(t *testing.T) {
	m := NewModel(fixtureIncident(), Options{})
	hub := m.sess.resize
	m.Close()
	if hub.len() != 0 {
		t.Errorf("resize hub still has %d observers", hub.len())
	}
}

func TestKeys_ZoomAndPan(t *testing.T) {
	m := newTestModel(t, Options{})

	m = send(m, runes("+"))
	if got := m.engine.Viewport().ZoomLevel; got != 1 {
		t.Fatalf("zoom = %v, want 1", got)
	}
	m = send(m, runes("l"))
	if got := m.engine.Viewport().PanOffset; got >= 0 {
		t.Fatalf("pan offset = %v, want negative after panning later", got)
	}
	m = send(m, runes("h"))
	if got := m.engine.Viewport().PanOffset; got != 0 {
		t.Fatalf("pan offset = %v, want 0 after panning back", got)
	}
	m = send(m, runes("-"))
	if got := m.engine.Viewport().ZoomLevel; got != 0 {
		t.Fatalf("zoom = %v, want 0", got)
	}

	m = send(m, runes("+"))
	m = send(m, runes("+"))
	m = send(m, runes("0"))
	if vp := m.engine.Viewport(); vp.ZoomLevel != 0 || vp.PanOffset != 0 {
		t.Fatalf("reset left zoom %v pan %v", vp.ZoomLevel, vp.PanOffset)
	}
}

func TestKeys_PanAtZoomZero(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, runes("l"))
	if m.engine.Viewport().PanOffset != 0 {
		t.Fatal("pan moved at zoom 0")
	}
	if m.statusMsg != "zoom in to pan" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestKeys_CursorAndToggle(t *testing.T) {
	m := newTestModel(t, Options{})
	shown := func(m Model) int { return len(shownIndices(m.engine.Scene().Rows)) }

	// firing, a1, a2 (a3 hidden under collapsed a2)
	if got := shown(m); got != 3 {
		t.Fatalf("shown rows = %d, want 3", got)
	}
	for i := 0; i < 5; i++ {
		m = send(m, runes("j"))
	}
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want clamp at 2", m.cursor)
	}
	m = send(m, runes("o"))
	if got := shown(m); got != 4 {
		t.Fatalf("after expanding a2 shown rows = %d, want 4", got)
	}

	m = send(m, runes("k"))
	m = send(m, runes("k"))
	m = send(m, runes("o"))
	if got := shown(m); got != 1 {
		t.Fatalf("after collapsing the status row shown rows = %d, want 1", got)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestKeys_SelectOpensActionMenu(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, runes("j"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.menu == nil {
		t.Fatal("action menu not opened")
	}
	if m.lastSel == nil || m.lastSel.Node == nil || m.lastSel.Node.ID != "a1" {
		t.Fatalf("last selection = %+v", m.lastSel)
	}
	if m.lastSel.EventID == "" {
		t.Error("selection has no event id")
	}
	if len(m.sess.pending) != 0 {
		t.Error("selections not drained")
	}
	if !strings.Contains(m.View(), "db pool exhausted") {
		t.Error("menu title missing from view")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.menu != nil {
		t.Fatal("esc did not close the menu")
	}
}

func TestKeys_SelectStatusRowHasNoActions(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.menu != nil {
		t.Fatal("status row opened a menu")
	}
	if !strings.HasPrefix(m.statusMsg, "no actions for") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestActionChosen_CallsHandler(t *testing.T) {
	var got []ActionRequest
	m := newTestModel(t, Options{OnAction: func(r ActionRequest) { got = append(got, r) }})
	req := ActionRequest{EventID: "ev", Action: timeline.ActionShield, NodeID: "a1", EntityID: "a1"}
	m = send(m, ActionChosenMsg{Request: req})

	if len(got) != 1 || got[0].EventID != "ev" {
		t.Fatalf("handler got %+v", got)
	}
	if m.statusMsg != "Shield requested" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestKeys_MarkerCycling(t *testing.T) {
	m := newTestModel(t, Options{})
	n := len(sceneMarkers(m.engine.Scene()))
	if n == 0 {
		t.Fatal("fixture produced no markers")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.markerCursor != 0 {
		t.Fatalf("marker cursor = %d, want 0", m.markerCursor)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.markerCursor != n-1 {
		t.Fatalf("marker cursor = %d, want wrap to %d", m.markerCursor, n-1)
	}

	sel, ok := m.currentSelection()
	if !ok || sel.Kind != timeline.SelectMarker || len(sel.Records) == 0 {
		t.Fatalf("current selection = %+v", sel)
	}
}

func TestKeys_OpenMarkerForwardsSelection(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, runes("m"))
	if m.lastSel == nil || m.lastSel.Kind != timeline.SelectMarker {
		t.Fatalf("last selection = %+v", m.lastSel)
	}
}

func TestKeys_DetailPane(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, runes("j"))
	m = send(m, runes("d"))
	if !m.showDetail {
		t.Fatal("detail pane not shown")
	}
	if !strings.Contains(m.View(), "db pool exhausted") {
		t.Error("detail pane does not mention the alert")
	}
}

func TestKeys_Export(t *testing.T) {
	dir := t.TempDir()
	var exported string
	m := newTestModel(t, Options{ExportDir: dir, OnExport: func(p string) { exported = p }})
	m = send(m, runes("e"))
	if m.statusIsError {
		t.Fatalf("export failed: %s", m.statusMsg)
	}
	path := filepath.Join(dir, "INC-7-timeline.svg")
	if exported != path {
		t.Errorf("export callback got %q, want %q", exported, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("export is not an svg document")
	}
}

func TestKeys_CopyMarkerRecordIDs(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, runes("y"))
	if m.statusIsError {
		t.Fatalf("copy failed: %s", m.statusMsg)
	}
	if !strings.HasPrefix(m.statusMsg, "copied r") || !strings.HasSuffix(m.statusMsg, "(clipboard disabled)") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestKeys_HelpChangesLayout(t *testing.T) {
	m := newTestModel(t, Options{})
	before := m.layout.rowsHeight()
	m = send(m, runes("?"))
	if !m.help.ShowAll {
		t.Fatal("full help not toggled")
	}
	if m.layout.rowsHeight() >= before {
		t.Errorf("rows height %d did not shrink from %d", m.layout.rowsHeight(), before)
	}
}

func TestKeys_Quit(t *testing.T) {
	m := newTestModel(t, Options{})
	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command does not quit")
	}
	if next.(Model).View() != "" {
		t.Error("view not blank after quit")
	}
}

func TestIncidentLoaded_ReportsDiff(t *testing.T) {
	m := newTestModel(t, Options{})
	inc := fixtureIncident()
	inc.Records = append(inc.Records, model.OperationRecord{
		ID: "r4", CreateTime: inc.Records[2].CreateTime, OperationType: model.OpComment,
		OperationClass: model.ClassHuman, RelatedEntityID: "a1",
	})
	m = send(m, IncidentLoadedMsg{Incident: inc})

	if m.statusIsError {
		t.Fatalf("unexpected error status %q", m.statusMsg)
	}
	if m.statusMsg != "reloaded: 1 new records" {
		t.Errorf("status = %q", m.statusMsg)
	}
	if m.engine.Incident() != inc {
		t.Error("engine still holds the old incident")
	}
}

func TestIncidentLoaded_Error(t *testing.T) {
	m := newTestModel(t, Options{})
	old := m.engine.Incident()
	m = send(m, IncidentLoadedMsg{Err: os.ErrNotExist})
	if !m.statusIsError {
		t.Fatal("error not reported")
	}
	if m.engine.Incident() != old {
		t.Error("incident replaced on failed load")
	}
}

func TestFileEvents(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, FileChangedMsg{Event: watcher.Event{Kind: watcher.EventRemoved, Path: "x.json"}})
	if !m.statusIsError || !strings.Contains(m.statusMsg, "removed") {
		t.Errorf("removed: status = %q", m.statusMsg)
	}
	m = send(m, FileChangedMsg{Event: watcher.Event{Kind: watcher.EventError, Err: os.ErrPermission}})
	if !strings.HasPrefix(m.statusMsg, "watch error") {
		t.Errorf("error: status = %q", m.statusMsg)
	}
}

func TestMouse_WheelZoom(t *testing.T) {
	m := newTestModel(t, Options{})
	x := m.layout.viewStart() + 10
	m = send(m, tea.MouseMsg{X: x, Y: m.layout.rowsY(), Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	if got := m.engine.Viewport().ZoomLevel; got != 1 {
		t.Fatalf("zoom = %v, want 1", got)
	}
	m = send(m, tea.MouseMsg{X: x, Y: m.layout.rowsY(), Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if got := m.engine.Viewport().ZoomLevel; got != 0 {
		t.Fatalf("zoom = %v, want 0", got)
	}
}

func TestMouse_DragPansView(t *testing.T) {
	m := newTestModel(t, Options{})
	m.engine.SetZoom(5)
	m.engine.SetPanRatio(0)

	x := m.layout.viewStart() + 40
	y := m.layout.rowsY()
	m = send(m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if m.engine.ActiveDrags() != 1 {
		t.Fatalf("active drags = %d, want 1", m.engine.ActiveDrags())
	}
	m = send(m, tea.MouseMsg{X: x - 10, Y: y, Action: tea.MouseActionMotion})
	want := -10 * m.layout.cellPx
	if got := m.engine.Viewport().PanOffset; got != want {
		t.Fatalf("pan offset = %v, want %v", got, want)
	}
	m = send(m, tea.MouseMsg{X: x - 10, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	if m.engine.ActiveDrags() != 0 || m.dragging {
		t.Fatal("drag not ended on release")
	}
}

func TestMouse_DragAtZoomZeroIsIgnored(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, tea.MouseMsg{X: m.layout.viewStart() + 5, Y: m.layout.rowsY(), Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if m.dragging || m.engine.ActiveDrags() != 0 {
		t.Fatal("drag started while content fits the viewport")
	}
}

func TestMouse_LabelClickToggles(t *testing.T) {
	m := newTestModel(t, Options{})
	// third shown row is the collapsed branch a2
	m = send(m, tea.MouseMsg{X: 1, Y: m.layout.rowsY() + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}
	if got := len(shownIndices(m.engine.Scene().Rows)); got != 4 {
		t.Fatalf("shown rows = %d, want 4 after expanding", got)
	}
}

func TestMouse_MinimapClickMovesSelection(t *testing.T) {
	m := newTestModel(t, Options{})
	m.engine.SetZoom(10)
	m.engine.SetPanRatio(0)

	sel := m.engine.Scene().Selection
	col := m.layout.viewStart() + m.layout.pxToCol(sel.X+sel.Width) + 3
	m = send(m, tea.MouseMsg{X: col, Y: m.layout.minimapY(), Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if m.engine.PanRatio() <= 0 {
		t.Fatalf("pan ratio = %v, want > 0 after clicking right of the selection", m.engine.PanRatio())
	}
	m = send(m, tea.MouseMsg{X: col, Y: m.layout.minimapY(), Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	if m.engine.ActiveDrags() != 0 {
		t.Error("minimap drag not ended")
	}
}

func TestView_Sections(t *testing.T) {
	m := newTestModel(t, Options{})
	out := m.View()
	for _, want := range []string{"checkout latency", "FIRING", "db pool exhausted", "overview", "zoom 0/10", "pan"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines > 30 {
		t.Errorf("view has %d lines for a 30 line terminal", lines)
	}
}

func TestView_TooNarrow(t *testing.T) {
	m := newTestModel(t, Options{})
	m = send(m, tea.WindowSizeMsg{Width: 1, Height: 20})
	if !m.engine.Scene().Empty() {
		t.Fatal("scene not empty without view columns")
	}
	if !strings.Contains(m.View(), "too narrow") {
		t.Error("narrow terminal message missing")
	}
}

func TestRedrawTick_Rearms(t *testing.T) {
	m := newTestModel(t, Options{})
	_, cmd := m.Update(redrawTickMsg{})
	if cmd == nil {
		t.Fatal("redraw tick not re-armed")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("a/b c:d"); got != "a_b_c_d" {
		t.Errorf("sanitizeFilename = %q", got)
	}
}
