// Package ui is the terminal viewer: the timeline with its tree rows, record
// markers and minimap, driven by keyboard and mouse.
package ui

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/incidentline/internal/datasource"
	"github.com/vanderheijden86/incidentline/pkg/config"
	"github.com/vanderheijden86/incidentline/pkg/debug"
	"github.com/vanderheijden86/incidentline/pkg/export"
	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
	"github.com/vanderheijden86/incidentline/pkg/watcher"
)

// Default dimensions until the first WindowSizeMsg arrives.
const (
	defaultWidth  = 100
	defaultHeight = 30
)

// Options configures the viewer.
type Options struct {
	Engine    timeline.Options
	UI        config.UIConfig
	Path      string           // incident file, used for reloads
	Watcher   *watcher.Watcher // optional, owned by the caller
	ExportDir string           // where "e" writes snapshots, default "."
	OnAction  func(ActionRequest)
	OnExport  func(path string)
}

// Model is the bubbletea model of the viewer.
type Model struct {
	engine    *timeline.Engine
	sess      *session
	unobserve func()
	unselect  func()

	opts   Options
	theme  Theme
	styles []lipgloss.Style
	keys   keyMap
	help   help.Model
	detail *detailRenderer
	layout screenLayout

	cursor       int // position among shown rows
	offset       int // first shown row on screen
	markerCursor int // index into sceneMarkers, -1 for none
	showDetail   bool
	menu         *actionMenu
	lastSel      *timeline.Selection
	dragging     bool

	statusMsg     string
	statusIsError bool
	loadedAt      time.Time
	quitting      bool
}

// NewModel builds a viewer for inc.
func NewModel(inc *model.Incident, opts Options) Model {
	if opts.UI.CellWidthPx <= 0 {
		opts.UI.CellWidthPx = config.DefaultConfig().UI.CellWidthPx
	}
	if opts.UI.LabelWidth <= 0 {
		opts.UI.LabelWidth = config.DefaultConfig().UI.LabelWidth
	}
	if opts.Engine.Now == nil {
		opts.Engine.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if inc == nil {
		inc = &model.Incident{}
	}

	sess := newSession()
	engine := timeline.NewEngine(opts.Engine, timeline.MeasureFunc(sess.measure))
	engine.SetIncident(inc)

	theme := DefaultTheme(themeRenderer(opts.UI.Theme))
	m := Model{
		engine:       engine,
		sess:         sess,
		opts:         opts,
		theme:        theme,
		styles:       stripStyles(theme),
		keys:         defaultKeyMap(),
		help:         help.New(),
		detail:       &detailRenderer{},
		markerCursor: -1,
		loadedAt:     opts.Engine.Now(),
	}
	m.unobserve = engine.Observe(sess.resize)
	m.unselect = engine.OnSelect(func(sel timeline.Selection) {
		sess.pending = append(sess.pending, sel)
	})
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Engine exposes the layout engine.
func (m Model) Engine() *timeline.Engine { return m.engine }

// Close releases engine registrations. Call it once the program exits.
func (m Model) Close() {
	m.unselect()
	m.unobserve()
	m.engine.Close()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{redrawTickCmd()}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// resize recomputes the screen layout and notifies the engine, which
// re-measures through the session.
func (m *Model) resize(width, height int) {
	m.help.Width = width
	m.layout = screenLayout{
		width:     width,
		height:    height,
		labelCols: min(m.opts.UI.LabelWidth, max(width/3, 1)),
		cellPx:    m.opts.UI.CellWidthPx,
		helpLines: lipgloss.Height(m.help.View(m.keys)),
	}
	m.sess.size = timeline.Size{
		Width:  m.layout.viewPx(),
		Height: float64(m.layout.rowsHeight()),
	}
	m.sess.resize.fire()
	m.clampCursor()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case redrawTickMsg:
		m.engine.Redraw()
		return m, redrawTickCmd()

	case FileChangedMsg:
		return m.handleFileEvent(msg.Event)

	case IncidentLoadedMsg:
		return m.handleLoaded(msg), nil

	case ActionChosenMsg:
		if m.opts.OnAction != nil {
			m.opts.OnAction(msg.Request)
		}
		debug.Log("ui: action %s on %s (event %s)", msg.Request.Action, msg.Request.EntityID, msg.Request.EventID)
		m.setStatus(fmt.Sprintf("%s requested", msg.Request.Action.Label()))
		return m, nil
	}

	if m.menu != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.menu = nil
			return m, nil
		}
		cmd, done, chosen := m.menu.update(msg)
		if done {
			m.menu = nil
			if chosen != nil {
				req := *chosen
				return m, tea.Batch(cmd, func() tea.Msg { return ActionChosenMsg{Request: req} })
			}
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	}
	return m, nil
}

func (m Model) handleFileEvent(ev watcher.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{WatchFileCmd(m.opts.Watcher)}
	switch ev.Kind {
	case watcher.EventChanged:
		debug.Log("ui: file change detected path=%s", ev.Path)
		if m.opts.Path != "" {
			cmds = append(cmds, LoadIncidentCmd(m.opts.Path))
		}
	case watcher.EventRemoved:
		m.setError("incident file was removed")
	case watcher.EventError:
		m.setError(fmt.Sprintf("watch error: %v", ev.Err))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleLoaded(msg IncidentLoadedMsg) Model {
	if msg.Err != nil {
		m.setError(fmt.Sprintf("reload failed: %v", msg.Err))
		return m
	}
	diff := datasource.DiffIncidents(m.engine.Incident(), msg.Incident)
	m.engine.SetIncident(msg.Incident)
	m.loadedAt = m.opts.Engine.Now()
	m.markerCursor = -1
	m.lastSel = nil
	m.clampCursor()
	m.setStatus("reloaded: " + diff.Summary())
	return m
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.layout.width, m.layout.height)

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.PanLeft):
		m.pan(1)
	case key.Matches(msg, m.keys.PanRight):
		m.pan(-1)

	case key.Matches(msg, m.keys.ZoomIn):
		m.engine.SetZoom(m.engine.Viewport().ZoomLevel + 1)
	case key.Matches(msg, m.keys.ZoomOut):
		m.engine.SetZoom(m.engine.Viewport().ZoomLevel - 1)
	case key.Matches(msg, m.keys.ZoomReset):
		m.engine.SetZoom(0)

	case key.Matches(msg, m.keys.Toggle):
		if r, ok := m.cursorRow(); ok {
			m.engine.Toggle(r.Node.ID)
			m.clampCursor()
		}

	case key.Matches(msg, m.keys.Select):
		if i, ok := m.cursorIndex(); ok {
			if _, err := m.engine.SelectRow(i); err != nil {
				m.setError(err.Error())
				return m, nil
			}
			return m.openMenu()
		}

	case key.Matches(msg, m.keys.NextMarker):
		m.stepMarker(1)
	case key.Matches(msg, m.keys.PrevMarker):
		m.stepMarker(-1)
	case key.Matches(msg, m.keys.OpenMarker):
		markers := sceneMarkers(m.engine.Scene())
		if m.markerCursor >= 0 && m.markerCursor < len(markers) {
			ref := markers[m.markerCursor]
			if _, err := m.engine.SelectMarker(ref.Tick, ref.Index); err != nil {
				m.setError(err.Error())
				return m, nil
			}
			return m.openMenu()
		}

	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail

	case key.Matches(msg, m.keys.Copy):
		m.copyID()

	case key.Matches(msg, m.keys.Export):
		m.exportSnapshot()

	case key.Matches(msg, m.keys.Reload):
		if m.opts.Path != "" {
			return m, LoadIncidentCmd(m.opts.Path)
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	l := m.layout
	switch {
	case msg.Button == tea.MouseButtonWheelUp && l.inView(msg.X):
		m.engine.WheelZoom(1, l.colToPx(msg.X))

	case msg.Button == tea.MouseButtonWheelDown && l.inView(msg.X):
		m.engine.WheelZoom(-1, l.colToPx(msg.X))

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.press(msg.X, msg.Y)

	case msg.Action == tea.MouseActionMotion && m.dragging:
		m.engine.PointerMove(l.colToPx(msg.X), float64(msg.Y))

	case msg.Action == tea.MouseActionRelease:
		m.engine.PointerUp()
		m.dragging = false
	}
	return m
}

// press routes a left click by screen region.
func (m *Model) press(x, y int) {
	l := m.layout
	px := l.colToPx(x)
	switch {
	case y == l.markerY() && l.inView(x):
		if i, ok := m.markerNear(px); ok {
			m.markerCursor = i
		}

	case y >= l.rowsY() && y < l.minimapY():
		pos := m.offset + y - l.rowsY()
		if pos < len(shownIndices(m.engine.Scene().Rows)) {
			m.cursor = pos
		}
		if !l.inView(x) {
			if r, ok := m.cursorRow(); ok && r.Node.HasChildren() {
				m.engine.Toggle(r.Node.ID)
				m.clampCursor()
			}
			return
		}
		m.dragging = m.engine.BeginPan(px) != nil

	case y >= l.minimapY() && y < l.minimapY()+minimapLines && l.inView(x):
		sel := m.engine.SelectionRect()
		if px < sel.X || px > sel.X+sel.Width {
			m.engine.SetSelectionX(px - sel.Width/2)
		}
		m.dragging = m.engine.BeginMinimapDrag(px) != nil
	}
}

// markerNear returns the marker closest to view pixel px, within one cell.
func (m Model) markerNear(px float64) (int, bool) {
	s := m.engine.Scene()
	best, bestDist := -1, math.Inf(1)
	for i, ref := range sceneMarkers(s) {
		d := math.Abs(ref.X + s.Viewport.PanOffset - px)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > m.layout.cellPx {
		return 0, false
	}
	return best, true
}

// openMenu drains forwarded selections and opens the action menu for the
// latest one.
func (m Model) openMenu() (tea.Model, tea.Cmd) {
	sels := m.sess.takeSelections()
	if len(sels) == 0 {
		return m, nil
	}
	sel := sels[len(sels)-1]
	m.lastSel = &sel
	m.menu = newActionMenu(sel, m.layout.width-m.layout.labelCols-4)
	if m.menu == nil {
		m.setStatus("no actions for " + menuTitle(sel))
		return m, nil
	}
	return m, m.menu.form.Init()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

// clampCursor keeps the cursor on a shown row and scrolls it into view.
func (m *Model) clampCursor() {
	n := len(shownIndices(m.engine.Scene().Rows))
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	h := m.layout.rowsHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset > max(n-h, 0) {
		m.offset = max(n-h, 0)
	}
}

// cursorIndex returns the Scene.Rows index under the cursor.
func (m Model) cursorIndex() (int, bool) {
	shown := shownIndices(m.engine.Scene().Rows)
	if m.cursor < 0 || m.cursor >= len(shown) {
		return 0, false
	}
	return shown[m.cursor], true
}

func (m Model) cursorRow() (timeline.Row, bool) {
	i, ok := m.cursorIndex()
	if !ok {
		return timeline.Row{}, false
	}
	return m.engine.Scene().Rows[i], true
}

// pan moves the content a quarter viewport; dir 1 shows earlier times.
func (m *Model) pan(dir float64) {
	if !m.engine.Pan(dir * m.layout.viewPx() / 4) {
		if m.engine.Viewport().ZoomLevel == 0 {
			m.setStatus("zoom in to pan")
		}
	}
}

// stepMarker moves the marker cursor and pans the marker into view.
func (m *Model) stepMarker(delta int) {
	s := m.engine.Scene()
	markers := sceneMarkers(s)
	if len(markers) == 0 {
		m.markerCursor = -1
		return
	}
	switch {
	case m.markerCursor < 0 && delta > 0:
		m.markerCursor = 0
	case m.markerCursor < 0:
		m.markerCursor = len(markers) - 1
	default:
		m.markerCursor = (m.markerCursor + delta + len(markers)) % len(markers)
	}
	x := markers[m.markerCursor].X + s.Viewport.PanOffset
	if x < 0 || x > m.layout.viewPx() {
		m.engine.Pan(m.layout.viewPx()/2 - x)
	}
}

// currentSelection is what detail and copy act on: the marker under the
// marker cursor, else the row under the cursor.
func (m Model) currentSelection() (timeline.Selection, bool) {
	s := m.engine.Scene()
	markers := sceneMarkers(s)
	if m.markerCursor >= 0 && m.markerCursor < len(markers) {
		ref := markers[m.markerCursor]
		c := s.Buckets[ref.Tick][ref.Index]
		return timeline.Selection{Kind: timeline.SelectMarker, Records: c.Members}, true
	}
	if r, ok := m.cursorRow(); ok {
		return timeline.Selection{
			Kind:     timeline.SelectRow,
			Node:     r.Node,
			EntityID: r.Node.EntityID,
			Actions:  timeline.ActionsFor(r.Node),
		}, true
	}
	return timeline.Selection{}, false
}

func selectionIDs(sel timeline.Selection) string {
	if sel.Node != nil {
		return sel.Node.ID
	}
	ids := make([]string, len(sel.Records))
	for i, r := range sel.Records {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}

func (m *Model) copyID() {
	sel, ok := m.currentSelection()
	if !ok {
		return
	}
	text := selectionIDs(sel)
	if os.Getenv("IL_NO_CLIPBOARD") != "" {
		m.setStatus("copied " + truncate(text, 40) + " (clipboard disabled)")
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.setError(fmt.Sprintf("clipboard error: %v", err))
		return
	}
	m.setStatus("copied " + truncate(text, 40))
}

func (m *Model) exportSnapshot() {
	inc := m.engine.Incident()
	name := inc.ID
	if name == "" {
		name = "incident"
	}
	path := filepath.Join(m.opts.ExportDir, sanitizeFilename(name)+"-timeline.svg")
	err := export.SaveSnapshot(export.SnapshotOptions{
		Path:     path,
		Incident: inc,
		Scene:    m.engine.Scene(),
	})
	if err != nil {
		m.setError(fmt.Sprintf("export failed: %v", err))
		return
	}
	m.setStatus("exported " + path)
	if m.opts.OnExport != nil {
		m.opts.OnExport(path)
	}
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusIsError = true
}

func (m Model) View() string {
	defer metrics.TimerWithCallback(metrics.UIRender, func(d time.Duration) {
		debug.LogTiming("ui.view", d)
	})()

	if m.quitting {
		return ""
	}
	s := m.engine.Scene()
	l := m.layout
	inc := m.engine.Incident()

	lines := make([]string, 0, l.height)
	lines = append(lines, m.theme.Header.Render(truncate(headerText(inc, s), max(l.width-2, 1))))

	if s.Empty() {
		lines = append(lines, m.theme.Error.Render("terminal too narrow for the timeline"))
		return strings.Join(lines, "\n")
	}

	zoom := fmt.Sprintf("zoom %.0f/%.0f", s.Viewport.ZoomLevel, s.Viewport.ZoomMax)
	lines = append(lines, joinLabel(fitCells(zoom, l.labelCols), m.theme.MutedText, renderTicks(s, l).render(m.styles)))

	var cursorRef markerRef
	markers := sceneMarkers(s)
	hasCursor := m.markerCursor >= 0 && m.markerCursor < len(markers)
	if hasCursor {
		cursorRef = markers[m.markerCursor]
	}
	lines = append(lines, joinLabel(fitCells(fmt.Sprintf("%d markers", len(markers)), l.labelCols), m.theme.MutedText,
		renderMarkers(s, l, cursorRef, hasCursor).render(m.styles)))

	lines = append(lines, m.bodyLines(s)...)

	for i, st := range renderMinimap(s, l) {
		label := ""
		if i == 0 {
			label = "overview"
		}
		lines = append(lines, joinLabel(fitCells(label, l.labelCols), m.theme.MutedText, st.render(m.styles)))
	}

	lines = append(lines, m.statusLine())
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

// bodyLines renders exactly rowsHeight lines: the action menu, the detail
// pane or the tree rows.
func (m Model) bodyLines(s timeline.Scene) []string {
	l := m.layout
	h := l.rowsHeight()

	var overlay string
	switch {
	case m.menu != nil:
		overlay = m.menu.view()
	case m.showDetail:
		if sel, ok := m.currentSelection(); ok {
			md := detailMarkdown(sel, time.Unix(s.Now, 0), m.opts.Engine.Location)
			overlay = m.detail.render(md, l.width-4)
		}
	}
	if overlay != "" {
		out := strings.Split(overlay, "\n")
		for len(out) < h {
			out = append(out, "")
		}
		return out[:h]
	}

	shown := shownIndices(s.Rows)
	out := make([]string, 0, h)
	for i := 0; i < h; i++ {
		pos := m.offset + i
		if pos >= len(shown) {
			out = append(out, "")
			continue
		}
		r := s.Rows[shown[pos]]
		style := m.theme.Base
		if pos == m.cursor {
			style = m.theme.Selected
		}
		label := rowLabel(r, m.engine.IsOpen(r.Node), l.labelCols)
		out = append(out, joinLabel(label, style, renderBar(r, s, l).render(m.styles)))
	}
	return out
}

func (m Model) statusLine() string {
	parts := []string{
		fmt.Sprintf("pan %3.0f%%", m.engine.PanRatio()*100),
		"loaded " + FormatTimeRel(m.loadedAt, m.opts.Engine.Now()),
	}
	if m.opts.Watcher != nil && m.opts.Watcher.IsPolling() {
		parts = append(parts, "polling")
	}
	line := m.theme.Status.Render(strings.Join(parts, " · "))
	if m.statusMsg != "" {
		style := m.theme.Status
		if m.statusIsError {
			style = m.theme.Error
		}
		line += "  " + style.Render(truncate(m.statusMsg, max(m.layout.width/2, 10)))
	}
	return line
}
