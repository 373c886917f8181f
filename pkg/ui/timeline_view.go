package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// iconGlyph is the single cell drawn for an icon marker.
func iconGlyph(icon timeline.Icon) rune {
	switch icon {
	case timeline.IconAlert:
		return '!'
	case timeline.IconRecover:
		return '✓'
	case timeline.IconAcknowledge:
		return 'A'
	case timeline.IconDispatch:
		return 'D'
	case timeline.IconShield:
		return 'S'
	case timeline.IconManual:
		return 'M'
	case timeline.IconFeedback:
		return 'F'
	case timeline.IconComment:
		return 'C'
	case timeline.IconHuman:
		return 'H'
	default:
		return '•'
	}
}

// badgeText is the count drawn for a badge marker, at most three cells.
func badgeText(n int) string {
	if n > 99 {
		return "99+"
	}
	return strconv.Itoa(n)
}

// markerRef addresses one marker in the scene.
type markerRef struct {
	Tick  int
	Index int
	X     float64 // content x
}

// sceneMarkers lists every marker in tick then time order.
func sceneMarkers(s timeline.Scene) []markerRef {
	var out []markerRef
	for _, tick := range s.Buckets.Indices() {
		for i, c := range s.Buckets[tick] {
			out = append(out, markerRef{Tick: tick, Index: i, X: c.X})
		}
	}
	return out
}

// shownIndices maps shown row positions to indices into Scene.Rows.
func shownIndices(rows []timeline.Row) []int {
	idx := make([]int, 0, len(rows))
	for i, r := range rows {
		if r.IsShow {
			idx = append(idx, i)
		}
	}
	return idx
}

// renderTicks draws tick labels centred on their boundaries, skipping labels
// that would overlap the previous one.
func renderTicks(s timeline.Scene, l screenLayout) strip {
	st := newStrip(l.viewCols())
	pan := s.Viewport.PanOffset
	for i, tb := range s.Axis.Ticks {
		x := float64(i)*s.TickWidth + s.TickWidth/2 + pan
		col := l.pxToCol(x)
		label := []rune(tb.Label)
		start := col - len(label)/2
		if start < 0 || start+len(label) > st.width() {
			continue
		}
		if !st.free(max(start-1, 0), min(start+len(label)+1, st.width())) {
			continue
		}
		st.text(start, tb.Label, stTick)
	}
	return st
}

// renderMarkers draws one glyph or badge per cluster. The marker under the
// marker cursor is drawn reversed.
func renderMarkers(s timeline.Scene, l screenLayout, cursor markerRef, hasCursor bool) strip {
	st := newStrip(l.viewCols())
	pan := s.Viewport.PanOffset
	for _, tick := range s.Buckets.Indices() {
		for i, c := range s.Buckets[tick] {
			col := l.pxToCol(c.X + pan)
			if col < 0 || col >= st.width() {
				continue
			}
			mk := c.Marker()
			key := stRole + int(clusterRole(c, s))
			if hasCursor && cursor.Tick == tick && cursor.Index == i {
				key = stCursor
			}
			if mk.Kind == timeline.MarkerBadge {
				if key != stCursor {
					key = stBadge
				}
				st.text(col, badgeText(mk.Count), key)
				continue
			}
			st.set(col, iconGlyph(mk.Icon), key)
		}
	}
	return st
}

// clusterRole colors a single-record marker by the alert it belongs to.
func clusterRole(c timeline.Cluster, s timeline.Scene) timeline.BarRole {
	if len(c.Members) != 1 {
		return timeline.RoleDefault
	}
	id := c.Members[0].RelatedEntityID
	if id == "" {
		return timeline.RoleDefault
	}
	for _, r := range s.Rows {
		if r.Node.EntityID == id {
			return timeline.RoleFor(r.Node)
		}
	}
	return timeline.RoleDefault
}

// renderBar draws a row's bar clipped to the view.
func renderBar(r timeline.Row, s timeline.Scene, l screenLayout) strip {
	st := newStrip(l.viewCols())
	if !r.HasBar {
		return st
	}
	pan := s.Viewport.PanOffset
	x0 := math.Max(r.Bar.X+pan, 0)
	x1 := math.Min(r.Bar.End()+pan, l.viewPx())
	if x1 <= x0 {
		return st
	}
	c0 := l.pxToCol(x0)
	c1 := max(int(math.Ceil(x1/l.cellPx)), c0+1)
	st.fill(c0, c1, '█', stRole+int(timeline.RoleFor(r.Node)))
	return st
}

// rowLabel renders the indented title with an expand glyph for branches.
func rowLabel(r timeline.Row, open bool, width int) string {
	glyph := "  "
	if r.Node.HasChildren() {
		if open {
			glyph = "▾ "
		} else {
			glyph = "▸ "
		}
	}
	title := r.Node.Title
	if title == "" {
		title = r.Node.ID
	}
	if r.Node.IsStatusRow() {
		title = strings.ToUpper(title)
	}
	switch {
	case r.IsRoot():
		title += " ◆"
	case r.IsFeedbackRoot():
		title += " ◇"
	}
	return fitCells(strings.Repeat(" ", r.Depth)+glyph+title, width)
}

// renderMinimap draws the minimap over minimapLines lines. Each cell shows
// the highest priority role of the bars crossing it; cells under the
// selection rectangle get the selection background.
func renderMinimap(s timeline.Scene, l screenLayout) []strip {
	mm := s.Minimap
	cols := min(int(math.Ceil(mm.Width/l.cellPx)), l.viewCols())
	lines := make([]strip, minimapLines)
	for i := range lines {
		lines[i] = newStrip(cols)
	}
	if cols == 0 {
		return lines
	}

	roles := make([][]timeline.BarRole, minimapLines)
	present := make([][]bool, minimapLines)
	for i := range roles {
		roles[i] = make([]timeline.BarRole, cols)
		present[i] = make([]bool, cols)
	}
	lineH := math.Max(mm.Height/minimapLines, 1)
	for _, b := range mm.Bars {
		line := min(int(b.Y/lineH), minimapLines-1)
		c0 := l.pxToCol(b.X)
		c1 := max(int(math.Ceil((b.X+b.Width)/l.cellPx)), c0+1)
		for c := max(c0, 0); c < min(c1, cols); c++ {
			if !present[line][c] || b.Role > roles[line][c] {
				roles[line][c] = b.Role
				present[line][c] = true
			}
		}
	}

	sel0 := l.pxToCol(s.Selection.X)
	sel1 := max(int(math.Ceil((s.Selection.X+s.Selection.Width)/l.cellPx)), sel0+1)
	for line := range lines {
		for c := 0; c < cols; c++ {
			inSel := c >= sel0 && c < sel1
			switch {
			case present[line][c] && inSel:
				lines[line].set(c, '▄', stRoleInSel+int(roles[line][c]))
			case present[line][c]:
				lines[line].set(c, '▄', stRole+int(roles[line][c]))
			case inSel:
				lines[line].set(c, ' ', stSelection)
			default:
				lines[line].set(c, '·', stMuted)
			}
		}
	}
	return lines
}

// headerText summarizes the incident for the title bar.
func headerText(inc *model.Incident, s timeline.Scene) string {
	title := inc.Title
	if title == "" {
		title = inc.ID
	}
	if title == "" {
		title = "incident"
	}
	return fmt.Sprintf("%s · %d records · %d alerts · %s", title, len(inc.Records), len(s.Rows), s.Axis.Granularity)
}

// joinLabel puts a label cell block and a view strip on one line.
func joinLabel(label string, labelStyle lipgloss.Style, view string) string {
	return labelStyle.Render(label) + "│" + view
}
