package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// Style keys for strip cells.
const (
	stPlain = iota
	stMuted
	stTick
	stBadge
	stCursor
	stSelection
	// role keys are offset by the BarRole value
	stRole
	stRoleInSel    = stRole + 5
	numStripStyles = stRoleInSel + 5
)

// stripStyles builds the style table indexed by the keys above.
func stripStyles(t Theme) []lipgloss.Style {
	r := t.Renderer
	styles := make([]lipgloss.Style, numStripStyles)
	styles[stPlain] = r.NewStyle()
	styles[stMuted] = t.MutedText
	styles[stTick] = t.TickLabel
	styles[stBadge] = t.Badge
	styles[stCursor] = r.NewStyle().Reverse(true).Bold(true)
	styles[stSelection] = r.NewStyle().Background(t.Selection)
	for role := timeline.RoleDefault; role <= timeline.RoleRootCause; role++ {
		styles[stRole+int(role)] = r.NewStyle().Foreground(t.RoleColor(role))
		styles[stRoleInSel+int(role)] = r.NewStyle().Foreground(t.RoleColor(role)).Background(t.Selection)
	}
	return styles
}

// strip is one line of single-width cells with a style key per cell.
type strip struct {
	cells []rune
	keys  []int
}

func newStrip(width int) strip {
	if width < 0 {
		width = 0
	}
	s := strip{cells: make([]rune, width), keys: make([]int, width)}
	for i := range s.cells {
		s.cells[i] = ' '
	}
	return s
}

func (s strip) width() int { return len(s.cells) }

// set writes r at col; out of range columns are ignored.
func (s strip) set(col int, r rune, key int) {
	if col < 0 || col >= len(s.cells) {
		return
	}
	s.cells[col] = r
	s.keys[col] = key
}

// fill writes r over [from, to).
func (s strip) fill(from, to int, r rune, key int) {
	for c := max(from, 0); c < min(to, len(s.cells)); c++ {
		s.cells[c] = r
		s.keys[c] = key
	}
}

// text writes str from col, clipping at both edges.
func (s strip) text(col int, str string, key int) {
	for i, r := range []rune(str) {
		s.set(col+i, r, key)
	}
}

// free reports whether [from, to) holds only blanks.
func (s strip) free(from, to int) bool {
	if from < 0 || to > len(s.cells) {
		return false
	}
	for c := from; c < to; c++ {
		if s.cells[c] != ' ' {
			return false
		}
	}
	return true
}

// render joins runs of equal style into styled segments.
func (s strip) render(styles []lipgloss.Style) string {
	var sb strings.Builder
	start := 0
	for i := 1; i <= len(s.cells); i++ {
		if i < len(s.cells) && s.keys[i] == s.keys[start] {
			continue
		}
		run := string(s.cells[start:i])
		if k := s.keys[start]; k == stPlain {
			sb.WriteString(run)
		} else {
			sb.WriteString(styles[k].Render(run))
		}
		start = i
	}
	return sb.String()
}

// plain returns the cells without styling.
func (s strip) plain() string {
	return string(s.cells)
}
