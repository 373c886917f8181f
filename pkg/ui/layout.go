package ui

import "math"

// Fixed screen lines around the row area.
const (
	headerLines  = 1
	tickLines    = 1
	markerLines  = 1
	minimapLines = 2
	statusLines  = 1
)

// screenLayout maps terminal cells to timeline pixels. The timeline view and
// the minimap share the same left edge and cell width, so a column converts
// to the same pixel offset in both.
type screenLayout struct {
	width     int
	height    int
	labelCols int
	cellPx    float64
	helpLines int
}

// viewStart is the first column of the timeline view, after the label column
// and its separator.
func (l screenLayout) viewStart() int {
	return l.labelCols + 1
}

func (l screenLayout) viewCols() int {
	return max(l.width-l.viewStart(), 0)
}

// viewPx is the viewport width handed to the engine.
func (l screenLayout) viewPx() float64 {
	return float64(l.viewCols()) * l.cellPx
}

// colToPx converts a screen column to a pixel offset from the view edge.
func (l screenLayout) colToPx(col int) float64 {
	return float64(col-l.viewStart())*l.cellPx + l.cellPx/2
}

// pxToCol converts a pixel offset from the view edge to a view column.
func (l screenLayout) pxToCol(px float64) int {
	return int(math.Floor(px / l.cellPx))
}

func (l screenLayout) tickY() int    { return headerLines }
func (l screenLayout) markerY() int  { return headerLines + tickLines }
func (l screenLayout) rowsY() int    { return headerLines + tickLines + markerLines }
func (l screenLayout) minimapY() int { return l.rowsY() + l.rowsHeight() }

// rowsHeight is the number of tree rows that fit.
func (l screenLayout) rowsHeight() int {
	fixed := headerLines + tickLines + markerLines + minimapLines + statusLines + l.helpLines
	return max(l.height-fixed, 1)
}

func (l screenLayout) inView(x int) bool {
	return x >= l.viewStart() && x < l.width
}
