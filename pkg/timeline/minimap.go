package timeline

import (
	"math"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

// Minimap defaults, in minimap pixels.
const (
	DefaultMinimapWidth     = 240.0
	DefaultMinimapRowHeight = 4.0
	DefaultMinimapBarHeight = 2.0
	MinimapMinBarWidthPx    = 3.0
)

// BarRole selects the minimap bar color.
type BarRole int

const (
	RoleDefault BarRole = iota
	RoleUnresolved
	RoleRecovered
	RoleFeedbackRoot
	RoleRootCause
)

func (r BarRole) String() string {
	switch r {
	case RoleUnresolved:
		return "unresolved"
	case RoleRecovered:
		return "recovered"
	case RoleFeedbackRoot:
		return "feedback_root"
	case RoleRootCause:
		return "root_cause"
	default:
		return "default"
	}
}

// RoleFor picks a role by priority: root cause, feedback root, then status.
func RoleFor(n *model.AggregationNode) BarRole {
	switch {
	case n == nil:
		return RoleDefault
	case n.IsRoot:
		return RoleRootCause
	case n.IsFeedbackRoot:
		return RoleFeedbackRoot
	case n.Status.IsRecovered():
		return RoleRecovered
	case n.Status.IsUnresolved():
		return RoleUnresolved
	default:
		return RoleDefault
	}
}

// MinimapOptions sizes the minimap.
type MinimapOptions struct {
	Width     float64
	RowHeight float64
	BarHeight float64
}

// DefaultMinimapOptions returns the stock minimap size.
func DefaultMinimapOptions() MinimapOptions {
	return MinimapOptions{
		Width:     DefaultMinimapWidth,
		RowHeight: DefaultMinimapRowHeight,
		BarHeight: DefaultMinimapBarHeight,
	}
}

// MiniBar is one condensed row bar.
type MiniBar struct {
	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Role   BarRole `json:"role"`
}

// Minimap is the condensed overview of the whole tree.
type Minimap struct {
	Width           float64   `json:"width"`
	Height          float64   `json:"height"`
	RowHeight       float64   `json:"row_height"`
	PixelsPerSecond float64   `json:"pixels_per_second"`
	Bars            []MiniBar `json:"bars"`
}

// SelectionRect is the minimap rectangle mirroring the main viewport.
type SelectionRect struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// LayoutMinimap draws every drawable row of the whole tree on a linear scale.
// The vertical position advances one row height for every row, drawn or not,
// so rows keep their place when branches collapse or expand.
func LayoutMinimap(rows []Row, axis Axis, opts MinimapOptions, now int64) Minimap {
	if opts.RowHeight <= 0 {
		opts.RowHeight = DefaultMinimapRowHeight
	}
	if opts.BarHeight <= 0 {
		opts.BarHeight = math.Min(DefaultMinimapBarHeight, opts.RowHeight)
	}
	mm := Minimap{
		Width:     math.Max(opts.Width, 0),
		Height:    float64(len(rows)) * opts.RowHeight,
		RowHeight: opts.RowHeight,
	}
	span := axis.Span()
	if mm.Width <= 0 || span <= 0 {
		return mm
	}
	mm.PixelsPerSecond = mm.Width / span
	first := axis.First()

	y := 0.0
	for _, r := range rows {
		if r.IsDraw && r.Node != nil {
			begin := float64(r.Node.BeginTime)
			end := float64(r.Node.EndOrNow(now))
			mm.Bars = append(mm.Bars, MiniBar{
				NodeID: r.Node.ID,
				X:      (begin - first) * mm.PixelsPerSecond,
				Y:      y,
				Width:  math.Max((end-begin)*mm.PixelsPerSecond, MinimapMinBarWidthPx),
				Height: opts.BarHeight,
				Role:   RoleFor(r.Node),
			})
		}
		y += opts.RowHeight
	}
	return mm
}

// Selection returns the rectangle mirroring a viewport of viewportWidth over
// contentWidth, panned to ratio.
func (mm Minimap) Selection(ratio, viewportWidth, contentWidth float64) SelectionRect {
	w := mm.Width
	if contentWidth > 0 && viewportWidth < contentWidth {
		w = mm.Width * viewportWidth / contentWidth
	}
	return SelectionRect{X: clamp(ratio, 0, 1) * (mm.Width - w), Width: w}
}

// RatioAt returns the pan ratio implied by a selection rectangle at x.
func (mm Minimap) RatioAt(rect SelectionRect) float64 {
	free := mm.Width - rect.Width
	if free <= 0 {
		return 0
	}
	return clamp(rect.X/free, 0, 1)
}

// ClampSelection keeps a rectangle inside the minimap.
func (mm Minimap) ClampSelection(rect SelectionRect) SelectionRect {
	rect.X = clamp(rect.X, 0, math.Max(mm.Width-rect.Width, 0))
	return rect
}
