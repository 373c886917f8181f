package timeline

import "math"

// Viewport defaults.
const (
	DefaultZoomMax       = 10.0
	DefaultTickSpacingPx = 130.0
)

// ViewportState is a serializable snapshot of a Viewport.
type ViewportState struct {
	ZoomLevel     float64 `json:"zoom_level"`
	ZoomMax       float64 `json:"zoom_max"`
	ViewportWidth float64 `json:"viewport_width"`
	ContentWidth  float64 `json:"content_width"`
	PanOffset     float64 `json:"pan_offset"`
}

// Projection maps a content x at oldContent width to the matching content x at
// newContent width. Engine supplies a tick-aware projection; LinearProjection
// is the fallback.
type Projection func(oldX, oldContent, newContent float64) float64

// LinearProjection scales x proportionally with the content width.
func LinearProjection(oldX, oldContent, newContent float64) float64 {
	if oldContent <= 0 {
		return 0
	}
	return oldX * newContent / oldContent
}

// Viewport owns zoom level and pan offset. Content can grow to three times the
// viewport at maximum zoom and can never be panned to show space before its
// origin, so PanOffset always lies in [-(ContentWidth-ViewportWidth), 0].
type Viewport struct {
	zoomLevel     float64
	zoomMax       float64
	viewportWidth float64
	panOffset     float64
	tickSpacing   float64
}

// NewViewport creates an unzoomed viewport.
func NewViewport(viewportWidth, zoomMax, tickSpacing float64) *Viewport {
	if !isFinite(zoomMax) || zoomMax <= 0 {
		zoomMax = DefaultZoomMax
	}
	if !isFinite(tickSpacing) || tickSpacing <= 0 {
		tickSpacing = DefaultTickSpacingPx
	}
	return &Viewport{
		zoomMax:       zoomMax,
		viewportWidth: nonNegative(viewportWidth),
		tickSpacing:   tickSpacing,
	}
}

// ZoomLevel returns the current zoom level in [0, ZoomMax].
func (v *Viewport) ZoomLevel() float64 { return v.zoomLevel }

// ZoomMax returns the highest zoom level.
func (v *Viewport) ZoomMax() float64 { return v.zoomMax }

// ViewportWidth returns the visible width.
func (v *Viewport) ViewportWidth() float64 { return v.viewportWidth }

// PanOffset returns the current horizontal offset of the content.
func (v *Viewport) PanOffset() float64 { return v.panOffset }

// ZoomFraction returns zoom level over zoom max.
func (v *Viewport) ZoomFraction() float64 {
	return v.zoomLevel / v.zoomMax
}

// ContentWidth returns the virtual content width at the current zoom.
func (v *Viewport) ContentWidth() float64 {
	return v.contentWidthAt(v.zoomLevel)
}

func (v *Viewport) contentWidthAt(level float64) float64 {
	return v.viewportWidth + (level/v.zoomMax)*v.viewportWidth*2
}

// MaxPan returns how far the content can be panned left.
func (v *Viewport) MaxPan() float64 {
	return math.Max(v.ContentWidth()-v.viewportWidth, 0)
}

// SegmentCount returns how many tick segments the current content holds.
func (v *Viewport) SegmentCount() int {
	return v.SegmentCountFor(v.ContentWidth())
}

// SegmentCountFor returns the tick segment count for a content width: one per
// tick spacing pixels, never fewer than one.
func (v *Viewport) SegmentCountFor(contentWidth float64) int {
	n := int(math.Floor(contentWidth / v.tickSpacing))
	if n < 1 {
		n = 1
	}
	return n
}

// State returns a snapshot.
func (v *Viewport) State() ViewportState {
	return ViewportState{
		ZoomLevel:     v.zoomLevel,
		ZoomMax:       v.zoomMax,
		ViewportWidth: v.viewportWidth,
		ContentWidth:  v.ContentWidth(),
		PanOffset:     v.panOffset,
	}
}

// SetViewportWidth applies a resize, keeping the pan ratio.
func (v *Viewport) SetViewportWidth(w float64) {
	ratio := v.PanRatio()
	v.viewportWidth = nonNegative(w)
	v.SetPanRatio(ratio)
}

// SetZoom sets the zoom level directly (slider), clamped to [0, ZoomMax],
// keeping the pan ratio. It returns false when the level did not change.
func (v *Viewport) SetZoom(level float64) bool {
	if math.IsNaN(level) {
		return false
	}
	level = clamp(level, 0, v.zoomMax)
	if level == v.zoomLevel {
		return false
	}
	ratio := v.PanRatio()
	v.zoomLevel = level
	v.SetPanRatio(ratio)
	return true
}

// ZoomBy changes the zoom level by delta without cursor anchoring.
func (v *Viewport) ZoomBy(delta float64) bool {
	return v.SetZoom(v.zoomLevel + delta)
}

// ZoomAt changes the zoom level by delta while keeping the content under
// cursorX (viewport coordinates) stationary. The pan ratio is carried over
// first, then corrected by how far the cursor's content point moved. The
// resulting zoom state equals SetZoom(ZoomLevel()+delta).
func (v *Viewport) ZoomAt(delta, cursorX float64, project Projection) bool {
	if project == nil {
		project = LinearProjection
	}
	oldPan := v.panOffset
	oldContent := v.ContentWidth()
	if !v.SetZoom(v.zoomLevel + delta) {
		return false
	}
	newContent := v.ContentWidth()

	if !isFinite(cursorX) {
		cursorX = 0
	}
	pre := cursorX - oldPan
	post := project(pre, oldContent, newContent)
	drift := post + v.panOffset - cursorX
	v.panOffset = v.clampPan(v.panOffset - drift)
	return true
}

// Pan moves the content by dx pixels. Panning is disabled while the content
// fits the viewport (zoom level 0).
func (v *Viewport) Pan(dx float64) bool {
	if v.zoomLevel == 0 || !isFinite(dx) {
		return false
	}
	next := v.clampPan(v.panOffset + dx)
	if next == v.panOffset {
		return false
	}
	v.panOffset = next
	return true
}

func (v *Viewport) clampPan(p float64) float64 {
	maxPan := v.MaxPan()
	p = clamp(p, -maxPan, maxPan)
	if p > 0 {
		p = 0
	}
	return p
}

// PanRatio returns how far along the pannable range the content sits, in
// [0, 1]. It is 0 when the content fits the viewport.
func (v *Viewport) PanRatio() float64 {
	maxPan := v.MaxPan()
	if maxPan <= 0 {
		return 0
	}
	return clamp(-v.panOffset/maxPan, 0, 1)
}

// SetPanRatio positions the content at ratio r of the pannable range.
func (v *Viewport) SetPanRatio(r float64) {
	if math.IsNaN(r) {
		r = 0
	}
	v.panOffset = v.clampPan(-clamp(r, 0, 1) * v.MaxPan())
}

// VisibleRange returns the content x range currently on screen.
func (v *Viewport) VisibleRange() (from, to float64) {
	return -v.panOffset, -v.panOffset + v.viewportWidth
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// nonNegative maps negative and non-finite widths to 0.
func nonNegative(x float64) float64 {
	if !isFinite(x) || x < 0 {
		return 0
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
