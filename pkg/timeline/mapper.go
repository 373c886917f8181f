package timeline

import (
	"math"
	"sort"
)

// MinBarWidthPx keeps zero-duration bars visible.
const MinBarWidthPx = 2.0

// Extent is a horizontal span in content pixels.
type Extent struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// End returns the right edge of the extent.
func (e Extent) End() float64 {
	return e.X + e.Width
}

// Mapper converts between timestamps and content pixels for one axis and
// content width. It is immutable; rebuild it whenever ticks or the content
// width change.
type Mapper struct {
	axis          Axis
	contentWidth  float64
	viewportWidth float64

	pixelsPerSecond float64
	tickWidth       float64

	// MinBarWidth is the smallest width BarExtent returns.
	MinBarWidth float64
}

// NewMapper builds a mapper. A non-positive content width yields an empty
// mapper whose positions are all zero.
func NewMapper(axis Axis, contentWidth, viewportWidth float64) *Mapper {
	m := &Mapper{
		axis:          axis,
		contentWidth:  contentWidth,
		viewportWidth: viewportWidth,
		MinBarWidth:   MinBarWidthPx,
	}
	if m.Empty() {
		return m
	}
	if span := axis.Span(); span > 0 {
		m.pixelsPerSecond = contentWidth / span
	}
	m.tickWidth = contentWidth / float64(len(axis.Ticks))
	return m
}

// Empty reports whether the mapper has nothing to map onto.
func (m *Mapper) Empty() bool {
	return m.contentWidth <= 0 || len(m.axis.Ticks) < 2
}

// Axis returns the axis the mapper was built for.
func (m *Mapper) Axis() Axis { return m.axis }

// ContentWidth returns the virtual content width in pixels.
func (m *Mapper) ContentWidth() float64 { return m.contentWidth }

// ViewportWidth returns the visible width in pixels.
func (m *Mapper) ViewportWidth() float64 { return m.viewportWidth }

// PixelsPerSecond returns the average horizontal scale.
func (m *Mapper) PixelsPerSecond() float64 { return m.pixelsPerSecond }

// TickWidth returns the width allotted to each tick.
func (m *Mapper) TickWidth() float64 { return m.tickWidth }

// InRange reports whether t falls inside the tick range.
func (m *Mapper) InRange(t float64) bool {
	return !m.Empty() && m.axis.Contains(t)
}

// TimeToX returns the content x of timestamp t. The position is interpolated
// inside the tick segment containing t and shifted by half a tick width so
// markers center inside their segment. Times outside the tick range map to
// the viewport width, just past the visible right edge.
func (m *Mapper) TimeToX(t float64) float64 {
	if m.Empty() {
		return 0
	}
	i, ok := m.segment(t)
	if !ok {
		return m.viewportWidth
	}
	b := m.axis.Ticks
	frac := 0.0
	if span := b[i+1].Timestamp - b[i].Timestamp; span > 0 {
		frac = (t - b[i].Timestamp) / span
	}
	return (float64(i)+frac)*m.tickWidth + m.tickWidth/2
}

// XToTime is the inverse of TimeToX for positions inside the covered range,
// which starts and ends half a tick in from the content edges. Positions in
// those margins clamp to the first or last boundary, so an anchored zoom with
// the cursor there pins the boundary rather than the exact pixel.
func (m *Mapper) XToTime(x float64) float64 {
	if m.Empty() || m.tickWidth <= 0 {
		return m.axis.First()
	}
	segments := m.axis.Segments()
	u := (x - m.tickWidth/2) / m.tickWidth
	u = math.Max(0, math.Min(u, float64(segments)))
	i := int(math.Floor(u))
	if i >= segments {
		i = segments - 1
	}
	b := m.axis.Ticks
	return b[i].Timestamp + (u-float64(i))*(b[i+1].Timestamp-b[i].Timestamp)
}

// segment finds the first boundary pair with b[i] <= t <= b[i+1].
func (m *Mapper) segment(t float64) (int, bool) {
	b := m.axis.Ticks
	n := len(b) - 1
	i := sort.Search(n, func(i int) bool { return b[i+1].Timestamp >= t })
	if i >= n || b[i].Timestamp > t {
		return 0, false
	}
	return i, true
}

// BarExtent returns the horizontal span of a bar from begin to end. A nil end
// means the bar is ongoing and ends at now. The width never drops below
// MinBarWidth. The boolean is false when the mapper is empty.
func (m *Mapper) BarExtent(begin int64, end *int64, now int64) (Extent, bool) {
	if m.Empty() {
		return Extent{}, false
	}
	stop := now
	if end != nil {
		stop = *end
	}
	x0 := m.TimeToX(float64(begin))
	x1 := m.TimeToX(float64(stop))
	return Extent{X: x0, Width: math.Max(x1-x0, m.MinBarWidth)}, true
}
