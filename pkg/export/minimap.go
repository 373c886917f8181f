package export

import (
	"image"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"

	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// MinimapSurface is a raster of the minimap. Every Redraw clears the whole
// surface and draws all bars and the selection rectangle again.
type MinimapSurface struct {
	dc     *gg.Context
	width  int
	height int
	draws  int
}

// NewMinimapSurface returns an empty surface; the first Redraw sizes it.
func NewMinimapSurface() *MinimapSurface {
	return &MinimapSurface{}
}

// Redraw repaints mm with the selection rectangle sel. The raster is
// reallocated when the minimap size changed.
func (s *MinimapSurface) Redraw(mm timeline.Minimap, sel timeline.SelectionRect) {
	defer metrics.Timer(metrics.PNGRender)()

	w := int(math.Max(math.Ceil(mm.Width), 1))
	h := int(math.Max(math.Ceil(mm.Height), 1))
	if s.dc == nil || w != s.width || h != s.height {
		s.dc = gg.NewContext(w, h)
		s.width, s.height = w, h
	}
	s.dc.SetColor(colorBackdrop)
	s.dc.Clear()
	drawMinimap(s.dc,
		rect{W: float64(w), H: float64(h)},
		mm.Bars,
		rect{X: sel.X, W: sel.Width, H: float64(h)},
	)
	s.draws++
}

// Size returns the raster size in pixels.
func (s *MinimapSurface) Size() (width, height int) {
	return s.width, s.height
}

// Draws returns how many times the surface was redrawn.
func (s *MinimapSurface) Draws() int {
	return s.draws
}

// Image returns the current raster, or nil before the first Redraw.
func (s *MinimapSurface) Image() image.Image {
	if s.dc == nil {
		return nil
	}
	return s.dc.Image()
}

// EncodePNG writes the current raster as PNG.
func (s *MinimapSurface) EncodePNG(w io.Writer) error {
	if s.dc == nil {
		s.Redraw(timeline.Minimap{}, timeline.SelectionRect{})
	}
	return s.dc.EncodePNG(w)
}
