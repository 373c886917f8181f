package timeline

import (
	"fmt"
	"time"

	"github.com/vanderheijden86/incidentline/pkg/debug"
	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
)

// Size is a measured drawing area in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Measurer reports the current size of the main drawing area.
type Measurer interface {
	Measure() Size
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func() Size

// Measure implements Measurer.
func (f MeasureFunc) Measure() Size { return f() }

// FixedSize is a Measurer that always reports the same size.
type FixedSize Size

// Measure implements Measurer.
func (s FixedSize) Measure() Size { return Size(s) }

// ResizeSource notifies about drawing area resizes. OnResize returns a
// function that unregisters fn.
type ResizeSource interface {
	OnResize(fn func()) (unregister func())
}

// Options configures an Engine.
type Options struct {
	ZoomMax       float64
	TickSpacingPx float64
	MinBarWidthPx float64
	Cluster       ClusterOptions
	Minimap       MinimapOptions
	Location      *time.Location
	Now           func() time.Time
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		ZoomMax:       DefaultZoomMax,
		TickSpacingPx: DefaultTickSpacingPx,
		MinBarWidthPx: MinBarWidthPx,
		Cluster:       DefaultClusterOptions(),
		Minimap:       DefaultMinimapOptions(),
		Location:      time.Local,
		Now:           time.Now,
	}
}

// Scene is everything a renderer needs for one frame.
type Scene struct {
	Viewport        ViewportState `json:"viewport"`
	Axis            Axis          `json:"axis"`
	TickWidth       float64       `json:"tick_width"`
	PixelsPerSecond float64       `json:"pixels_per_second"`
	Rows            []Row         `json:"rows"`
	Buckets         Buckets       `json:"buckets"`
	Minimap         Minimap       `json:"minimap"`
	Selection       SelectionRect `json:"selection"`
	Now             int64         `json:"now"`
}

// Empty reports whether there is nothing to draw (no width).
func (s Scene) Empty() bool {
	return s.Viewport.ViewportWidth <= 0
}

// Engine keeps ticks, scale, clusters, bars and the minimap consistent with the
// incident data, the measured size and the viewport. All methods recompute
// synchronously; an Engine is meant to be driven from one event loop.
type Engine struct {
	opts    Options
	measure Measurer

	incident *model.Incident
	open     map[string]bool

	vp        *Viewport
	axis      Axis
	mapper    *Mapper
	rows      []Row
	buckets   Buckets
	minimap   Minimap
	now       int64
	listeners *Listeners
	drags     map[*Drag]struct{}

	observers map[int]func()
	nextObs   int
	onSelect  map[int]func(Selection)
	nextSel   int
	closed    bool
}

// NewEngine builds an engine measuring its drawing area with measure.
func NewEngine(opts Options, measure Measurer) *Engine {
	def := DefaultOptions()
	if opts.ZoomMax <= 0 {
		opts.ZoomMax = def.ZoomMax
	}
	if opts.TickSpacingPx <= 0 {
		opts.TickSpacingPx = def.TickSpacingPx
	}
	if opts.MinBarWidthPx <= 0 {
		opts.MinBarWidthPx = def.MinBarWidthPx
	}
	opts.Cluster = opts.Cluster.normalized()
	if opts.Minimap.Width <= 0 {
		opts.Minimap.Width = def.Minimap.Width
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if measure == nil {
		measure = FixedSize{}
	}

	e := &Engine{
		opts:      opts,
		measure:   measure,
		incident:  &model.Incident{},
		open:      make(map[string]bool),
		listeners: NewListeners(),
		drags:     make(map[*Drag]struct{}),
		observers: make(map[int]func()),
		onSelect:  make(map[int]func(Selection)),
	}
	e.vp = NewViewport(measure.Measure().Width, opts.ZoomMax, opts.TickSpacingPx)
	e.recomputeAll()
	return e
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Viewport exposes the viewport state.
func (e *Engine) Viewport() ViewportState { return e.vp.State() }

// Mapper returns the current coordinate mapper.
func (e *Engine) Mapper() *Mapper { return e.mapper }

// Incident returns the incident being displayed.
func (e *Engine) Incident() *model.Incident { return e.incident }

// Listeners returns the pointer-move registry used by drag gestures.
func (e *Engine) Listeners() *Listeners { return e.listeners }

// SetIncident replaces the displayed data. Expand/collapse overrides are kept
// for nodes that still exist.
func (e *Engine) SetIncident(inc *model.Incident) {
	if inc == nil {
		inc = &model.Incident{}
	}
	e.incident = inc
	for id := range e.open {
		if model.FindNode(inc.Tree, id) == nil {
			delete(e.open, id)
		}
	}
	debug.Log("timeline: incident %q with %d records", inc.ID, len(inc.Records))
	e.recomputeAll()
}

// Resize re-measures the drawing area and recomputes everything.
func (e *Engine) Resize() {
	size := e.measure.Measure()
	e.vp.SetViewportWidth(size.Width)
	debug.Log("timeline: resize to %.0fpx", size.Width)
	e.recomputeAll()
}

// Observe registers Resize with src. The returned function unregisters it;
// Close unregisters every remaining observation.
func (e *Engine) Observe(src ResizeSource) (unregister func()) {
	if e.closed || src == nil {
		return func() {}
	}
	id := e.nextObs
	e.nextObs++
	e.observers[id] = src.OnResize(e.Resize)
	return func() {
		if un, ok := e.observers[id]; ok {
			delete(e.observers, id)
			un()
		}
	}
}

// Observers returns the number of live resize registrations.
func (e *Engine) Observers() int { return len(e.observers) }

// IsOpen reports whether a branch is expanded, honoring toggles.
func (e *Engine) IsOpen(n *model.AggregationNode) bool {
	if v, ok := e.open[n.ID]; ok {
		return v
	}
	return n.IsOpen
}

// Toggle expands or collapses a branch. Only rows and the minimap are
// recomputed; ticks and scale stay as they are.
func (e *Engine) Toggle(nodeID string) bool {
	n := model.FindNode(e.incident.Tree, nodeID)
	if n == nil || !n.HasChildren() {
		return false
	}
	e.open[nodeID] = !e.IsOpen(n)
	e.relayoutRows()
	return true
}

// SetZoom applies a slider value.
func (e *Engine) SetZoom(level float64) bool {
	if !e.vp.SetZoom(level) {
		return false
	}
	e.rescale()
	return true
}

// WheelZoom zooms by delta keeping the time under cursorX (viewport pixels)
// at the same screen position.
func (e *Engine) WheelZoom(delta, cursorX float64) bool {
	old := e.mapper
	times := e.incident.Times(e.now)
	project := func(oldX, _, newContent float64) float64 {
		t := old.XToTime(oldX)
		axis := BuildTicks(times, e.vp.SegmentCountFor(newContent), e.opts.Location)
		return NewMapper(axis, newContent, e.vp.ViewportWidth()).TimeToX(t)
	}
	if !e.vp.ZoomAt(delta, cursorX, project) {
		return false
	}
	e.rescale()
	return true
}

// Pan moves the content by dx pixels.
func (e *Engine) Pan(dx float64) bool {
	return e.vp.Pan(dx)
}

// SetPanRatio positions the viewport at ratio r of its pannable range.
func (e *Engine) SetPanRatio(r float64) {
	e.vp.SetPanRatio(r)
}

// PanRatio returns the current pan ratio.
func (e *Engine) PanRatio() float64 {
	return e.vp.PanRatio()
}

// SelectionRect returns the minimap rectangle for the current viewport.
func (e *Engine) SelectionRect() SelectionRect {
	return e.minimap.Selection(e.vp.PanRatio(), e.vp.ViewportWidth(), e.vp.ContentWidth())
}

// SetSelectionX moves the minimap rectangle to x and pans the main viewport
// to the matching ratio.
func (e *Engine) SetSelectionX(x float64) {
	rect := e.SelectionRect()
	rect.X = x
	rect = e.minimap.ClampSelection(rect)
	e.vp.SetPanRatio(e.minimap.RatioAt(rect))
}

// BeginPan starts a drag on the main view. It returns nil while the content
// fits the viewport.
func (e *Engine) BeginPan(x float64) *Drag {
	if e.closed || e.vp.ZoomLevel() == 0 {
		return nil
	}
	return e.track(BeginDrag(e.listeners, x, func(dx float64) { e.vp.Pan(dx) }, e.untrack))
}

// BeginMinimapDrag starts a drag on the minimap selection rectangle. Moving
// the rectangle right pans the main view towards later times.
func (e *Engine) BeginMinimapDrag(x float64) *Drag {
	if e.closed || e.vp.MaxPan() <= 0 {
		return nil
	}
	return e.track(BeginDrag(e.listeners, x, func(dx float64) {
		e.SetSelectionX(e.SelectionRect().X + dx)
	}, e.untrack))
}

func (e *Engine) track(d *Drag) *Drag {
	e.drags[d] = struct{}{}
	return d
}

func (e *Engine) untrack(d *Drag) {
	delete(e.drags, d)
}

// PointerMove forwards a pointer position to active gestures.
func (e *Engine) PointerMove(x, y float64) {
	e.listeners.Dispatch(PointerEvent{X: x, Y: y})
}

// PointerUp ends every active gesture.
func (e *Engine) PointerUp() {
	for d := range e.drags {
		d.End()
	}
}

// ActiveDrags returns the number of gestures in progress.
func (e *Engine) ActiveDrags() int { return len(e.drags) }

// OnSelect registers a selection handler and returns its unsubscribe func.
func (e *Engine) OnSelect(fn func(Selection)) (unsubscribe func()) {
	id := e.nextSel
	e.nextSel++
	e.onSelect[id] = fn
	return func() { delete(e.onSelect, id) }
}

// SelectRow forwards the row at index i (into Scene.Rows) to the handlers.
func (e *Engine) SelectRow(i int) (Selection, error) {
	if i < 0 || i >= len(e.rows) {
		return Selection{}, fmt.Errorf("row %d out of range [0,%d)", i, len(e.rows))
	}
	sel := newRowSelection(e.rows[i].Node)
	e.emit(sel)
	return sel, nil
}

// SelectMarker forwards cluster idx of tick to the handlers.
func (e *Engine) SelectMarker(tick, idx int) (Selection, error) {
	clusters := e.buckets[tick]
	if idx < 0 || idx >= len(clusters) {
		return Selection{}, fmt.Errorf("no marker %d at tick %d", idx, tick)
	}
	sel := newMarkerSelection(clusters[idx], e.incident.Tree)
	e.emit(sel)
	return sel, nil
}

func (e *Engine) emit(sel Selection) {
	debug.Log("timeline: select %s %s (%d actions)", sel.Kind, sel.EventID, len(sel.Actions))
	for _, fn := range e.onSelect {
		fn(sel)
	}
}

// Scene returns a snapshot of the current layout.
func (e *Engine) Scene() Scene {
	s := Scene{
		Viewport: e.vp.State(),
		Axis:     e.axis,
		Rows:     e.rows,
		Buckets:  e.buckets,
		Minimap:  e.minimap,
		Now:      e.now,
	}
	if e.mapper != nil {
		s.TickWidth = e.mapper.TickWidth()
		s.PixelsPerSecond = e.mapper.PixelsPerSecond()
	}
	s.Selection = e.SelectionRect()
	return s
}

// Redraw re-evaluates "now" so ongoing bars grow, then recomputes.
func (e *Engine) Redraw() {
	e.recomputeAll()
}

// Close ends active gestures, unregisters resize observations and drops
// selection handlers. It is safe to call more than once.
func (e *Engine) Close() {
	e.PointerUp()
	for id, un := range e.observers {
		delete(e.observers, id)
		un()
	}
	for id := range e.onSelect {
		delete(e.onSelect, id)
	}
	e.closed = true
}

func (e *Engine) recomputeAll() {
	defer debug.LogEnterExit("timeline.recompute")()
	e.now = e.opts.Now().Unix()
	e.rescale()
}

// rescale rebuilds ticks and scale, then everything derived from them.
func (e *Engine) rescale() {
	e.rebuildAxis()
	e.recluster()
	e.relayoutRows()
}

func (e *Engine) rebuildAxis() {
	defer metrics.Timer(metrics.AxisBuild)()
	times := e.incident.Times(e.now)
	e.axis = BuildTicks(times, e.vp.SegmentCount(), e.opts.Location)
	e.mapper = NewMapper(e.axis, e.vp.ContentWidth(), e.vp.ViewportWidth())
	e.mapper.MinBarWidth = e.opts.MinBarWidthPx
}

func (e *Engine) recluster() {
	defer metrics.Timer(metrics.Clustering)()
	e.buckets = ClusterRecords(e.incident.Records, e.mapper, e.opts.Cluster)
}

func (e *Engine) relayoutRows() {
	stop := metrics.Timer(metrics.RowLayout)
	e.rows = PositionRows(Flatten(e.incident.Tree, e.IsOpen), e.mapper, e.now)
	stop()

	defer metrics.Timer(metrics.MinimapLayout)()
	if e.vp.ViewportWidth() <= 0 {
		e.minimap = Minimap{}
		return
	}
	e.minimap = LayoutMinimap(e.rows, e.axis, e.opts.Minimap, e.now)
}
