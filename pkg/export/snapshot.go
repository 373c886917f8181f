package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font/basicfont"
)

// SnapshotOptions controls timeline snapshot export behaviour.
type SnapshotOptions struct {
	Path       string          // Output path; format inferred from extension when Format empty
	Format     string          // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title      string          // Optional title rendered in the header
	Incident   *model.Incident // Incident the scene was computed for
	Scene      timeline.Scene  // Layout to draw
	LabelWidth float64         // Width of the row title column (default 200)
	RowHeight  float64         // Height of one tree row (default 22)
}

// SaveSnapshot renders a static timeline snapshot (SVG or PNG): header, tick
// labels, record markers, one bar per visible row and the minimap strip.
func SaveSnapshot(opts SnapshotOptions) error {
	format, err := resolveFormat(&opts)
	if err != nil {
		return err
	}
	if opts.Scene.Empty() {
		return fmt.Errorf("nothing to export: viewport has no width")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch format {
	case "svg":
		err = RenderSVG(file, opts)
	case "png":
		err = RenderPNG(file, opts)
	default:
		err = fmt.Errorf("unhandled format %q", format)
	}
	if err != nil {
		return err
	}
	return file.Close()
}

func resolveFormat(opts *SnapshotOptions) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch ext := strings.ToLower(filepath.Ext(opts.Path)); ext {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		case "":
			format = "svg"
			if opts.Path != "" {
				opts.Path += ".svg"
			}
		default:
			format = strings.TrimPrefix(ext, ".")
		}
	}
	if format != "svg" && format != "png" {
		return "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return "", fmt.Errorf("output path is required")
	}
	return format, nil
}

// RenderSVG writes the timeline snapshot as SVG.
func RenderSVG(w io.Writer, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SVGRender)()
	return renderSVGToWriter(w, buildLayout(opts))
}

// RenderPNG writes the timeline snapshot as PNG.
func RenderPNG(w io.Writer, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.PNGRender)()
	dc := renderPNG(buildLayout(opts))
	return dc.EncodePNG(w)
}

// --- layout computation ----------------------------------------------------

type rect struct {
	X, Y, W, H float64
}

type layoutTick struct {
	X     float64
	Label string
}

type layoutRow struct {
	Label  string
	Y      float64
	Depth  int
	Status bool
	Badge  string
	HasBar bool
	Bar    rect
	Role   timeline.BarRole
}

type layoutMarker struct {
	X, Y  float64
	Text  string
	Badge bool
	Role  timeline.BarRole
}

type layoutResult struct {
	Width     int
	Height    int
	Header    float64
	Title     string
	Summary   []string
	View      rect // main drawing area
	Ticks     []layoutTick
	Rows      []layoutRow
	Markers   []layoutMarker
	Minimap   rect
	MiniBars  []timeline.MiniBar
	Selection rect
}

const (
	padding      = 16.0
	headerHeight = 64.0
	axisHeight   = 24.0
	markerHeight = 28.0
	markerRadius = 9.0
)

func buildLayout(opts SnapshotOptions) layoutResult {
	s := opts.Scene
	labelW := opts.LabelWidth
	if labelW <= 0 {
		labelW = 200
	}
	rowH := opts.RowHeight
	if rowH <= 0 {
		rowH = 22
	}

	vw := s.Viewport.ViewportWidth
	viewX := padding + labelW
	shown := timeline.ShownRows(s.Rows)
	viewY := padding + headerHeight + axisHeight + markerHeight
	view := rect{X: viewX, Y: viewY, W: vw, H: float64(len(shown)) * rowH}

	// content x to canvas x
	pan := s.Viewport.PanOffset
	toCanvas := func(x float64) float64 { return viewX + x + pan }
	visible := func(x float64) bool { return x >= viewX && x <= viewX+vw }

	res := layoutResult{Header: headerHeight, View: view}

	res.Title = opts.Title
	if strings.TrimSpace(res.Title) == "" {
		res.Title = "Incident Timeline"
		if opts.Incident != nil && opts.Incident.Title != "" {
			res.Title = opts.Incident.Title
		}
	}
	if opts.Incident != nil {
		res.Summary = append(res.Summary, fmt.Sprintf("incident: %s  records: %d  rows: %d", opts.Incident.ID, len(opts.Incident.Records), len(s.Rows)))
	}
	res.Summary = append(res.Summary, fmt.Sprintf("zoom: %.1f/%.0f  granularity: %s  markers: %d",
		s.Viewport.ZoomLevel, s.Viewport.ZoomMax, s.Axis.Granularity, s.Buckets.MarkerCount()))

	for i, tb := range s.Axis.Ticks {
		x := toCanvas(float64(i)*s.TickWidth + s.TickWidth/2)
		if visible(x) {
			res.Ticks = append(res.Ticks, layoutTick{X: x, Label: tb.Label})
		}
	}

	markerY := padding + headerHeight + axisHeight + markerHeight/2
	for _, i := range s.Buckets.Indices() {
		for _, c := range s.Buckets[i] {
			x := toCanvas(c.X)
			if !visible(x) {
				continue
			}
			mk := c.Marker()
			m := layoutMarker{X: x, Y: markerY, Role: markerRole(c)}
			if mk.Kind == timeline.MarkerBadge {
				m.Badge = true
				m.Text = fmt.Sprintf("%d", mk.Count)
			} else {
				m.Text = strings.ToUpper(string(mk.Icon)[:1])
			}
			res.Markers = append(res.Markers, m)
		}
	}

	for i, r := range shown {
		lr := layoutRow{
			Label:  truncate(strings.Repeat("  ", r.Depth)+rowTitle(r.Node), int(labelW/7)),
			Y:      viewY + float64(i)*rowH,
			Depth:  r.Depth,
			Status: r.Node.IsStatusRow(),
			Role:   timeline.RoleFor(r.Node),
		}
		switch {
		case r.IsRoot():
			lr.Badge = "root cause"
		case r.IsFeedbackRoot():
			lr.Badge = "reported root"
		}
		if r.HasBar {
			x0 := math.Max(toCanvas(r.Bar.X), viewX)
			x1 := math.Min(toCanvas(r.Bar.End()), viewX+vw)
			if x1 > x0 {
				lr.HasBar = true
				lr.Bar = rect{X: x0, Y: lr.Y + 4, W: x1 - x0, H: rowH - 8}
			}
		}
		res.Rows = append(res.Rows, lr)
	}

	mm := s.Minimap
	miniY := view.Y + view.H + padding
	res.Minimap = rect{X: viewX, Y: miniY, W: mm.Width, H: math.Max(mm.Height, 4)}
	for _, b := range mm.Bars {
		b.X += viewX
		b.Y += miniY
		res.MiniBars = append(res.MiniBars, b)
	}
	res.Selection = rect{X: viewX + s.Selection.X, Y: miniY, W: s.Selection.Width, H: res.Minimap.H}

	res.Width = int(math.Ceil(viewX + math.Max(vw, mm.Width) + padding))
	res.Height = int(math.Ceil(miniY + res.Minimap.H + padding))
	return res
}

func rowTitle(n *model.AggregationNode) string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

func markerRole(c timeline.Cluster) timeline.BarRole {
	if c.Size() == 1 && c.Members[0].OperationClass == model.ClassSystem {
		return timeline.RoleUnresolved
	}
	return timeline.RoleDefault
}

// --- rendering -------------------------------------------------------------

func renderPNG(layout layoutResult) *gg.Context {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(padding, padding, float64(layout.Width)-2*padding, layout.Header-8, 8)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Title, padding+12, padding+16, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range layout.Summary {
		dc.DrawStringAnchored(line, padding+12, padding+34+float64(i)*16, 0, 0.5)
	}

	// grid and tick labels
	axisY := padding + layout.Header + axisHeight/2
	dc.SetLineWidth(1)
	for _, tk := range layout.Ticks {
		dc.SetColor(colorGrid)
		dc.DrawLine(tk.X, axisY+axisHeight/2, tk.X, layout.View.Y+layout.View.H)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(tk.Label, tk.X, axisY, 0.5, 0.5)
	}

	for _, m := range layout.Markers {
		dc.SetColor(roleColor(m.Role))
		if m.Badge {
			dc.SetColor(colorBadge)
		}
		dc.DrawCircle(m.X, m.Y, markerRadius)
		dc.Fill()
		dc.SetColor(colorBackdrop)
		dc.DrawStringAnchored(m.Text, m.X, m.Y, 0.5, 0.35)
	}

	for _, r := range layout.Rows {
		dc.SetColor(colorText)
		if !r.Status {
			dc.SetColor(colorSubtle)
		}
		dc.DrawStringAnchored(r.Label, padding, r.Y+11, 0, 0.5)
		if r.HasBar {
			dc.SetColor(roleColor(r.Role))
			dc.DrawRoundedRectangle(r.Bar.X, r.Bar.Y, r.Bar.W, r.Bar.H, 3)
			dc.Fill()
		}
		if r.Badge != "" && r.HasBar {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(r.Badge, r.Bar.X+r.Bar.W+6, r.Y+11, 0, 0.5)
		}
	}

	drawMinimap(dc, layout.Minimap, layout.MiniBars, layout.Selection)
	return dc
}

func drawMinimap(dc *gg.Context, box rect, bars []timeline.MiniBar, sel rect) {
	dc.SetColor(colorLegendBG)
	dc.DrawRectangle(box.X, box.Y, box.W, box.H)
	dc.Fill()
	for _, b := range bars {
		dc.SetColor(roleColor(b.Role))
		dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
		dc.Fill()
	}
	dc.SetColor(colorSelectionFill)
	dc.DrawRectangle(sel.X, sel.Y, sel.W, sel.H)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRectangle(sel.X, sel.Y, sel.W, sel.H)
	dc.Stroke()
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(int(padding), int(padding), layout.Width-2*int(padding), int(layout.Header-8), 8, 8, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(int(padding+12), int(padding+20), layout.Title, fmt.Sprintf("fill:%s;font-size:15px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range layout.Summary {
		canvas.Text(int(padding+12), int(padding+38)+i*16, line, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	axisY := int(padding + layout.Header + axisHeight/2)
	bottom := int(layout.View.Y + layout.View.H)
	for _, tk := range layout.Ticks {
		x := int(tk.X)
		canvas.Line(x, axisY+int(axisHeight/2), x, bottom, fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
		canvas.Text(x, axisY+4, tk.Label, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(colorSubtle)))
	}

	for _, m := range layout.Markers {
		fill := roleColor(m.Role)
		if m.Badge {
			fill = colorBadge
		}
		canvas.Circle(int(m.X), int(m.Y), int(markerRadius), fmt.Sprintf("fill:%s", css(fill)))
		canvas.Text(int(m.X), int(m.Y)+4, m.Text, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(colorBackdrop)))
	}

	for _, r := range layout.Rows {
		style := fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle))
		if r.Status {
			style = fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;font-weight:bold", css(colorText))
		}
		canvas.Text(int(padding), int(r.Y)+15, r.Label, style)
		if !r.HasBar {
			continue
		}
		canvas.Roundrect(int(r.Bar.X), int(r.Bar.Y), int(math.Max(r.Bar.W, 1)), int(r.Bar.H), 3, 3, fmt.Sprintf("fill:%s", css(roleColor(r.Role))))
		if r.Badge != "" {
			canvas.Text(int(r.Bar.X+r.Bar.W)+6, int(r.Y)+15, r.Badge, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorText)))
		}
	}

	box := layout.Minimap
	canvas.Rect(int(box.X), int(box.Y), int(box.W), int(box.H), fmt.Sprintf("fill:%s", css(colorLegendBG)))
	for _, b := range layout.MiniBars {
		canvas.Rect(int(b.X), int(b.Y), int(math.Max(b.Width, 1)), int(math.Max(b.Height, 1)), fmt.Sprintf("fill:%s", css(roleColor(b.Role))))
	}
	sel := layout.Selection
	canvas.Rect(int(sel.X), int(sel.Y), int(sel.W), int(sel.H),
		fmt.Sprintf("fill:%s;fill-opacity:0.25;stroke:%s;stroke-width:1", css(colorSelection), css(colorStroke)))

	canvas.End()
	_, err := w.Write(buf.Bytes())
	return err
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}
