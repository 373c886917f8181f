package server

import (
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// sceneResponse flattens a scene for JSON. Rows reference nodes by id so
// subtrees are not repeated once per row.
type sceneResponse struct {
	Viewport        timeline.ViewportState `json:"viewport"`
	Ticks           []tickJSON             `json:"ticks"`
	Granularity     string                 `json:"granularity"`
	TickWidth       float64                `json:"tick_width"`
	PixelsPerSecond float64                `json:"pixels_per_second"`
	Rows            []rowJSON              `json:"rows"`
	Markers         []markerJSON           `json:"markers"`
	Minimap         timeline.Minimap       `json:"minimap"`
	Selection       timeline.SelectionRect `json:"selection"`
	Now             int64                  `json:"now"`
}

type tickJSON struct {
	Time  float64 `json:"time"`
	Label string  `json:"label"`
}

type rowJSON struct {
	ID     string           `json:"id"`
	Title  string           `json:"title,omitempty"`
	Depth  int              `json:"depth"`
	Shown  bool             `json:"shown"`
	Bar    *timeline.Extent `json:"bar,omitempty"`
	Role   string           `json:"role"`
	Status string           `json:"status,omitempty"`
}

type markerJSON struct {
	Tick      int      `json:"tick"`
	X         float64  `json:"x"`
	Kind      string   `json:"kind"`
	Icon      string   `json:"icon,omitempty"`
	Count     int      `json:"count"`
	RecordIDs []string `json:"record_ids"`
}

func newSceneResponse(s timeline.Scene) sceneResponse {
	resp := sceneResponse{
		Viewport:        s.Viewport,
		Granularity:     s.Axis.Granularity.String(),
		TickWidth:       s.TickWidth,
		PixelsPerSecond: s.PixelsPerSecond,
		Minimap:         s.Minimap,
		Selection:       s.Selection,
		Now:             s.Now,
		Ticks:           make([]tickJSON, 0, len(s.Axis.Ticks)),
		Rows:            make([]rowJSON, 0, len(s.Rows)),
		Markers:         make([]markerJSON, 0, s.Buckets.MarkerCount()),
	}
	for _, t := range s.Axis.Ticks {
		resp.Ticks = append(resp.Ticks, tickJSON{Time: t.Timestamp, Label: t.Label})
	}
	for _, r := range s.Rows {
		row := rowJSON{
			ID:     r.Node.ID,
			Title:  r.Node.Title,
			Depth:  r.Depth,
			Shown:  r.IsShow,
			Role:   timeline.RoleFor(r.Node).String(),
			Status: string(r.Node.Status),
		}
		if r.HasBar {
			bar := r.Bar
			row.Bar = &bar
		}
		resp.Rows = append(resp.Rows, row)
	}
	for _, idx := range s.Buckets.Indices() {
		for _, cl := range s.Buckets[idx] {
			m := cl.Marker()
			ids := make([]string, len(cl.Members))
			for i, rec := range cl.Members {
				ids[i] = rec.ID
			}
			resp.Markers = append(resp.Markers, markerJSON{
				Tick:      idx,
				X:         cl.X,
				Kind:      m.Kind.String(),
				Icon:      string(m.Icon),
				Count:     m.Count,
				RecordIDs: ids,
			})
		}
	}
	return resp
}
