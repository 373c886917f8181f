package timeline

import (
	"github.com/vanderheijden86/incidentline/pkg/model"
)

// Row is one flattened tree node annotated with transient layout state. The
// source node is referenced, never modified.
type Row struct {
	Node   *model.AggregationNode `json:"node"`
	Depth  int                    `json:"depth"`
	Parent int                    `json:"parent"` // index of the parent row, -1 for top level
	IsShow bool                   `json:"is_show"`
	IsDraw bool                   `json:"is_draw"`
	HasBar bool                   `json:"has_bar"`
	Bar    Extent                 `json:"bar"`
}

// IsRoot reports whether the row is the detected root cause.
func (r Row) IsRoot() bool { return r.Node != nil && r.Node.IsRoot }

// IsFeedbackRoot reports whether the row was flagged as root cause by a user.
func (r Row) IsFeedbackRoot() bool { return r.Node != nil && r.Node.IsFeedbackRoot }

// OpenFunc reports whether a branch is expanded. A nil OpenFunc uses the
// node's own IsOpen flag.
type OpenFunc func(n *model.AggregationNode) bool

// Flatten walks the tree depth-first in source order. Top level rows are
// always shown; a child is shown when its parent is shown and open. Status
// rows and open branches are not drawn.
func Flatten(tree []*model.AggregationNode, open OpenFunc) []Row {
	if open == nil {
		open = func(n *model.AggregationNode) bool { return n.IsOpen }
	}
	var rows []Row
	var visit func(nodes []*model.AggregationNode, depth, parent int, shown bool)
	visit = func(nodes []*model.AggregationNode, depth, parent int, shown bool) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			idx := len(rows)
			expanded := n.HasChildren() && open(n)
			rows = append(rows, Row{
				Node:   n,
				Depth:  depth,
				Parent: parent,
				IsShow: shown,
				IsDraw: !n.IsStatusRow() && !expanded,
			})
			if n.HasChildren() {
				visit(n.Children, depth+1, idx, shown && expanded)
			}
		}
	}
	visit(tree, 0, -1, true)
	return rows
}

// PositionRows computes bar extents for every shown, drawable row. The input
// slice is not modified.
func PositionRows(rows []Row, m *Mapper, now int64) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	for i := range out {
		r := &out[i]
		r.HasBar = false
		r.Bar = Extent{}
		if !r.IsShow || !r.IsDraw || m == nil {
			continue
		}
		r.Bar, r.HasBar = m.BarExtent(r.Node.BeginTime, r.Node.EndTime, now)
	}
	return out
}

// ShownRows returns only the rows currently visible.
func ShownRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.IsShow {
			out = append(out, r)
		}
	}
	return out
}
