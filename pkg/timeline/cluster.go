package timeline

import (
	"math"
	"sort"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

// Clustering defaults, in content pixels.
const (
	DefaultProximityPx     = 25.0
	DefaultMarkerSpacingPx = 35.0
)

// ClusterOptions tunes EventClusterer behaviour.
type ClusterOptions struct {
	// ProximityPx is the pixel gap under which adjacent timestamps merge.
	ProximityPx float64
	// MarkerSpacingPx is the width reserved per marker inside a tick.
	MarkerSpacingPx float64
}

// DefaultClusterOptions returns the stock tuning.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		ProximityPx:     DefaultProximityPx,
		MarkerSpacingPx: DefaultMarkerSpacingPx,
	}
}

func (o ClusterOptions) normalized() ClusterOptions {
	if o.ProximityPx <= 0 {
		o.ProximityPx = DefaultProximityPx
	}
	if o.MarkerSpacingPx <= 0 {
		o.MarkerSpacingPx = DefaultMarkerSpacingPx
	}
	return o
}

// MaxPerTick returns how many markers fit in one tick: one per spacing
// pixels, never fewer than one.
func MaxPerTick(tickWidth, spacing float64) int {
	if spacing <= 0 {
		spacing = DefaultMarkerSpacingPx
	}
	n := int(math.Floor(tickWidth / spacing))
	if n < 1 {
		n = 1
	}
	return n
}

// MarkerKind tells the renderer what a cluster displays.
type MarkerKind int

const (
	MarkerIcon MarkerKind = iota
	MarkerBadge
)

func (k MarkerKind) String() string {
	if k == MarkerBadge {
		return "badge"
	}
	return "icon"
}

// Icon names the glyph drawn for a single-record marker.
type Icon string

const (
	IconAlert       Icon = "alert"
	IconRecover     Icon = "recover"
	IconAcknowledge Icon = "acknowledge"
	IconDispatch    Icon = "dispatch"
	IconShield      Icon = "shield"
	IconManual      Icon = "manual"
	IconFeedback    Icon = "feedback"
	IconComment     Icon = "comment"
	IconSystem      Icon = "system"
	IconHuman       Icon = "human"
)

// IconFor picks the icon for a record's class and type.
func IconFor(class model.OperationClass, opType string) Icon {
	switch opType {
	case model.OpAlert:
		return IconAlert
	case model.OpRecover:
		return IconRecover
	case model.OpAcknowledge:
		return IconAcknowledge
	case model.OpDispatch:
		return IconDispatch
	case model.OpShield:
		return IconShield
	case model.OpManual:
		return IconManual
	case model.OpFeedback:
		return IconFeedback
	case model.OpComment:
		return IconComment
	}
	if class == model.ClassHuman {
		return IconHuman
	}
	return IconSystem
}

// Marker describes how a cluster is drawn.
type Marker struct {
	Kind  MarkerKind `json:"kind"`
	Icon  Icon       `json:"icon,omitempty"`
	Count int        `json:"count"`
}

// Cluster is one visual marker: one or more records drawn together.
type Cluster struct {
	Members    []model.OperationRecord `json:"members"`
	Overflowed bool                    `json:"overflowed"`
	AnchorTick TickBoundary            `json:"anchor_tick"`
	TickIndex  int                     `json:"tick_index"`
	X          float64                 `json:"x"`
}

// Size returns the member count.
func (c Cluster) Size() int {
	return len(c.Members)
}

// Start returns the earliest member timestamp.
func (c Cluster) Start() int64 {
	if len(c.Members) == 0 {
		return 0
	}
	return c.Members[0].CreateTime
}

// Marker returns the display descriptor: an icon for a lone record, a count
// badge for merged or overflow clusters.
func (c Cluster) Marker() Marker {
	if len(c.Members) == 1 && !c.Overflowed {
		r := c.Members[0]
		return Marker{Kind: MarkerIcon, Icon: IconFor(r.OperationClass, r.OperationType), Count: 1}
	}
	return Marker{Kind: MarkerBadge, Count: len(c.Members)}
}

// Buckets maps a tick index to its clusters, ordered by time.
type Buckets map[int][]Cluster

// Indices returns the populated tick indices in ascending order.
func (b Buckets) Indices() []int {
	idx := make([]int, 0, len(b))
	for i := range b {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// MarkerCount returns the total number of markers across all ticks.
func (b Buckets) MarkerCount() int {
	n := 0
	for _, cs := range b {
		n += len(cs)
	}
	return n
}

// Members returns every clustered record, in tick then marker order.
func (b Buckets) Members() []model.OperationRecord {
	var out []model.OperationRecord
	for _, i := range b.Indices() {
		for _, c := range b[i] {
			out = append(out, c.Members...)
		}
	}
	return out
}

// NearestTick returns the index of the boundary closest to t. Midpoints
// between consecutive boundaries are the decision thresholds; a time exactly
// on a midpoint belongs to the earlier boundary.
func NearestTick(t float64, ticks []TickBoundary) int {
	n := len(ticks)
	if n == 0 {
		return -1
	}
	return sort.Search(n-1, func(i int) bool {
		return t <= (ticks[i].Timestamp+ticks[i+1].Timestamp)/2
	})
}

// ProximityThreshold converts the pixel proximity into seconds at the
// mapper's current scale.
func ProximityThreshold(m *Mapper, proximityPx float64) float64 {
	if m.Empty() || m.TickWidth() <= 0 {
		return 0
	}
	return proximityPx * m.Axis().SegmentDuration / m.TickWidth()
}

// ClusterRecords assigns every record to its nearest tick, merges records
// whose timestamps are within the proximity threshold of the previous group,
// and folds clusters beyond MaxPerTick into one overflow cluster per tick.
// Every input record appears in exactly one cluster.
func ClusterRecords(records []model.OperationRecord, m *Mapper, opts ClusterOptions) Buckets {
	buckets := make(Buckets)
	if m == nil || m.Empty() || len(records) == 0 {
		return buckets
	}
	opts = opts.normalized()
	ticks := m.Axis().Ticks

	assigned := make(map[int][]model.OperationRecord)
	for _, r := range records {
		i := NearestTick(float64(r.CreateTime), ticks)
		assigned[i] = append(assigned[i], r)
	}

	threshold := ProximityThreshold(m, opts.ProximityPx)
	maxPerTick := MaxPerTick(m.TickWidth(), opts.MarkerSpacingPx)

	for i, recs := range assigned {
		clusters := mergeAdjacent(recs, threshold)
		clusters = foldOverflow(clusters, maxPerTick)
		for j := range clusters {
			clusters[j].TickIndex = i
			clusters[j].AnchorTick = ticks[i]
			clusters[j].X = m.TimeToX(float64(clusters[j].Start()))
		}
		buckets[i] = clusters
	}
	return buckets
}

// mergeAdjacent groups records by exact timestamp and chains groups whose gap
// to the previous group is within threshold seconds.
func mergeAdjacent(recs []model.OperationRecord, threshold float64) []Cluster {
	groups := make(map[int64][]model.OperationRecord)
	var stamps []int64
	for _, r := range recs {
		if _, ok := groups[r.CreateTime]; !ok {
			stamps = append(stamps, r.CreateTime)
		}
		groups[r.CreateTime] = append(groups[r.CreateTime], r)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	var clusters []Cluster
	for k, ts := range stamps {
		if k > 0 && float64(ts-stamps[k-1]) <= threshold {
			last := &clusters[len(clusters)-1]
			last.Members = append(last.Members, groups[ts]...)
			continue
		}
		members := make([]model.OperationRecord, len(groups[ts]))
		copy(members, groups[ts])
		clusters = append(clusters, Cluster{Members: members})
	}
	return clusters
}

// foldOverflow keeps the first max-1 clusters and merges the rest into one
// overflow cluster when there are more than max.
func foldOverflow(clusters []Cluster, max int) []Cluster {
	if len(clusters) <= max {
		return clusters
	}
	keep := clusters[:max-1]
	overflow := Cluster{Overflowed: true}
	for _, c := range clusters[max-1:] {
		overflow.Members = append(overflow.Members, c.Members...)
	}
	out := make([]Cluster, 0, max)
	out = append(out, keep...)
	return append(out, overflow)
}
