package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

// IncidentDiff represents differences between two loads of an incident,
// typically before and after a file change.
type IncidentDiff struct {
	// RecordsAdded contains record IDs present in the new incident only
	RecordsAdded []string
	// RecordsRemoved contains record IDs present in the old incident only
	RecordsRemoved []string
	// NodesAdded contains node IDs present in the new tree only
	NodesAdded []string
	// NodesRemoved contains node IDs present in the old tree only
	NodesRemoved []string
	// StatusChanged contains nodes whose status differs
	StatusChanged []StatusDifference
	// Ended contains nodes that were ongoing and now have an end time
	Ended []string
}

// StatusDifference represents a status change for a single node
type StatusDifference struct {
	ID     string       `json:"id"`
	Before model.Status `json:"before"`
	After  model.Status `json:"after"`
}

// HasChanges returns true if anything differs.
func (d IncidentDiff) HasChanges() bool {
	return len(d.RecordsAdded) > 0 || len(d.RecordsRemoved) > 0 ||
		len(d.NodesAdded) > 0 || len(d.NodesRemoved) > 0 ||
		len(d.StatusChanged) > 0 || len(d.Ended) > 0
}

// Summary returns a one line description suitable for a status bar.
func (d IncidentDiff) Summary() string {
	if !d.HasChanges() {
		return "no changes"
	}

	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(len(d.RecordsAdded), "new records")
	add(len(d.RecordsRemoved), "records removed")
	add(len(d.NodesAdded), "new alerts")
	add(len(d.NodesRemoved), "alerts removed")
	add(len(d.StatusChanged), "status changes")
	add(len(d.Ended), "ended")
	return strings.Join(parts, ", ")
}

// DiffIncidents compares two incidents. Either side may be nil.
func DiffIncidents(before, after *model.Incident) IncidentDiff {
	var d IncidentDiff

	oldRecs := recordIDs(before)
	newRecs := recordIDs(after)
	d.RecordsAdded = missingFrom(newRecs, oldRecs)
	d.RecordsRemoved = missingFrom(oldRecs, newRecs)

	oldNodes := nodeIndex(before)
	newNodes := nodeIndex(after)
	d.NodesAdded = missingFrom(keys(newNodes), keys(oldNodes))
	d.NodesRemoved = missingFrom(keys(oldNodes), keys(newNodes))

	for id, o := range oldNodes {
		n, ok := newNodes[id]
		if !ok {
			continue
		}
		if o.Status != n.Status {
			d.StatusChanged = append(d.StatusChanged, StatusDifference{ID: id, Before: o.Status, After: n.Status})
		}
		if o.EndTime == nil && n.EndTime != nil {
			d.Ended = append(d.Ended, id)
		}
	}
	sort.Slice(d.StatusChanged, func(i, j int) bool { return d.StatusChanged[i].ID < d.StatusChanged[j].ID })
	sort.Strings(d.Ended)
	return d
}

func recordIDs(inc *model.Incident) map[string]bool {
	out := make(map[string]bool)
	if inc == nil {
		return out
	}
	for _, r := range inc.Records {
		out[r.ID] = true
	}
	return out
}

func nodeIndex(inc *model.Incident) map[string]*model.AggregationNode {
	out := make(map[string]*model.AggregationNode)
	if inc == nil {
		return out
	}
	model.Walk(inc.Tree, func(n *model.AggregationNode, _ int) bool {
		out[n.ID] = n
		return true
	})
	return out
}

func keys(m map[string]*model.AggregationNode) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// missingFrom returns the sorted IDs of a that are not in b.
func missingFrom(a, b map[string]bool) []string {
	var out []string
	for id := range a {
		if !b[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
