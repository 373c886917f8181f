// Package model defines the plain data the timeline engine consumes: operation
// records and the aggregated alert tree of an incident.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OperationClass distinguishes automated operations from human ones.
type OperationClass string

const (
	ClassSystem OperationClass = "system"
	ClassHuman  OperationClass = "human"
)

// IsValid returns true if the class is a recognized value.
func (c OperationClass) IsValid() bool {
	return c == ClassSystem || c == ClassHuman
}

// Well known operation types. Unknown types are allowed and render with a
// generic icon.
const (
	OpAlert       = "alert"
	OpRecover     = "recover"
	OpAcknowledge = "acknowledge"
	OpDispatch    = "dispatch"
	OpShield      = "shield"
	OpManual      = "manual"
	OpFeedback    = "feedback"
	OpComment     = "comment"
)

// OperationRecord is a single timestamped operation performed on an incident.
type OperationRecord struct {
	ID              string         `json:"id"`
	CreateTime      int64          `json:"create_time"`
	OperationType   string         `json:"operation_type"`
	OperationClass  OperationClass `json:"operation_class"`
	RelatedEntityID string         `json:"related_entity_id,omitempty"`
	Operator        string         `json:"operator,omitempty"`
	Content         string         `json:"content,omitempty"`
}

// Time returns the record creation time.
func (r OperationRecord) Time() time.Time {
	return time.Unix(r.CreateTime, 0)
}

// Validate checks the record for structural problems.
func (r OperationRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record id cannot be empty")
	}
	if r.CreateTime < 0 {
		return fmt.Errorf("record %s: negative create_time %d", r.ID, r.CreateTime)
	}
	if r.OperationClass != "" && !r.OperationClass.IsValid() {
		return fmt.Errorf("record %s: invalid operation_class %q", r.ID, r.OperationClass)
	}
	return nil
}

// LevelStatus is the level name of pure grouping rows. Such rows are listed
// but never drawn as bars.
const LevelStatus = "status"

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusFiring     Status = "firing"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRecovered  Status = "recovered"
	StatusClosed     Status = "closed"
)

// IsRecovered returns true for states where the alert no longer needs attention.
func (s Status) IsRecovered() bool {
	return s == StatusRecovered || s == StatusClosed
}

// IsUnresolved returns true for states that still need attention.
func (s Status) IsUnresolved() bool {
	switch s {
	case StatusFiring, StatusPending, StatusProcessing:
		return true
	default:
		return false
	}
}

// AggregationNode is an alert or a group of alerts. A nil EndTime means the
// alert is still ongoing.
type AggregationNode struct {
	ID             string             `json:"id"`
	Title          string             `json:"title,omitempty"`
	LevelName      string             `json:"level_name"`
	BeginTime      int64              `json:"begin_time"`
	EndTime        *int64             `json:"end_time,omitempty"`
	Status         Status             `json:"status"`
	IsRoot         bool               `json:"is_root,omitempty"`
	IsFeedbackRoot bool               `json:"is_feedback_root,omitempty"`
	IsOpen         bool               `json:"is_open,omitempty"`
	EntityID       string             `json:"entity_id,omitempty"`
	Children       []*AggregationNode `json:"children,omitempty"`
}

// HasChildren returns true if the node is a branch.
func (n *AggregationNode) HasChildren() bool {
	return len(n.Children) > 0
}

// IsStatusRow returns true for pure grouping rows.
func (n *AggregationNode) IsStatusRow() bool {
	return n.LevelName == LevelStatus
}

// Drawable reports whether the node renders as a bar: status rows and
// expanded branches do not.
func (n *AggregationNode) Drawable() bool {
	return !n.IsStatusRow() && !(n.HasChildren() && n.IsOpen)
}

// EndOrNow returns the end time, substituting now for ongoing alerts.
func (n *AggregationNode) EndOrNow(now int64) int64 {
	if n.EndTime == nil {
		return now
	}
	return *n.EndTime
}

// Validate checks a single node (not its children).
func (n *AggregationNode) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return errors.New("node id cannot be empty")
	}
	if n.BeginTime < 0 {
		return fmt.Errorf("node %s: negative begin_time %d", n.ID, n.BeginTime)
	}
	if n.EndTime != nil && *n.EndTime < n.BeginTime {
		return fmt.Errorf("node %s: end_time %d before begin_time %d", n.ID, *n.EndTime, n.BeginTime)
	}
	return nil
}

// Walk visits every node depth-first in source order. Returning false from fn
// skips the node's children.
func Walk(tree []*AggregationNode, fn func(n *AggregationNode, depth int) bool) {
	var visit func(nodes []*AggregationNode, depth int)
	visit = func(nodes []*AggregationNode, depth int) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(tree, 0)
}

// FindNode returns the node with the given id, or nil.
func FindNode(tree []*AggregationNode, id string) *AggregationNode {
	var found *AggregationNode
	Walk(tree, func(n *AggregationNode, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Incident bundles everything the engine needs to draw one incident.
type Incident struct {
	ID      string             `json:"id"`
	Title   string             `json:"title,omitempty"`
	Records []OperationRecord  `json:"records"`
	Tree    []*AggregationNode `json:"tree"`
}

// Validate checks every record and node and joins the problems found.
func (inc *Incident) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(inc.Records))
	for _, r := range inc.Records {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("duplicate record id %s", r.ID))
		}
		seen[r.ID] = true
	}
	Walk(inc.Tree, func(n *AggregationNode, _ int) bool {
		if err := n.Validate(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// Times returns every timestamp the axis has to cover: record create times
// and node begin/end times, with ongoing nodes ending at now.
func (inc *Incident) Times(now int64) []int64 {
	times := make([]int64, 0, len(inc.Records)+2*len(inc.Tree))
	for _, r := range inc.Records {
		times = append(times, r.CreateTime)
	}
	Walk(inc.Tree, func(n *AggregationNode, _ int) bool {
		times = append(times, n.BeginTime, n.EndOrNow(now))
		return true
	})
	return times
}
