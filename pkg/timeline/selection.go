package timeline

import (
	"github.com/google/uuid"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

// Action is an operation an external dialog can perform on a selection.
type Action string

const (
	ActionAcknowledge   Action = "acknowledge"
	ActionDispatch      Action = "dispatch"
	ActionShield        Action = "shield"
	ActionManualProcess Action = "manual_process"
	ActionFeedbackRoot  Action = "feedback_root_cause"
)

// Label returns a human readable action name.
func (a Action) Label() string {
	switch a {
	case ActionAcknowledge:
		return "Acknowledge"
	case ActionDispatch:
		return "Dispatch"
	case ActionShield:
		return "Shield"
	case ActionManualProcess:
		return "Manual processing"
	case ActionFeedbackRoot:
		return "Mark as root cause"
	default:
		return string(a)
	}
}

// ActionsFor lists the actions applicable to a node. Status rows have none.
func ActionsFor(n *model.AggregationNode) []Action {
	if n == nil || n.IsStatusRow() {
		return nil
	}
	var actions []Action
	if n.Status.IsUnresolved() {
		actions = append(actions, ActionAcknowledge, ActionDispatch, ActionShield, ActionManualProcess)
	}
	if !n.IsFeedbackRoot {
		actions = append(actions, ActionFeedbackRoot)
	}
	return actions
}

// SelectionKind tells what was selected.
type SelectionKind string

const (
	SelectRow    SelectionKind = "row"
	SelectMarker SelectionKind = "marker"
)

// Selection is forwarded to whoever handles the action menu. It carries the
// originating data only; the engine does not know what the handler does.
type Selection struct {
	EventID  string                  `json:"event_id"`
	Kind     SelectionKind           `json:"kind"`
	Node     *model.AggregationNode  `json:"node,omitempty"`
	Records  []model.OperationRecord `json:"records,omitempty"`
	EntityID string                  `json:"entity_id,omitempty"`
	Actions  []Action                `json:"actions,omitempty"`
}

func newRowSelection(n *model.AggregationNode) Selection {
	return Selection{
		EventID:  uuid.NewString(),
		Kind:     SelectRow,
		Node:     n,
		EntityID: n.EntityID,
		Actions:  ActionsFor(n),
	}
}

// newMarkerSelection resolves the entity shared by every record, if any, so
// the actions of its alert apply.
func newMarkerSelection(c Cluster, tree []*model.AggregationNode) Selection {
	sel := Selection{
		EventID: uuid.NewString(),
		Kind:    SelectMarker,
		Records: append([]model.OperationRecord(nil), c.Members...),
	}
	entity := ""
	for i, r := range c.Members {
		if i == 0 {
			entity = r.RelatedEntityID
			continue
		}
		if r.RelatedEntityID != entity {
			entity = ""
			break
		}
	}
	if entity == "" {
		return sel
	}
	sel.EntityID = entity
	model.Walk(tree, func(n *model.AggregationNode, _ int) bool {
		if sel.Node != nil {
			return false
		}
		if n.EntityID == entity || n.ID == entity {
			sel.Node = n
			return false
		}
		return true
	})
	sel.Actions = ActionsFor(sel.Node)
	return sel
}
