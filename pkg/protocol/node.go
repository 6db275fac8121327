// Package protocol defines the contracts between the execution controller,
// the node handlers and their external collaborators.
package protocol

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
)

// Request carries everything a node handler may inspect: the node with its
// data already interpolated, the node's outgoing connections in declaration
// order, a read view of the execution, and the resume input when the
// controller re-enters a waiting input node.
type Request struct {
	Node      *models.Node
	Outgoing  []*models.Connection
	Execution *models.Execution

	// Input is only meaningful when HasInput is true: the controller sets
	// it on the resume step of an input node.
	Input    any
	HasInput bool
}

// OutcomeKind names a handler's transition decision.
type OutcomeKind string

const (
	OutcomeAdvance  OutcomeKind = "advance"
	OutcomeSuspend  OutcomeKind = "suspend"
	OutcomeComplete OutcomeKind = "complete"
)

// Outcome is the transition a node handler decided on. Handlers never
// mutate the execution directly; variable updates travel back here so the
// controller can apply and persist them atomically.
type Outcome struct {
	Kind       OutcomeKind
	NextNodeID string
	Updates    map[string]any
}

// Advance moves the execution to nextNodeID.
func Advance(nextNodeID string) Outcome {
	return Outcome{Kind: OutcomeAdvance, NextNodeID: nextNodeID}
}

// AdvanceWith moves the execution to nextNodeID and applies variable
// updates.
func AdvanceWith(nextNodeID string, updates map[string]any) Outcome {
	return Outcome{Kind: OutcomeAdvance, NextNodeID: nextNodeID, Updates: updates}
}

// Suspend pauses the execution pending external input. Only input nodes
// return this.
func Suspend() Outcome {
	return Outcome{Kind: OutcomeSuspend}
}

// SuspendWith pauses the execution and applies variable updates first.
func SuspendWith(updates map[string]any) Outcome {
	return Outcome{Kind: OutcomeSuspend, Updates: updates}
}

// Complete terminates the execution successfully.
func Complete() Outcome {
	return Outcome{Kind: OutcomeComplete}
}

// NodeHandler processes one node type. Handlers are pure functions of the
// request: re-entering the same node after a crash or resume produces the
// same decision, which is what makes persisted mid-drive snapshots safe.
type NodeHandler interface {
	// Type returns the node type this handler serves.
	Type() models.NodeType

	// DataSchema returns the JSON schema for the node's data payload.
	DataSchema() map[string]any

	// Process decides the transition for one node visit. Failed visits
	// return a *models.EngineError describing the failure kind.
	Process(ctx context.Context, req Request) (Outcome, error)
}
