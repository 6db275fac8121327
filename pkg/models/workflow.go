package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft   WorkflowStatus = "draft"   // Editable, not executable
	WorkflowStatusActive  WorkflowStatus = "active"  // Current version, executable
	WorkflowStatusRetired WorkflowStatus = "retired" // Historical, kept for pinned executions
)

// Workflow is an immutable, versioned directed graph of typed nodes
// describing one conversational flow. Running executions pin the version
// active when they started, so retired versions stay loadable.
type Workflow struct {
	ID          string         `json:"id"                 validate:"required"`
	Version     int            `json:"version"            validate:"min=1"`
	ChatbotID   string         `json:"chatbot_id"         validate:"required"`
	Name        string         `json:"name"               validate:"required,min=3"`
	Status      WorkflowStatus `json:"status"`
	Nodes       []*Node        `json:"nodes"`
	Connections []*Connection  `json:"connections"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// OutgoingConnections returns the connections leaving nodeID, preserving
// declaration order.
func (w *Workflow) OutgoingConnections(nodeID string) []*Connection {
	var out []*Connection

	for _, conn := range w.Connections {
		if conn.SourceID == nodeID {
			out = append(out, conn)
		}
	}

	return out
}

// StartNodes returns every node of type start. A valid workflow has exactly
// one; the validator reports anything else.
func (w *Workflow) StartNodes() []*Node {
	var starts []*Node

	for _, node := range w.Nodes {
		if node.Type == NodeTypeStart {
			starts = append(starts, node)
		}
	}

	return starts
}
