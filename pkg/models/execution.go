package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus defines the possible states of an execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning      ExecutionStatus = "running"
	ExecutionStatusWaitingInput ExecutionStatus = "waiting_input"
	ExecutionStatusCompleted    ExecutionStatus = "completed"
	ExecutionStatusFailed       ExecutionStatus = "failed"
)

// Terminal reports whether the status has no outgoing transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// HistoryEntry records one visit to a node.
type HistoryEntry struct {
	NodeID    string     `json:"node_id"`
	EnteredAt time.Time  `json:"entered_at"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`
}

// ExecutionError captures why an execution failed. Present only when the
// status is failed.
type ExecutionError struct {
	Kind    ErrorKind `json:"kind"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

// Execution is the mutable run-time instance of a workflow bound to one
// conversation. Revision implements optimistic locking: every update must
// carry the revision it loaded, and the store rejects stale writers.
type Execution struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	WorkflowVersion int             `json:"workflow_version"`
	ChatbotID       string          `json:"chatbot_id"`
	UserID          string          `json:"user_id"`
	ConversationID  string          `json:"conversation_id"`
	Status          ExecutionStatus `json:"status"`
	CurrentNodeID   string          `json:"current_node_id"`
	Variables       map[string]any  `json:"variables"`
	History         []HistoryEntry  `json:"history"`
	HopCount        int             `json:"hop_count"`
	Error           *ExecutionError `json:"error,omitempty"`
	Revision        int64           `json:"revision"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewExecution creates a running execution positioned at startNodeID,
// pinned to the workflow version it was started against.
func NewExecution(workflow *Workflow, startNodeID, userID, conversationID string, variables map[string]any) *Execution {
	now := time.Now().UTC()

	vars := make(map[string]any, len(variables))
	for name, value := range variables {
		vars[name] = value
	}

	return &Execution{
		ID:              uuid.New().String(),
		WorkflowID:      workflow.ID,
		WorkflowVersion: workflow.Version,
		ChatbotID:       workflow.ChatbotID,
		UserID:          userID,
		ConversationID:  conversationID,
		Status:          ExecutionStatusRunning,
		CurrentNodeID:   startNodeID,
		Variables:       vars,
		History:         []HistoryEntry{},
		Revision:        1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// EnterNode appends an open history entry for nodeID.
func (e *Execution) EnterNode(nodeID string, at time.Time) {
	e.History = append(e.History, HistoryEntry{NodeID: nodeID, EnteredAt: at})
}

// ExitNode closes the most recent open history entry.
func (e *Execution) ExitNode(at time.Time) {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].ExitedAt == nil {
			exited := at
			e.History[i].ExitedAt = &exited

			return
		}
	}
}

// SetVariable stores a value in the execution's variable context.
func (e *Execution) SetVariable(name string, value any) {
	if e.Variables == nil {
		e.Variables = make(map[string]any)
	}

	e.Variables[name] = value
}

// Fail transitions the execution to failed, preserving history and
// variables for diagnostics.
func (e *Execution) Fail(kind ErrorKind, nodeID, message string) {
	e.Status = ExecutionStatusFailed
	e.Error = &ExecutionError{Kind: kind, NodeID: nodeID, Message: message}
}

// Complete transitions the execution to completed.
func (e *Execution) Complete() {
	e.Status = ExecutionStatusCompleted
}
