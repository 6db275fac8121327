package web

import "github.com/dialora/dialora/pkg/models"

// StartExecutionRequest represents the request body for starting a workflow
// execution. Variables seed the execution scope and chatbot_id overrides the
// workflow's own chatbot binding when set.
type StartExecutionRequest struct {
	WorkflowID     string         `json:"workflow_id"          validate:"required"`
	ChatbotID      string         `json:"chatbot_id,omitempty"`
	UserID         string         `json:"user_id"              validate:"required"`
	ConversationID string         `json:"conversation_id"      validate:"required"`
	Variables      map[string]any `json:"variables,omitempty"`
}

// ResumeExecutionRequest carries the user's reply into an execution that is
// waiting for input. Input may be any JSON value, including null.
type ResumeExecutionRequest struct {
	Input any `json:"input"`
}

// CancelExecutionRequest represents the request body for cancelling an
// execution. The body is optional; an empty reason gets a default.
type CancelExecutionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ExecutionListResponse wraps a conversation's executions with a total count.
type ExecutionListResponse struct {
	Executions []*models.Execution `json:"executions"`
	TotalCount int                 `json:"total_count"`
}
