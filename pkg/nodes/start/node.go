// Package start provides the entry node of a conversation workflow.
package start

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Handler marks where an execution begins and immediately hands control to
// the single outgoing connection.
type Handler struct{}

// NewHandler creates a start node handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeStart
}

// DataSchema returns the JSON schema for start node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Process advances to the first outgoing connection.
func (h *Handler) Process(_ context.Context, req protocol.Request) (protocol.Outcome, error) {
	if len(req.Outgoing) == 0 {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindDeadEndNode, req.Node.ID, "start node has no outgoing connection")
	}

	return protocol.Advance(req.Outgoing[0].TargetID), nil
}
