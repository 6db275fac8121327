// Package end provides the terminal node of a conversation workflow.
package end

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Handler completes the execution. End nodes carry no data and need no
// outgoing connections.
type Handler struct{}

// NewHandler creates an end node handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeEnd
}

// DataSchema returns the JSON schema for end node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Process marks the execution as completed.
func (h *Handler) Process(_ context.Context, _ protocol.Request) (protocol.Outcome, error) {
	return protocol.Complete(), nil
}
