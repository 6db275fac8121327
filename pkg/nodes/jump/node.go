// Package jump provides the node that transfers control to an arbitrary node
// in the same workflow.
package jump

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Handler redirects the execution to the node named in targetNodeId. The
// target may be produced by interpolation, so existence is checked by the
// controller when it looks the node up, not here.
type Handler struct{}

// NewHandler creates a jump node handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeJump
}

// DataSchema returns the JSON schema for jump node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"targetNodeId": map[string]any{
				"type":        "string",
				"description": "ID of the node to jump to",
				"minLength":   1,
			},
		},
		"required": []string{"targetNodeId"},
	}
}

// Process advances to the configured target node.
func (h *Handler) Process(_ context.Context, req protocol.Request) (protocol.Outcome, error) {
	target, ok := req.Node.DataString("targetNodeId")
	if !ok || target == "" {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "jump node has no targetNodeId")
	}

	return protocol.Advance(target), nil
}
