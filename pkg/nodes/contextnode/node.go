// Package contextnode provides the node that moves values between execution
// variables and the per-conversation context store.
package contextnode

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Context store operations.
const (
	ActionGet = "get"
	ActionSet = "set"
)

// Handler reads a context key into a variable or writes a variable out to
// the context store. A get on a missing key leaves the variable untouched.
type Handler struct {
	store protocol.ContextStore
}

// NewHandler creates a context node handler backed by the given store.
func NewHandler(store protocol.ContextStore) *Handler {
	return &Handler{store: store}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeContext
}

// DataSchema returns the JSON schema for context node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "Whether to read from or write to the conversation context",
				"enum":        []string{ActionGet, ActionSet},
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Context key",
				"minLength":   1,
			},
			"variableName": map[string]any{
				"type":        "string",
				"description": "Execution variable read from or written to",
				"minLength":   1,
			},
		},
		"required": []string{"action", "key", "variableName"},
	}
}

// Process performs the configured context operation and advances.
func (h *Handler) Process(ctx context.Context, req protocol.Request) (protocol.Outcome, error) {
	if len(req.Outgoing) == 0 {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindDeadEndNode, req.Node.ID, "context node has no outgoing connection")
	}

	action, _ := req.Node.DataString("action")

	key, ok := req.Node.DataString("key")
	if !ok || key == "" {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "context node has no key")
	}

	variableName, ok := req.Node.DataString("variableName")
	if !ok || variableName == "" {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "context node has no variableName")
	}

	next := req.Outgoing[0].TargetID

	switch action {
	case ActionGet:
		value, found, err := h.store.Get(ctx, req.Execution.ConversationID, key)
		if err != nil {
			engineErr := models.NewEngineError(models.ErrorKindIntegrationError, req.Node.ID, "context get %q failed", key)
			engineErr.Err = err

			return protocol.Outcome{}, engineErr
		}

		if !found {
			return protocol.Advance(next), nil
		}

		return protocol.AdvanceWith(next, map[string]any{variableName: value}), nil
	case ActionSet:
		var value any
		if req.Execution.Variables != nil {
			value = req.Execution.Variables[variableName]
		}

		if err := h.store.Set(ctx, req.Execution.ConversationID, key, value); err != nil {
			engineErr := models.NewEngineError(models.ErrorKindIntegrationError, req.Node.ID, "context set %q failed", key)
			engineErr.Err = err

			return protocol.Outcome{}, engineErr
		}

		return protocol.Advance(next), nil
	default:
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "unknown context action %q", action)
	}
}
