// Package input provides the node that asks the user a question and waits
// for the answer.
package input

import (
	"context"
	"log/slog"

	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Handler prompts on first entry and suspends the execution. When the
// execution is resumed with user input, the answer is stored under
// variableName and control moves to the next node.
type Handler struct {
	emitter protocol.OutputEmitter
	logger  *slog.Logger
}

// NewHandler creates an input node handler backed by the given emitter.
func NewHandler(emitter protocol.OutputEmitter) *Handler {
	return &Handler{
		emitter: emitter,
		logger:  log.WithModule("nodes.input"),
	}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeInput
}

// DataSchema returns the JSON schema for input node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "Prompt sent to the user. Supports interpolation with {{variable}} tokens",
			},
			"variableName": map[string]any{
				"type":        "string",
				"description": "Variable that receives the user's answer",
				"minLength":   1,
			},
		},
		"required": []string{"question", "variableName"},
	}
}

// Process prompts and suspends, or consumes the delivered input.
func (h *Handler) Process(ctx context.Context, req protocol.Request) (protocol.Outcome, error) {
	variableName, ok := req.Node.DataString("variableName")
	if !ok || variableName == "" {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "input node has no variableName")
	}

	if !req.HasInput {
		question, _ := req.Node.DataString("question")

		if err := h.emitter.EmitPrompt(ctx, req.Execution.ConversationID, question); err != nil {
			h.logger.ErrorContext(ctx, "Failed to emit prompt",
				"node_id", req.Node.ID,
				"conversation_id", req.Execution.ConversationID,
				"error", err)
		}

		return protocol.Suspend(), nil
	}

	if len(req.Outgoing) == 0 {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindDeadEndNode, req.Node.ID, "input node has no outgoing connection")
	}

	return protocol.AdvanceWith(req.Outgoing[0].TargetID, map[string]any{
		variableName: req.Input,
	}), nil
}
