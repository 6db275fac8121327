// Package message provides the node that sends a text message to the user.
package message

import (
	"context"
	"log/slog"

	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Handler delivers the configured message through the output emitter and
// advances. Delivery problems are logged but never stop the conversation.
type Handler struct {
	emitter protocol.OutputEmitter
	logger  *slog.Logger
}

// NewHandler creates a message node handler backed by the given emitter.
func NewHandler(emitter protocol.OutputEmitter) *Handler {
	return &Handler{
		emitter: emitter,
		logger:  log.WithModule("nodes.message"),
	}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeMessage
}

// DataSchema returns the JSON schema for message node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Text sent to the user. Supports interpolation with {{variable}} tokens",
				"examples": []string{
					"Hi {{userName}}!",
					"Your score is {{user.score}}",
				},
			},
		},
		"required": []string{"message"},
	}
}

// Process emits the message and advances to the first outgoing connection.
func (h *Handler) Process(ctx context.Context, req protocol.Request) (protocol.Outcome, error) {
	if len(req.Outgoing) == 0 {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindDeadEndNode, req.Node.ID, "message node has no outgoing connection")
	}

	text, ok := req.Node.DataString("message")
	if !ok {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "message node has no message text")
	}

	if err := h.emitter.EmitMessage(ctx, req.Execution.ConversationID, text); err != nil {
		h.logger.ErrorContext(ctx, "Failed to emit message",
			"node_id", req.Node.ID,
			"conversation_id", req.Execution.ConversationID,
			"error", err)
	}

	return protocol.Advance(req.Outgoing[0].TargetID), nil
}
