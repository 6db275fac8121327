// Package integration provides the node that calls an external integration.
package integration

import (
	"context"
	"time"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// DefaultTimeout bounds a single integration call unless the handler is
// configured otherwise.
const DefaultTimeout = 30 * time.Second

// Handler invokes an external integration with the named input variables.
// Failures and timeouts route to onErrorNodeId when configured and fail the
// execution otherwise.
type Handler struct {
	invoker protocol.IntegrationInvoker
	timeout time.Duration
}

// NewHandler creates an integration node handler backed by the given
// invoker. A timeout of zero selects DefaultTimeout.
func NewHandler(invoker protocol.IntegrationInvoker, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Handler{
		invoker: invoker,
		timeout: timeout,
	}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeIntegration
}

// DataSchema returns the JSON schema for integration node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "Name of the integration to invoke",
				"minLength":   1,
			},
			"inputVariables": map[string]any{
				"type":        "array",
				"description": "Execution variables passed to the integration by name",
				"items":       map[string]any{"type": "string"},
			},
			"outputVariable": map[string]any{
				"type":        "string",
				"description": "Variable that receives the integration result",
			},
			"onErrorNodeId": map[string]any{
				"type":        "string",
				"description": "Node to route to when the integration fails or times out",
			},
		},
		"required": []string{"action"},
	}
}

// Process invokes the integration and advances, routing to the error node on
// failure when one is configured.
func (h *Handler) Process(ctx context.Context, req protocol.Request) (protocol.Outcome, error) {
	if len(req.Outgoing) == 0 {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindDeadEndNode, req.Node.ID, "integration node has no outgoing connection")
	}

	name, ok := req.Node.DataString("action")
	if !ok || name == "" {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "integration node has no action name")
	}

	result, err := h.invoker.Invoke(ctx, name, collectInputs(req.Node, req.Execution), h.timeout)
	if err != nil {
		if errorTarget, ok := req.Node.DataString("onErrorNodeId"); ok && errorTarget != "" {
			return protocol.Advance(errorTarget), nil
		}

		engineErr := models.NewEngineError(models.ErrorKindIntegrationError, req.Node.ID, "integration %q failed", name)
		engineErr.Err = err

		return protocol.Outcome{}, engineErr
	}

	next := req.Outgoing[0].TargetID

	if output, ok := req.Node.DataString("outputVariable"); ok && output != "" {
		return protocol.AdvanceWith(next, map[string]any{output: result}), nil
	}

	return protocol.Advance(next), nil
}

func collectInputs(node *models.Node, execution *models.Execution) map[string]any {
	inputs := make(map[string]any)

	names, ok := node.DataStrings("inputVariables")
	if !ok {
		return inputs
	}

	for _, name := range names {
		if execution.Variables != nil {
			inputs[name] = execution.Variables[name]
		} else {
			inputs[name] = nil
		}
	}

	return inputs
}
