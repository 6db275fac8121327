// Package action provides the node that runs a registered local action.
package action

import (
	"context"
	"errors"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Handler gathers the named input variables, invokes the action and stores
// the result under outputVariable.
type Handler struct {
	actions protocol.ActionTable
}

// NewHandler creates an action node handler backed by the given table.
func NewHandler(actions protocol.ActionTable) *Handler {
	return &Handler{actions: actions}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeAction
}

// DataSchema returns the JSON schema for action node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "Name of the registered action to invoke",
				"minLength":   1,
			},
			"inputVariables": map[string]any{
				"type":        "array",
				"description": "Execution variables passed to the action by name",
				"items":       map[string]any{"type": "string"},
			},
			"outputVariable": map[string]any{
				"type":        "string",
				"description": "Variable that receives the action result",
			},
		},
		"required": []string{"action"},
	}
}

// Process invokes the action and advances to the first outgoing connection.
func (h *Handler) Process(ctx context.Context, req protocol.Request) (protocol.Outcome, error) {
	if len(req.Outgoing) == 0 {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindDeadEndNode, req.Node.ID, "action node has no outgoing connection")
	}

	name, ok := req.Node.DataString("action")
	if !ok || name == "" {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidNodeData, req.Node.ID, "action node has no action name")
	}

	result, err := h.actions.Invoke(ctx, name, collectInputs(req.Node, req.Execution))
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownAction) {
			return protocol.Outcome{}, models.NewEngineError(models.ErrorKindUnknownAction, req.Node.ID, "action %q is not registered", name)
		}

		engineErr := models.NewEngineError(models.ErrorKindIntegrationError, req.Node.ID, "action %q failed", name)
		engineErr.Err = err

		return protocol.Outcome{}, engineErr
	}

	next := req.Outgoing[0].TargetID

	if output, ok := req.Node.DataString("outputVariable"); ok && output != "" {
		return protocol.AdvanceWith(next, map[string]any{output: result}), nil
	}

	return protocol.Advance(next), nil
}

// collectInputs resolves the node's inputVariables against the execution
// variables. Variables that are not set are passed as nil so actions can
// tell "missing" from "empty".
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
