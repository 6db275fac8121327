// Package condition provides the branching node of a conversation workflow.
package condition

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

// Evaluator decides whether a boolean expression holds for the given
// variables.
type Evaluator interface {
	Evaluate(expression string, variables map[string]any) (bool, error)
}

// Handler picks one outgoing connection. With an inline condition the first
// connection is the true branch and the second the false branch. Without one,
// connection conditions are tried in declaration order and a trailing
// connection without a condition acts as the default branch.
type Handler struct {
	evaluator Evaluator
}

// NewHandler creates a condition node handler using the given evaluator.
func NewHandler(evaluator Evaluator) *Handler {
	return &Handler{evaluator: evaluator}
}

// Type returns the node type.
func (h *Handler) Type() models.NodeType {
	return models.NodeTypeCondition
}

// DataSchema returns the JSON schema for condition node data.
func (h *Handler) DataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Boolean expression routing to the first connection when true, the second when false",
				"examples": []string{
					"score > 3",
					"user.plan == 'premium' && attempts < 3",
				},
			},
		},
	}
}

// Process evaluates the branch conditions and advances.
func (h *Handler) Process(_ context.Context, req protocol.Request) (protocol.Outcome, error) {
	if expression, ok := req.Node.DataString("condition"); ok && expression != "" {
		return h.processInline(req, expression)
	}

	return h.processConnections(req)
}

func (h *Handler) processInline(req protocol.Request, expression string) (protocol.Outcome, error) {
	holds, err := h.evaluator.Evaluate(expression, req.Execution.Variables)
	if err != nil {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidExpression, req.Node.ID, "condition %q: %v", expression, err)
	}

	branch := 0
	if !holds {
		branch = 1
	}

	if len(req.Outgoing) <= branch {
		return protocol.Outcome{}, models.NewEngineError(models.ErrorKindNoMatchingBranch, req.Node.ID,
			"condition %q evaluated to %t but no connection covers that branch", expression, holds)
	}

	return protocol.Advance(req.Outgoing[branch].TargetID), nil
}

func (h *Handler) processConnections(req protocol.Request) (protocol.Outcome, error) {
	for _, conn := range req.Outgoing {
		if !conn.HasCondition() {
			// Trailing default branch.
			return protocol.Advance(conn.TargetID), nil
		}

		holds, err := h.evaluator.Evaluate(conn.Condition, req.Execution.Variables)
		if err != nil {
			return protocol.Outcome{}, models.NewEngineError(models.ErrorKindInvalidExpression, req.Node.ID, "connection condition %q: %v", conn.Condition, err)
		}

		if holds {
			return protocol.Advance(conn.TargetID), nil
		}
	}

	return protocol.Outcome{}, models.NewEngineError(models.ErrorKindNoMatchingBranch, req.Node.ID, "no branch condition matched and no default branch exists")
}
