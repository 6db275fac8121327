package condition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/expression"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

func inlineRequest(expr string, variables map[string]any) protocol.Request {
	return protocol.Request{
		Node: &models.Node{
			ID:   "check-score",
			Type: models.NodeTypeCondition,
			Data: map[string]any{"condition": expr},
		},
		Outgoing: []*models.Connection{
			{ID: "c1", SourceID: "check-score", TargetID: "high"},
			{ID: "c2", SourceID: "check-score", TargetID: "low"},
		},
		Execution: &models.Execution{ID: "exec-1", Variables: variables},
	}
}

func TestInlineConditionRoutesBranches(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	tests := []struct {
		name      string
		score     any
		wantLabel string
	}{
		{name: "true takes first connection", score: 5, wantLabel: "high"},
		{name: "false takes second connection", score: 1, wantLabel: "low"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := handler.Process(context.Background(), inlineRequest("score > 3", map[string]any{"score": tc.score}))

			require.NoError(t, err)
			assert.Equal(t, protocol.OutcomeAdvance, outcome.Kind)
			assert.Equal(t, tc.wantLabel, outcome.NextNodeID)
		})
	}
}

func TestInlineConditionMissingBranchFails(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	req := inlineRequest("score > 3", map[string]any{"score": 1})
	req.Outgoing = req.Outgoing[:1]

	_, err := handler.Process(context.Background(), req)

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindNoMatchingBranch, engineErr.Kind)
}

func TestInlineConditionInvalidExpressionFails(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	_, err := handler.Process(context.Background(), inlineRequest("score +", map[string]any{"score": 1}))

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindInvalidExpression, engineErr.Kind)
}

func TestConnectionConditionsPickFirstMatch(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	req := protocol.Request{
		Node: &models.Node{ID: "route", Type: models.NodeTypeCondition, Data: map[string]any{}},
		Outgoing: []*models.Connection{
			{ID: "c1", SourceID: "route", TargetID: "vip", Condition: "plan == 'premium'"},
			{ID: "c2", SourceID: "route", TargetID: "active", Condition: "visits > 10"},
			{ID: "c3", SourceID: "route", TargetID: "fallback"},
		},
		Execution: &models.Execution{ID: "exec-1", Variables: map[string]any{
			"plan":   "free",
			"visits": 42,
		}},
	}

	outcome, err := handler.Process(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "active", outcome.NextNodeID)
}

func TestConnectionConditionsFallToDefault(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	req := protocol.Request{
		Node: &models.Node{ID: "route", Type: models.NodeTypeCondition, Data: map[string]any{}},
		Outgoing: []*models.Connection{
			{ID: "c1", SourceID: "route", TargetID: "vip", Condition: "plan == 'premium'"},
			{ID: "c2", SourceID: "route", TargetID: "fallback"},
		},
		Execution: &models.Execution{ID: "exec-1", Variables: map[string]any{"plan": "free"}},
	}

	outcome, err := handler.Process(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "fallback", outcome.NextNodeID)
}

func TestConnectionConditionsNoMatchAndNoDefaultFails(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	req := protocol.Request{
		Node: &models.Node{ID: "route", Type: models.NodeTypeCondition, Data: map[string]any{}},
		Outgoing: []*models.Connection{
			{ID: "c1", SourceID: "route", TargetID: "vip", Condition: "plan == 'premium'"},
		},
		Execution: &models.Execution{ID: "exec-1", Variables: map[string]any{"plan": "free"}},
	}

	_, err := handler.Process(context.Background(), req)

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindNoMatchingBranch, engineErr.Kind)
	assert.Equal(t, "route", engineErr.NodeID)
}

func TestUndefinedVariableTakesFalseBranch(t *testing.T) {
	handler := NewHandler(expression.NewEvaluator())

	outcome, err := handler.Process(context.Background(), inlineRequest("score > 3", nil))

	require.NoError(t, err)
	assert.Equal(t, "low", outcome.NextNodeID)
}
