package action

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

type recordingTable struct {
	lastName   string
	lastInputs map[string]any
	result     any
	err        error
}

func (tbl *recordingTable) Invoke(_ context.Context, name string, inputs map[string]any) (any, error) {
	tbl.lastName = name
	tbl.lastInputs = inputs

	return tbl.result, tbl.err
}

func actionRequest(data map[string]any, variables map[string]any) protocol.Request {
	return protocol.Request{
		Node: &models.Node{
			ID:   "build-greeting",
			Type: models.NodeTypeAction,
			Data: data,
		},
		Outgoing: []*models.Connection{
			{ID: "c1", SourceID: "build-greeting", TargetID: "send"},
		},
		Execution: &models.Execution{ID: "exec-1", Variables: variables},
	}
}

func TestActionInvokesAndStoresResult(t *testing.T) {
	table := &recordingTable{result: "HELLO"}
	handler := NewHandler(table)

	req := actionRequest(map[string]any{
		"action":         "uppercase",
		"inputVariables": []any{"greeting"},
		"outputVariable": "loudGreeting",
	}, map[string]any{"greeting": "hello", "noise": true})

	outcome, err := handler.Process(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvance, outcome.Kind)
	assert.Equal(t, "send", outcome.NextNodeID)
	assert.Equal(t, map[string]any{"loudGreeting": "HELLO"}, outcome.Updates)
	assert.Equal(t, "uppercase", table.lastName)
	assert.Equal(t, map[string]any{"greeting": "hello"}, table.lastInputs)
}

func TestActionMissingVariablePassedAsNil(t *testing.T) {
	table := &recordingTable{result: 0}
	handler := NewHandler(table)

	req := actionRequest(map[string]any{
		"action":         "length",
		"inputVariables": []any{"absent"},
	}, map[string]any{})

	_, err := handler.Process(context.Background(), req)

	require.NoError(t, err)
	require.Contains(t, table.lastInputs, "absent")
	assert.Nil(t, table.lastInputs["absent"])
}

func TestActionWithoutOutputVariableUpdatesNothing(t *testing.T) {
	table := &recordingTable{result: "ignored"}
	handler := NewHandler(table)

	outcome, err := handler.Process(context.Background(), actionRequest(map[string]any{"action": "now"}, nil))

	require.NoError(t, err)
	assert.Empty(t, outcome.Updates)
}

func TestActionUnknownNameFails(t *testing.T) {
	table := &recordingTable{err: fmt.Errorf("action %q: %w", "nope", protocol.ErrUnknownAction)}
	handler := NewHandler(table)

	_, err := handler.Process(context.Background(), actionRequest(map[string]any{"action": "nope"}, nil))

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindUnknownAction, engineErr.Kind)
	assert.Equal(t, "build-greeting", engineErr.NodeID)
}

func TestActionRuntimeFailureFails(t *testing.T) {
	cause := errors.New("not a number")
	table := &recordingTable{err: cause}
	handler := NewHandler(table)

	_, err := handler.Process(context.Background(), actionRequest(map[string]any{"action": "parseNumber"}, nil))

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindIntegrationError, engineErr.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestActionWithoutNameFails(t *testing.T) {
	handler := NewHandler(&recordingTable{})

	_, err := handler.Process(context.Background(), actionRequest(map[string]any{}, nil))

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindInvalidNodeData, engineErr.Kind)
}
