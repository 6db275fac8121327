package jump

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

func TestJumpAdvancesToTarget(t *testing.T) {
	handler := NewHandler()

	outcome, err := handler.Process(context.Background(), protocol.Request{
		Node: &models.Node{
			ID:   "jmp",
			Type: models.NodeTypeJump,
			Data: map[string]any{"targetNodeId": "checkout"},
		},
		Execution: &models.Execution{ID: "exec-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvance, outcome.Kind)
	assert.Equal(t, "checkout", outcome.NextNodeID)
}

func TestJumpWithoutTargetFails(t *testing.T) {
	handler := NewHandler()

	_, err := handler.Process(context.Background(), protocol.Request{
		Node:      &models.Node{ID: "jmp", Type: models.NodeTypeJump, Data: map[string]any{}},
		Execution: &models.Execution{ID: "exec-1"},
	})

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindInvalidNodeData, engineErr.Kind)
}
