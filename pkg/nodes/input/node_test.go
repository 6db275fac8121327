package input

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

type recordingEmitter struct {
	prompts  []string
	failWith error
}

func (e *recordingEmitter) EmitMessage(_ context.Context, _ string, _ string) error {
	return e.failWith
}

func (e *recordingEmitter) EmitPrompt(_ context.Context, _ string, text string) error {
	e.prompts = append(e.prompts, text)

	return e.failWith
}

func inputRequest() protocol.Request {
	return protocol.Request{
		Node: &models.Node{
			ID:   "ask-name",
			Type: models.NodeTypeInput,
			Data: map[string]any{
				"question":     "What is your name?",
				"variableName": "userName",
			},
		},
		Outgoing: []*models.Connection{
			{ID: "c1", SourceID: "ask-name", TargetID: "greet"},
		},
		Execution: &models.Execution{ID: "exec-1", ConversationID: "conv-1"},
	}
}

func TestInputFirstEntryPromptsAndSuspends(t *testing.T) {
	emitter := &recordingEmitter{}
	handler := NewHandler(emitter)

	outcome, err := handler.Process(context.Background(), inputRequest())

	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeSuspend, outcome.Kind)
	assert.Equal(t, []string{"What is your name?"}, emitter.prompts)
	assert.Empty(t, outcome.Updates)
}

func TestInputResumeStoresAnswerAndAdvances(t *testing.T) {
	handler := NewHandler(&recordingEmitter{})

	req := inputRequest()
	req.Input = "Ada"
	req.HasInput = true

	outcome, err := handler.Process(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvance, outcome.Kind)
	assert.Equal(t, "greet", outcome.NextNodeID)
	assert.Equal(t, map[string]any{"userName": "Ada"}, outcome.Updates)
}

func TestInputPromptFailureStillSuspends(t *testing.T) {
	emitter := &recordingEmitter{failWith: errors.New("channel down")}
	handler := NewHandler(emitter)

	outcome, err := handler.Process(context.Background(), inputRequest())

	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeSuspend, outcome.Kind)
}

func TestInputWithoutVariableNameFails(t *testing.T) {
	handler := NewHandler(&recordingEmitter{})

	req := inputRequest()
	req.Node.Data = map[string]any{"question": "Hm?"}

	_, err := handler.Process(context.Background(), req)

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindInvalidNodeData, engineErr.Kind)
}

func TestInputResumeWithoutConnectionFails(t *testing.T) {
	handler := NewHandler(&recordingEmitter{})

	req := inputRequest()
	req.Input = "Ada"
	req.HasInput = true
	req.Outgoing = nil

	_, err := handler.Process(context.Background(), req)

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindDeadEndNode, engineErr.Kind)
}
