package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/actions"
	"github.com/dialora/dialora/pkg/contextstore"
	"github.com/dialora/dialora/pkg/expression"
	"github.com/dialora/dialora/pkg/integration"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

type silentEmitter struct{}

func (silentEmitter) EmitMessage(context.Context, string, string) error { return nil }
func (silentEmitter) EmitPrompt(context.Context, string, string) error  { return nil }

func defaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterDefaultHandlers(Collaborators{
		Emitter:   silentEmitter{},
		Evaluator: expression.NewEvaluator(),
		Actions:   actions.NewTable(),
		Integrations: integration.InvokerFunc(func(context.Context, string, map[string]any, time.Duration) (any, error) {
			return nil, nil
		}),
		Context: contextstore.NewMemoryStore(),
	})

	return r
}

func TestDefaultHandlersCoverEveryNodeType(t *testing.T) {
	r := defaultRegistry()

	for _, nodeType := range models.KnownNodeTypes {
		handler, err := r.HandlerFor(nodeType)

		require.NoError(t, err, "node type %s", nodeType)
		assert.Equal(t, nodeType, handler.Type())
	}

	assert.Len(t, r.Types(), len(models.KnownNodeTypes))
}

func TestHandlerForUnregisteredType(t *testing.T) {
	r := NewRegistry()

	_, err := r.HandlerFor(models.NodeTypeMessage)

	require.Error(t, err)

	engineErr, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrorKindUnsupportedNodeType, engineErr.Kind)
}

func TestRegisterReplacesHandler(t *testing.T) {
	r := defaultRegistry()

	replacement := &fakeHandler{nodeType: models.NodeTypeMessage}
	r.Register(replacement)

	handler, err := r.HandlerFor(models.NodeTypeMessage)
	require.NoError(t, err)
	assert.Same(t, protocol.NodeHandler(replacement), handler)
}

func TestValidateNodeData(t *testing.T) {
	r := defaultRegistry()

	tests := []struct {
		name     string
		nodeType models.NodeType
		data     map[string]any
		wantOK   bool
	}{
		{
			name:     "valid message",
			nodeType: models.NodeTypeMessage,
			data:     map[string]any{"message": "Hi!"},
			wantOK:   true,
		},
		{
			name:     "message missing text",
			nodeType: models.NodeTypeMessage,
			data:     map[string]any{},
			wantOK:   false,
		},
		{
			name:     "input missing variableName",
			nodeType: models.NodeTypeInput,
			data:     map[string]any{"question": "Name?"},
			wantOK:   false,
		},
		{
			name:     "context action outside enum",
			nodeType: models.NodeTypeContext,
			data:     map[string]any{"action": "merge", "key": "k", "variableName": "v"},
			wantOK:   false,
		},
		{
			name:     "valid integration",
			nodeType: models.NodeTypeIntegration,
			data:     map[string]any{"action": "calendar.book", "inputVariables": []any{"date"}},
			wantOK:   true,
		},
		{
			name:     "start with no data",
			nodeType: models.NodeTypeStart,
			data:     nil,
			wantOK:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			problems := r.ValidateNodeData(tc.nodeType, tc.data)

			if tc.wantOK {
				assert.Empty(t, problems)
			} else {
				assert.NotEmpty(t, problems)
			}
		})
	}
}

func TestValidateNodeDataUnknownTypeSkipped(t *testing.T) {
	r := defaultRegistry()

	assert.Nil(t, r.ValidateNodeData(models.NodeType("hologram"), map[string]any{}))
}

type fakeHandler struct {
	nodeType models.NodeType
}

func (h *fakeHandler) Type() models.NodeType { return h.nodeType }

func (h *fakeHandler) DataSchema() map[string]any { return map[string]any{"type": "object"} }

func (h *fakeHandler) Process(context.Context, protocol.Request) (protocol.Outcome, error) {
	return protocol.Complete(), nil
}
