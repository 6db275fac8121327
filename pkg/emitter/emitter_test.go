package emitter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/events"
)

type capturingPublisher struct {
	keys   []string
	events []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, key string, event eventbus.Event) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)

	return nil
}

func TestBusEmitterPublishesMessageEvent(t *testing.T) {
	publisher := &capturingPublisher{}
	emitter := NewBusEmitter(publisher)

	err := emitter.EmitMessage(context.Background(), "conv-1", "Hi Ada!")

	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, []string{"conv-1"}, publisher.keys)

	message, ok := publisher.events[0].(events.ConversationMessage)
	require.True(t, ok)
	assert.Equal(t, "conv-1", message.ConversationID)
	assert.Equal(t, "Hi Ada!", message.Text)
	assert.Equal(t, events.ConversationMessageEvent, message.GetType())
}

func TestBusEmitterPublishesPromptEvent(t *testing.T) {
	publisher := &capturingPublisher{}
	emitter := NewBusEmitter(publisher)

	err := emitter.EmitPrompt(context.Background(), "conv-2", "What is your name?")

	require.NoError(t, err)
	require.Len(t, publisher.events, 1)

	prompt, ok := publisher.events[0].(events.ConversationPrompt)
	require.True(t, ok)
	assert.Equal(t, "conv-2", prompt.ConversationID)
	assert.Equal(t, "What is your name?", prompt.Text)
}

func TestLogEmitterNeverFails(t *testing.T) {
	emitter := NewLogEmitter()

	require.NoError(t, emitter.EmitMessage(context.Background(), "conv-1", "hello"))
	require.NoError(t, emitter.EmitPrompt(context.Background(), "conv-1", "name?"))
}
