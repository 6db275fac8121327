// Package emitter delivers workflow output to the user's conversation
// channel.
package emitter

import (
	"context"
	"log/slog"

	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/events"
	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/protocol"
)

// BusEmitter publishes conversation events on the event bus, leaving
// delivery to whichever channel adapter is subscribed.
type BusEmitter struct {
	publisher eventbus.EventPublisher
}

var _ protocol.OutputEmitter = (*BusEmitter)(nil)

// NewBusEmitter creates an emitter publishing on the given bus.
func NewBusEmitter(publisher eventbus.EventPublisher) *BusEmitter {
	return &BusEmitter{publisher: publisher}
}

// EmitMessage publishes a conversation.message event.
func (e *BusEmitter) EmitMessage(ctx context.Context, conversationID, text string) error {
	base := events.NewBaseEvent(events.ConversationMessageEvent, nil)
	base.ConversationID = conversationID

	return e.publisher.Publish(ctx, conversationID, events.ConversationMessage{
		BaseEvent: base,
		Text:      text,
	})
}

// EmitPrompt publishes a conversation.prompt event.
func (e *BusEmitter) EmitPrompt(ctx context.Context, conversationID, text string) error {
	base := events.NewBaseEvent(events.ConversationPromptEvent, nil)
	base.ConversationID = conversationID

	return e.publisher.Publish(ctx, conversationID, events.ConversationPrompt{
		BaseEvent: base,
		Text:      text,
	})
}

// LogEmitter writes conversation output to the log. Used in development and
// as a fallback when no channel adapter is configured.
type LogEmitter struct {
	logger *slog.Logger
}

var _ protocol.OutputEmitter = (*LogEmitter)(nil)

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: log.WithModule("emitter.log")}
}

// EmitMessage logs the message.
func (e *LogEmitter) EmitMessage(ctx context.Context, conversationID, text string) error {
	e.logger.InfoContext(ctx, "Message", "conversation_id", conversationID, "text", text)

	return nil
}

// EmitPrompt logs the prompt.
func (e *LogEmitter) EmitPrompt(ctx context.Context, conversationID, text string) error {
	e.logger.InfoContext(ctx, "Prompt", "conversation_id", conversationID, "text", text)

	return nil
}
