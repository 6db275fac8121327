package main

import (
	"context"
	"log/slog"

	"github.com/dialora/dialora/pkg/emitter/telegram"
	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/events"
)

// registerTelegramBridge wires the event bus to a Telegram bot: outbound
// conversation.message and conversation.prompt events are delivered to the
// chat, and incoming chat messages are published as
// conversation.user_replied. Handlers must be registered before the bus
// subscribes, so this runs before Worker.Start.
func registerTelegramBridge(ctx context.Context, eventBus eventbus.EventBus, token string, logger *slog.Logger) error {
	gateway, err := telegram.NewGateway(token, eventBus)
	if err != nil {
		return err
	}

	chatEmitter := telegram.NewEmitter(gateway.Bot())

	err = eventBus.Handle(events.ConversationMessageEvent, func(ctx context.Context, event any) error {
		msg, ok := event.(*events.ConversationMessage)
		if !ok {
			return nil
		}

		return chatEmitter.EmitMessage(ctx, msg.ConversationID, msg.Text)
	})
	if err != nil {
		return err
	}

	err = eventBus.Handle(events.ConversationPromptEvent, func(ctx context.Context, event any) error {
		prompt, ok := event.(*events.ConversationPrompt)
		if !ok {
			return nil
		}

		return chatEmitter.EmitPrompt(ctx, prompt.ConversationID, prompt.Text)
	})
	if err != nil {
		return err
	}

	go gateway.Run(ctx)

	logger.InfoContext(ctx, "Telegram bridge enabled")

	return nil
}
