// Package telegram bridges conversations to Telegram chats. The
// conversation ID doubles as the Telegram chat ID.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/events"
	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/protocol"
)

// Emitter sends workflow output to Telegram chats.
type Emitter struct {
	bot    *bot.Bot
	logger *slog.Logger
}

var _ protocol.OutputEmitter = (*Emitter)(nil)

// NewEmitter creates an emitter on an existing bot instance.
func NewEmitter(b *bot.Bot) *Emitter {
	return &Emitter{
		bot:    b,
		logger: log.WithModule("emitter.telegram"),
	}
}

// EmitMessage sends the text to the chat named by conversationID.
func (e *Emitter) EmitMessage(ctx context.Context, conversationID, text string) error {
	_, err := e.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: conversationID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}

// EmitPrompt sends the question with a reply prompt so clients focus the
// input field.
func (e *Emitter) EmitPrompt(ctx context.Context, conversationID, text string) error {
	_, err := e.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: conversationID,
		Text:   text,
		ReplyMarkup: &tgmodels.ForceReply{
			ForceReply: true,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram prompt: %w", err)
	}

	return nil
}

// Gateway runs the inbound side: it long-polls Telegram and turns every
// incoming message into a conversation.user_replied event.
type Gateway struct {
	bot       *bot.Bot
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

// NewGateway creates the bot from the token and hooks incoming messages to
// the publisher.
func NewGateway(token string, publisher eventbus.EventPublisher) (*Gateway, error) {
	gw := &Gateway{
		publisher: publisher,
		logger:    log.WithModule("telegram.gateway"),
	}

	b, err := bot.New(token, bot.WithDefaultHandler(gw.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	gw.bot = b

	return gw, nil
}

// Bot exposes the underlying bot so an Emitter can share it.
func (g *Gateway) Bot() *bot.Bot {
	return g.bot
}

// Run long-polls until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	g.logger.InfoContext(ctx, "Starting Telegram long polling")
	g.bot.Start(ctx)
}

func (g *Gateway) handleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	conversationID := fmt.Sprintf("%d", update.Message.Chat.ID)

	base := events.NewBaseEvent(events.ConversationUserRepliedEvent, nil)
	base.ConversationID = conversationID

	event := events.ConversationUserReplied{
		BaseEvent: base,
		Text:      update.Message.Text,
	}

	if update.Message.From != nil {
		event.UserID = fmt.Sprintf("%d", update.Message.From.ID)
	}

	if err := g.publisher.Publish(ctx, conversationID, event); err != nil {
		g.logger.ErrorContext(ctx, "Failed to publish user reply",
			"conversation_id", conversationID,
			"error", err)
	}
}
