package protocol

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownAction is returned by an ActionTable when no function is
// registered under the requested name.
var ErrUnknownAction = errors.New("action not registered")

// OutputEmitter delivers rendered bot output to the conversation's channel.
// Message and prompt are kept separate so channel adapters can render
// prompts with reply affordances.
type OutputEmitter interface {
	EmitMessage(ctx context.Context, conversationID, text string) error
	EmitPrompt(ctx context.Context, conversationID, text string) error
}

// ActionTable resolves and invokes named local functions for action nodes.
type ActionTable interface {
	Invoke(ctx context.Context, name string, inputs map[string]any) (any, error)
}

// IntegrationInvoker calls an out-of-process integration. Implementations
// must honor the timeout; the caller treats both errors and expirations as
// integration failures.
type IntegrationInvoker interface {
	Invoke(ctx context.Context, name string, inputs map[string]any, timeout time.Duration) (any, error)
}

// ContextStore is the conversation-scoped key value store behind context
// nodes.
type ContextStore interface {
	Get(ctx context.Context, conversationID, key string) (any, bool, error)
	Set(ctx context.Context, conversationID, key string, value any) error
}
