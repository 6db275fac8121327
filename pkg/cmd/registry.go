// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dialora/dialora/pkg/actions"
	"github.com/dialora/dialora/pkg/contextstore"
	"github.com/dialora/dialora/pkg/emitter"
	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/integration"
	"github.com/dialora/dialora/pkg/protocol"
	"github.com/dialora/dialora/pkg/registry"
)

// NewRegistry builds the node handler registry from the given collaborators.
func NewRegistry(c registry.Collaborators) *registry.Registry {
	reg := registry.NewRegistry()
	reg.RegisterDefaultHandlers(c)

	return reg
}

// NewActionTable returns an action table with the built-in actions
// registered.
func NewActionTable() *actions.Table {
	table := actions.NewTable()
	actions.RegisterBuiltins(table)

	return table
}

// NewEmitter selects the conversation output emitter. The bus emitter is the
// production default, a gateway process delivers the published events to the
// user's channel. The log emitter prints instead, for local development.
func NewEmitter(provider string, publisher eventbus.EventPublisher) protocol.OutputEmitter {
	switch provider {
	case "log":
		return emitter.NewLogEmitter()
	default:
		return emitter.NewBusEmitter(publisher)
	}
}

// NewContextStore builds the conversation context store. Redis URLs select
// the Redis implementation, anything else the in-memory one.
func NewContextStore(ctx context.Context, url string, ttl time.Duration) protocol.ContextStore {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		store, err := contextstore.NewRedisStore(ctx, url, ttl)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis context store: %w", err))
		}

		return store
	}

	return contextstore.NewMemoryStore()
}

// NewIntegrationInvoker builds the HTTP invoker integration nodes call out
// through.
func NewIntegrationInvoker(gatewayURL string) protocol.IntegrationInvoker {
	return integration.NewHTTPInvoker(gatewayURL, nil)
}
