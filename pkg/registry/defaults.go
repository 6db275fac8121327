package registry

import (
	"time"

	"github.com/dialora/dialora/pkg/nodes/action"
	"github.com/dialora/dialora/pkg/nodes/condition"
	"github.com/dialora/dialora/pkg/nodes/contextnode"
	"github.com/dialora/dialora/pkg/nodes/end"
	"github.com/dialora/dialora/pkg/nodes/input"
	"github.com/dialora/dialora/pkg/nodes/integration"
	"github.com/dialora/dialora/pkg/nodes/jump"
	"github.com/dialora/dialora/pkg/nodes/message"
	"github.com/dialora/dialora/pkg/nodes/start"
	"github.com/dialora/dialora/pkg/protocol"
)

// Collaborators carries the shared dependencies the default node handlers
// are built on.
type Collaborators struct {
	Emitter            protocol.OutputEmitter
	Evaluator          condition.Evaluator
	Actions            protocol.ActionTable
	Integrations       protocol.IntegrationInvoker
	IntegrationTimeout time.Duration
	Context            protocol.ContextStore
}

// RegisterDefaultHandlers registers a handler for every built-in node type.
func (r *Registry) RegisterDefaultHandlers(c Collaborators) {
	r.Register(start.NewHandler())
	r.Register(message.NewHandler(c.Emitter))
	r.Register(input.NewHandler(c.Emitter))
	r.Register(condition.NewHandler(c.Evaluator))
	r.Register(action.NewHandler(c.Actions))
	r.Register(integration.NewHandler(c.Integrations, c.IntegrationTimeout))
	r.Register(contextnode.NewHandler(c.Context))
	r.Register(jump.NewHandler())
	r.Register(end.NewHandler())
}
