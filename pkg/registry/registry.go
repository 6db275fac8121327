// Package registry maps node types to their handlers and validates node
// data against each handler's schema.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/protocol"
)

type Registry struct {
	logger   *slog.Logger
	handlers map[models.NodeType]protocol.NodeHandler
}

func NewRegistry() *Registry {
	return &Registry{
		logger:   log.WithModule("registry"),
		handlers: make(map[models.NodeType]protocol.NodeHandler),
	}
}

// Register adds a handler under its node type, replacing any previous
// registration.
func (r *Registry) Register(handler protocol.NodeHandler) {
	r.handlers[handler.Type()] = handler
}

// HealthCheck reports whether node handlers are registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.handlers) == 0 {
		return "No node handlers registered", false
	}

	return fmt.Sprintf("%d node handlers registered", len(r.handlers)), true
}

// HandlerFor returns the handler for the node type.
func (r *Registry) HandlerFor(nodeType models.NodeType) (protocol.NodeHandler, error) {
	handler, ok := r.handlers[nodeType]
	if !ok {
		return nil, models.NewEngineError(models.ErrorKindUnsupportedNodeType, "", "node type %q not registered", nodeType)
	}

	return handler, nil
}

// Types returns the registered node types in sorted order.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.handlers))
	for nodeType := range r.handlers {
		types = append(types, nodeType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// ValidateNodeData checks data against the schema of the handler registered
// for nodeType. Unknown types return nil, the workflow validator reports
// those separately.
func (r *Registry) ValidateNodeData(nodeType models.NodeType, data map[string]any) []string {
	handler, ok := r.handlers[nodeType]
	if !ok {
		return nil
	}

	if data == nil {
		data = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(handler.DataSchema())
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		r.logger.Error("Node data schema validation errored", "node_type", nodeType, "error", err)

		return []string{err.Error()}
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		messages = append(messages, resultError.String())
	}

	return messages
}
