// Package actions provides the registry of local actions invocable from
// action nodes.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/protocol"
)

// Func is a single action. Inputs are the execution variables collected by
// the action node, keyed by variable name.
type Func func(ctx context.Context, inputs map[string]any) (any, error)

// Table maps action names to functions. The zero value is not usable, use
// NewTable.
type Table struct {
	mu     sync.RWMutex
	funcs  map[string]Func
	logger *slog.Logger
}

// NewTable creates an empty action table.
func NewTable() *Table {
	return &Table{
		funcs:  make(map[string]Func),
		logger: log.WithModule("actions"),
	}
}

// Register adds an action under the given name, replacing any previous
// registration.
func (t *Table) Register(name string, fn Func) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.funcs[name] = fn
}

// Names returns the registered action names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Invoke runs the named action. Unregistered names return an error wrapping
// protocol.ErrUnknownAction.
func (t *Table) Invoke(ctx context.Context, name string, inputs map[string]any) (any, error) {
	t.mu.RLock()
	fn, ok := t.funcs[name]
	t.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action %q: %w", name, protocol.ErrUnknownAction)
	}

	t.logger.DebugContext(ctx, "Invoking action", "action", name)

	return fn(ctx, inputs)
}
