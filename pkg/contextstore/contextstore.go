// Package contextstore persists per-conversation context shared across
// executions. Context nodes read and write it through the
// protocol.ContextStore contract.
package contextstore

import (
	"context"
	"sync"

	"github.com/dialora/dialora/pkg/protocol"
)

// MemoryStore keeps conversation context in process memory. Intended for
// tests and single-node deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]any
}

var _ protocol.ContextStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory context store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]map[string]any),
	}
}

// Get returns the value stored for the conversation under key.
func (s *MemoryStore) Get(_ context.Context, conversationID, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.values[conversationID]
	if !ok {
		return nil, false, nil
	}

	value, ok := conversation[key]

	return value, ok, nil
}

// Set stores the value for the conversation under key.
func (s *MemoryStore) Set(_ context.Context, conversationID, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.values[conversationID]
	if !ok {
		conversation = make(map[string]any)
		s.values[conversationID] = conversation
	}

	conversation[key] = value

	return nil
}
