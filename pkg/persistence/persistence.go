// Package persistence defines the storage contracts for workflows and
// executions.
package persistence

import (
	"context"

	"github.com/dialora/dialora/pkg/models"
)

// ExecutionRepository stores execution state. Update enforces optimistic
// locking: an update carrying a stale revision fails with
// ErrConcurrentModification and the caller must reload.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	Update(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
	ListByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error)
}

// WorkflowRepository stores workflow definitions. Every (id, version) pair
// is immutable once saved, GetByID resolves to the highest version.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetByIDAndVersion(ctx context.Context, id string, version int) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
}

type Persistence interface {
	ExecutionRepository() ExecutionRepository
	WorkflowRepository() WorkflowRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
