// Package memory provides the in-memory persistence used in tests and
// single-process deployments. All reads and writes go through JSON deep
// copies so callers never share state with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

// Persistence keeps workflows and executions in process memory.
type Persistence struct {
	mu         sync.RWMutex
	executions map[string]*models.Execution
	workflows  map[string]map[int]*models.Workflow
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		executions: make(map[string]*models.Execution),
		workflows:  make(map[string]map[int]*models.Workflow),
	}
}

// ExecutionRepository returns the execution repository.
func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return (*executionRepository)(p)
}

// WorkflowRepository returns the workflow repository.
func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return (*workflowRepository)(p)
}

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close discards all stored state.
func (p *Persistence) Close(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.executions = make(map[string]*models.Execution)
	p.workflows = make(map[string]map[int]*models.Workflow)

	return nil
}

func cloneExecution(execution *models.Execution) (*models.Execution, error) {
	data, err := json.Marshal(execution)
	if err != nil {
		return nil, fmt.Errorf("failed to copy execution: %w", err)
	}

	var clone models.Execution
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to copy execution: %w", err)
	}

	return &clone, nil
}

func cloneWorkflow(workflow *models.Workflow) (*models.Workflow, error) {
	data, err := json.Marshal(workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to copy workflow: %w", err)
	}

	var clone models.Workflow
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to copy workflow: %w", err)
	}

	return &clone, nil
}

type executionRepository Persistence

func (r *executionRepository) Create(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executions[execution.ID]; exists {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	stored, err := cloneExecution(execution)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	r.executions[execution.ID] = stored

	return nil
}

func (r *executionRepository) Update(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.executions[execution.ID]
	if !exists {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	if current.Revision != execution.Revision {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrConcurrentModification)
	}

	execution.Revision++
	execution.UpdatedAt = time.Now().UTC()

	stored, err := cloneExecution(execution)
	if err != nil {
		execution.Revision--

		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	r.executions[execution.ID] = stored

	return nil
}

func (r *executionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.executions[id]
	if !exists {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	clone, err := cloneExecution(stored)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return clone, nil
}

func (r *executionRepository) list(match func(*models.Execution) bool) ([]*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Execution, 0)

	for _, stored := range r.executions {
		if !match(stored) {
			continue
		}

		clone, err := cloneExecution(stored)
		if err != nil {
			return nil, err
		}

		result = append(result, clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *executionRepository) ListByConversation(_ context.Context, conversationID string) ([]*models.Execution, error) {
	return r.list(func(e *models.Execution) bool { return e.ConversationID == conversationID })
}

func (r *executionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	return r.list(func(e *models.Execution) bool { return e.WorkflowID == workflowID })
}

func (r *executionRepository) ListByStatus(_ context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	return r.list(func(e *models.Execution) bool { return e.Status == status })
}

type workflowRepository Persistence

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	stored, err := cloneWorkflow(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	versions, exists := r.workflows[workflow.ID]
	if !exists {
		versions = make(map[int]*models.Workflow)
		r.workflows[workflow.ID] = versions
	}

	versions[workflow.Version] = stored

	return nil
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, exists := r.workflows[id]
	if !exists || len(versions) == 0 {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	latest := 0
	for version := range versions {
		if version > latest {
			latest = version
		}
	}

	clone, err := cloneWorkflow(versions[latest])
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return clone, nil
}

func (r *workflowRepository) GetByIDAndVersion(_ context.Context, id string, version int) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, exists := r.workflows[id]
	if !exists {
		return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, persistence.ErrWorkflowNotFound)
	}

	stored, exists := versions[version]
	if !exists {
		return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, persistence.ErrWorkflowNotFound)
	}

	clone, err := cloneWorkflow(stored)
	if err != nil {
		return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, err)
	}

	return clone, nil
}

func (r *workflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Workflow, 0, len(r.workflows))

	for id := range r.workflows {
		versions := r.workflows[id]

		latest := 0
		for version := range versions {
			if version > latest {
				latest = version
			}
		}

		clone, err := cloneWorkflow(versions[latest])
		if err != nil {
			return nil, persistence.NewWorkflowError("List", id, err)
		}

		result = append(result, clone)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}
