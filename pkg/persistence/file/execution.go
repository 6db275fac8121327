package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

// ExecutionRepository stores each execution as executions/<id>.json. The
// revision check reads the stored document before writing, which is safe
// within a single process only.
type ExecutionRepository struct {
	root string
}

// NewExecutionRepository creates an execution repository under root.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

func (er *ExecutionRepository) filePath(id string) string {
	return filepath.Clean(path.Join(er.dir(), id+".json"))
}

func (er *ExecutionRepository) write(execution *models.Execution) error {
	if err := os.MkdirAll(er.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	return os.WriteFile(er.filePath(execution.ID), data, 0600)
}

func (er *ExecutionRepository) read(id string) (*models.Execution, error) {
	body, err := os.ReadFile(er.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	var execution models.Execution
	if err := json.Unmarshal(body, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return &execution, nil
}

// Create writes a new execution document.
func (er *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	if _, err := os.Stat(er.filePath(execution.ID)); err == nil {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	if err := er.write(execution); err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

// Update overwrites the execution document after checking the stored
// revision matches the one the caller loaded.
func (er *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	current, err := er.read(execution.ID)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	if current.Revision != execution.Revision {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrConcurrentModification)
	}

	execution.Revision++
	execution.UpdatedAt = time.Now().UTC()

	if err := er.write(execution); err != nil {
		execution.Revision--

		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	return nil
}

// GetByID reads one execution document.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	execution, err := er.read(id)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

func (er *ExecutionRepository) list(match func(*models.Execution) bool) ([]*models.Execution, error) {
	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return []*models.Execution{}, nil
	}

	root := os.DirFS(er.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, file := range jsonFiles {
		execution, err := er.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if match(execution) {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})

	return executions, nil
}

// ListByConversation returns executions bound to the conversation.
func (er *ExecutionRepository) ListByConversation(_ context.Context, conversationID string) ([]*models.Execution, error) {
	executions, err := er.list(func(e *models.Execution) bool { return e.ConversationID == conversationID })
	if err != nil {
		return nil, persistence.NewExecutionError("ListByConversation", conversationID, err)
	}

	return executions, nil
}

// ListByWorkflow returns executions started from the workflow.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	executions, err := er.list(func(e *models.Execution) bool { return e.WorkflowID == workflowID })
	if err != nil {
		return nil, persistence.NewExecutionError("ListByWorkflow", workflowID, err)
	}

	return executions, nil
}

// ListByStatus returns executions currently in the given status.
func (er *ExecutionRepository) ListByStatus(_ context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	executions, err := er.list(func(e *models.Execution) bool { return e.Status == status })
	if err != nil {
		return nil, persistence.NewExecutionError("ListByStatus", string(status), err)
	}

	return executions, nil
}
