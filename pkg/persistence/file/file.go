// Package file provides file-based persistence. Workflows and executions
// are stored as JSON documents under a root directory. Suited to
// development and single-process deployments.
package file

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/dialora/dialora/pkg/persistence"
)

var errUnsafeID = errors.New("identifier contains path separators")

// Persistence stores workflows and executions under a root directory.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence creates a file persistence layer rooted at the given
// directory. A file:// prefix is stripped so the root can come straight
// from a persistence URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
	}
}

// WorkflowRepository returns the workflow repository.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// ExecutionRepository returns the execution repository.
func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// validateID rejects identifiers that would escape the storage directory
// when joined into a path.
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return errUnsafeID
	}

	return nil
}
