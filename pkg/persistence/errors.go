// Package persistence provides standardized error types shared by all
// storage implementations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutionNotFound indicates no execution exists for the given ID.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionAlreadyExists indicates an execution with the same ID was
	// already created.
	ErrExecutionAlreadyExists = errors.New("execution already exists")

	// ErrConcurrentModification indicates an update carried a stale revision
	// because another writer saved the execution first.
	ErrConcurrentModification = errors.New("execution was modified concurrently")

	// ErrWorkflowNotFound indicates no workflow exists for the given ID or
	// version.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// ExecutionError wraps execution storage errors with operation context.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates an execution storage error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// WorkflowError wraps workflow storage errors with operation context.
type WorkflowError struct {
	Op         string
	WorkflowID string
	Version    int
	Err        error
}

func (e *WorkflowError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s operation failed for workflow %s version %d: %v", e.Op, e.WorkflowID, e.Version, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a workflow storage error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// NewWorkflowVersionError creates a workflow storage error for a specific
// version.
func NewWorkflowVersionError(op, workflowID string, version int, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Version:    version,
		Err:        err,
	}
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionAlreadyExists checks if an error indicates a duplicate create.
func IsExecutionAlreadyExists(err error) bool {
	return errors.Is(err, ErrExecutionAlreadyExists)
}

// IsConcurrentModification checks if an error indicates a stale revision.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
