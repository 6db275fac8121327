package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failure persisted on a failed execution. The set
// mirrors the engine's error taxonomy: validation kinds surface before an
// execution starts, runtime kinds stop a running execution.
type ErrorKind string

const (
	// Validation kinds.
	ErrorKindNoStartNode        ErrorKind = "no_start_node"
	ErrorKindMultipleStartNodes ErrorKind = "multiple_start_nodes"
	ErrorKindDuplicateNodeID    ErrorKind = "duplicate_node_id"
	ErrorKindDanglingConnection ErrorKind = "dangling_connection"
	ErrorKindDeadEndNode        ErrorKind = "dead_end_node"
	ErrorKindWorkflowInvalid    ErrorKind = "workflow_invalid"

	// Runtime kinds.
	ErrorKindInvalidNodeData     ErrorKind = "invalid_node_data"
	ErrorKindUnknownAction       ErrorKind = "unknown_action"
	ErrorKindIntegrationError    ErrorKind = "integration_error"
	ErrorKindNoMatchingBranch    ErrorKind = "no_matching_branch"
	ErrorKindInvalidExpression   ErrorKind = "invalid_expression"
	ErrorKindUnsupportedNodeType ErrorKind = "unsupported_node_type"
	ErrorKindMaxHopsExceeded     ErrorKind = "max_hops_exceeded"

	// Concurrency and caller kinds.
	ErrorKindConcurrentModification ErrorKind = "concurrent_modification"
	ErrorKindCancelledByCaller      ErrorKind = "cancelled_by_caller"
)

// EngineError is a node-attributed failure returned by node handlers and the
// controller. The controller persists it onto the execution before stopping.
type EngineError struct {
	Kind   ErrorKind
	NodeID string
	Detail string
	Err    error
}

func (e *EngineError) Error() string {
	msg := string(e.Kind)
	if e.NodeID != "" {
		msg = fmt.Sprintf("%s (node %s)", msg, e.NodeID)
	}

	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a node-attributed engine failure.
func NewEngineError(kind ErrorKind, nodeID, format string, args ...any) *EngineError {
	return &EngineError{
		Kind:   kind,
		NodeID: nodeID,
		Detail: fmt.Sprintf(format, args...),
	}
}

// AsEngineError extracts an EngineError from err, reporting false for plain
// errors.
func AsEngineError(err error) (*EngineError, bool) {
	if err == nil {
		return nil, false
	}

	var engineErr *EngineError

	ok := errors.As(err, &engineErr)

	return engineErr, ok
}
