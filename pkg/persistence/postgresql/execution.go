package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , workflow_id
  , workflow_version
  , chatbot_id
  , user_id
  , conversation_id
  , status
  , current_node_id
  , variables
  , history
  , hop_count
  , error
  , revision
  , created_at
  , updated_at
`

// Create inserts a new execution. An id that already exists fails with
// ErrExecutionAlreadyExists.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	variablesJSON, historyJSON, errorJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return persistence.NewExecutionError("create", execution.ID, err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, workflow_version, chatbot_id, user_id, conversation_id,
			status, current_node_id, variables, history, hop_count, error, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.WorkflowVersion,
		execution.ChatbotID,
		execution.UserID,
		execution.ConversationID,
		execution.Status,
		execution.CurrentNodeID,
		variablesJSON,
		historyJSON,
		execution.HopCount,
		errorJSON,
		execution.Revision,
		execution.CreatedAt,
		execution.UpdatedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("create", execution.ID, fmt.Errorf("failed to insert execution: %w", err))
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("create", execution.ID, fmt.Errorf("failed to get rows affected: %w", err))
	}

	if inserted == 0 {
		return persistence.NewExecutionError("create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	return nil
}

// Update persists an execution snapshot guarded by optimistic locking. The
// write succeeds only when the stored revision still matches the revision
// the caller loaded; on success the in-memory revision is bumped to match
// the stored one.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	variablesJSON, historyJSON, errorJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	now := time.Now().UTC()

	query := `
		UPDATE executions SET
			status = $3,
			current_node_id = $4,
			variables = $5,
			history = $6,
			hop_count = $7,
			error = $8,
			revision = revision + 1,
			updated_at = $9
		WHERE id = $1 AND revision = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Revision,
		execution.Status,
		execution.CurrentNodeID,
		variablesJSON,
		historyJSON,
		execution.HopCount,
		errorJSON,
		now,
	)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, fmt.Errorf("failed to update execution: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, fmt.Errorf("failed to get rows affected: %w", err))
	}

	if affected == 0 {
		var exists bool

		err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)", execution.ID).Scan(&exists)
		if err != nil {
			return persistence.NewExecutionError("update", execution.ID, fmt.Errorf("failed to check execution existence: %w", err))
		}

		if !exists {
			return persistence.NewExecutionError("update", execution.ID, persistence.ErrExecutionNotFound)
		}

		return persistence.NewExecutionError("update", execution.ID, persistence.ErrConcurrentModification)
	}

	execution.Revision++
	execution.UpdatedAt = now

	return nil
}

// GetByID returns an execution by its id.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	execution, err := r.scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("get", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("get", id, fmt.Errorf("failed to scan execution: %w", err))
	}

	return execution, nil
}

// ListByConversation returns the executions bound to one conversation,
// oldest first.
func (r *ExecutionRepository) ListByConversation(ctx context.Context, conversationID string) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE conversation_id = $1
		ORDER BY created_at
	`

	return r.queryExecutions(ctx, query, conversationID)
}

// ListByWorkflow returns the executions started against any version of the
// workflow, oldest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE workflow_id = $1
		ORDER BY created_at
	`

	return r.queryExecutions(ctx, query, workflowID)
}

// ListByStatus returns the executions currently in the given status, oldest
// first.
func (r *ExecutionRepository) ListByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = $1
		ORDER BY created_at
	`

	return r.queryExecutions(ctx, query, status)
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) scanExecution(scanner interface {
	Scan(dest ...any) error
}) (*models.Execution, error) {
	var (
		execution                             models.Execution
		variablesJSON, historyJSON, errorJSON []byte
	)

	err := scanner.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.WorkflowVersion,
		&execution.ChatbotID,
		&execution.UserID,
		&execution.ConversationID,
		&execution.Status,
		&execution.CurrentNodeID,
		&variablesJSON,
		&historyJSON,
		&execution.HopCount,
		&errorJSON,
		&execution.Revision,
		&execution.CreatedAt,
		&execution.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Variables = make(map[string]any)
	execution.History = []models.HistoryEntry{}

	if variablesJSON != nil {
		if err := json.Unmarshal(variablesJSON, &execution.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	if historyJSON != nil {
		if err := json.Unmarshal(historyJSON, &execution.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}

	if errorJSON != nil {
		if err := json.Unmarshal(errorJSON, &execution.Error); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error: %w", err)
		}
	}

	return &execution, nil
}

func marshalExecutionFields(execution *models.Execution) (variables, history, errorField []byte, err error) {
	variables, err = json.Marshal(execution.Variables)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	history, err = json.Marshal(execution.History)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	if execution.Error != nil {
		errorField, err = json.Marshal(execution.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal error: %w", err)
		}
	}

	return variables, history, errorField, nil
}
