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

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , version
  , chatbot_id
  , name
  , status
  , nodes
  , connections
  , metadata
  , created_at
  , updated_at
`

// Save stores one workflow version. Saving the same (id, version) pair again
// overwrites it wholesale, which keeps re-imports idempotent.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	nodesJSON, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal nodes: %w", err))
	}

	connectionsJSON, err := json.Marshal(workflow.Connections)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal connections: %w", err))
	}

	metadataJSON, err := json.Marshal(workflow.Metadata)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal metadata: %w", err))
	}

	query := `
		INSERT INTO workflows (id, version, chatbot_id, name, status, nodes, connections, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id, version) DO UPDATE SET
			chatbot_id = EXCLUDED.chatbot_id,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			nodes = EXCLUDED.nodes,
			connections = EXCLUDED.connections,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Version,
		workflow.ChatbotID,
		workflow.Name,
		workflow.Status,
		nodesJSON,
		connectionsJSON,
		metadataJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to save workflow: %w", err))
	}

	return nil
}

// GetByID returns the highest saved version of the workflow.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1
		ORDER BY version DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("get", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("get", id, fmt.Errorf("failed to scan workflow: %w", err))
	}

	return workflow, nil
}

// GetByIDAndVersion returns one pinned workflow version.
func (r *WorkflowRepository) GetByIDAndVersion(ctx context.Context, id string, version int) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND version = $2
	`

	row := r.db.QueryRowContext(ctx, query, id, version)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowVersionError("get", id, version, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowVersionError("get", id, version, fmt.Errorf("failed to scan workflow: %w", err))
	}

	return workflow, nil
}

// List returns the latest version of every workflow, ordered by id.
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	query := `
		SELECT DISTINCT ON (id) ` + workflowColumns + `
		FROM workflows
		ORDER BY id, version DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow                                 models.Workflow
		nodesJSON, connectionsJSON, metadataJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Version,
		&workflow.ChatbotID,
		&workflow.Name,
		&workflow.Status,
		&nodesJSON,
		&connectionsJSON,
		&metadataJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nodesJSON != nil {
		if err := json.Unmarshal(nodesJSON, &workflow.Nodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
		}
	}

	if connectionsJSON != nil {
		if err := json.Unmarshal(connectionsJSON, &workflow.Connections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &workflow.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &workflow, nil
}
