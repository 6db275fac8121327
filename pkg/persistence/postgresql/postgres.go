// Package postgresql provides PostgreSQL persistence for workflows and
// executions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dialora/dialora/pkg/persistence"
	"github.com/dialora/dialora/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	executionRepo *ExecutionRepository
	workflowRepo  *WorkflowRepository
}

// NewPersistence opens a connection pool, runs pending schema migrations and
// returns a ready persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		executionRepo: NewExecutionRepository(database, logger),
		workflowRepo:  NewWorkflowRepository(database, logger),
	}, nil
}

// ExecutionRepository returns the execution repository.
func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

// WorkflowRepository returns the workflow repository.
func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection pool.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
