package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

func sampleWorkflow(id string, version int) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Version: version,
		Name:    "welcome flow",
		Status:  models.WorkflowStatusActive,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", SourceID: "start", TargetID: "end"},
		},
	}
}

func sampleExecution(id, conversationID string) *models.Execution {
	execution := models.NewExecution(sampleWorkflow("wf-1", 1), "start", "user-1", conversationID, map[string]any{"userName": "Ada"})
	execution.ID = id

	return execution
}

func TestExecutionCreateAndGet(t *testing.T) {
	store := NewPersistence()
	repo := store.ExecutionRepository()
	ctx := context.Background()

	execution := sampleExecution("exec-1", "conv-1")
	require.NoError(t, repo.Create(ctx, execution))

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, execution.ID, loaded.ID)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
	assert.Equal(t, int64(1), loaded.Revision)
	assert.Equal(t, "Ada", loaded.Variables["userName"])
}

func TestExecutionCreateDuplicateFails(t *testing.T) {
	store := NewPersistence()
	repo := store.ExecutionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleExecution("exec-1", "conv-1")))

	err := repo.Create(ctx, sampleExecution("exec-1", "conv-2"))

	assert.True(t, persistence.IsExecutionAlreadyExists(err))
}

func TestExecutionGetMissingFails(t *testing.T) {
	store := NewPersistence()

	_, err := store.ExecutionRepository().GetByID(context.Background(), "ghost")

	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionUpdateBumpsRevision(t *testing.T) {
	store := NewPersistence()
	repo := store.ExecutionRepository()
	ctx := context.Background()

	execution := sampleExecution("exec-1", "conv-1")
	require.NoError(t, repo.Create(ctx, execution))

	execution.SetVariable("score", 5)
	require.NoError(t, repo.Update(ctx, execution))
	assert.Equal(t, int64(2), execution.Revision)

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Revision)
	assert.InDelta(t, 5, loaded.Variables["score"], 0)
}

func TestExecutionUpdateStaleRevisionConflicts(t *testing.T) {
	store := NewPersistence()
	repo := store.ExecutionRepository()
	ctx := context.Background()

	execution := sampleExecution("exec-1", "conv-1")
	require.NoError(t, repo.Create(ctx, execution))

	first, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)

	second, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, first))

	err = repo.Update(ctx, second)

	assert.True(t, persistence.IsConcurrentModification(err))
}

func TestExecutionStoredCopyIsIsolated(t *testing.T) {
	store := NewPersistence()
	repo := store.ExecutionRepository()
	ctx := context.Background()

	execution := sampleExecution("exec-1", "conv-1")
	require.NoError(t, repo.Create(ctx, execution))

	execution.SetVariable("userName", "mutated")

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", loaded.Variables["userName"])
}

func TestExecutionListFilters(t *testing.T) {
	store := NewPersistence()
	repo := store.ExecutionRepository()
	ctx := context.Background()

	first := sampleExecution("exec-1", "conv-1")
	require.NoError(t, repo.Create(ctx, first))

	second := sampleExecution("exec-2", "conv-1")
	second.Status = models.ExecutionStatusWaitingInput
	require.NoError(t, repo.Create(ctx, second))

	third := sampleExecution("exec-3", "conv-2")
	require.NoError(t, repo.Create(ctx, third))

	byConversation, err := repo.ListByConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Len(t, byConversation, 2)

	byStatus, err := repo.ListByStatus(ctx, models.ExecutionStatusWaitingInput)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "exec-2", byStatus[0].ID)

	byWorkflow, err := repo.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 3)
}

func TestWorkflowVersioning(t *testing.T) {
	store := NewPersistence()
	repo := store.WorkflowRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1", 1)))
	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1", 2)))

	latest, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	pinned, err := repo.GetByIDAndVersion(ctx, "wf-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pinned.Version)

	_, err = repo.GetByIDAndVersion(ctx, "wf-1", 9)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = repo.GetByID(ctx, "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowListReturnsLatestVersions(t *testing.T) {
	store := NewPersistence()
	repo := store.WorkflowRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-a", 1)))
	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-a", 2)))
	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-b", 1)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "wf-a", list[0].ID)
	assert.Equal(t, 2, list[0].Version)
	assert.Equal(t, "wf-b", list[1].ID)
}

func TestHealthCheckAndClose(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.ExecutionRepository().Create(ctx, sampleExecution("exec-1", "conv-1")))
	require.NoError(t, store.Close(ctx))

	_, err := store.ExecutionRepository().GetByID(ctx, "exec-1")
	assert.True(t, persistence.IsExecutionNotFound(err))
}
