package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

func testPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func testWorkflow(id string, version int) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Version: version,
		Name:    "welcome flow",
		Status:  models.WorkflowStatusActive,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "greet", Type: models.NodeTypeMessage, Data: map[string]any{"message": "Hi {{userName}}!"}},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", SourceID: "start", TargetID: "greet"},
			{ID: "c2", SourceID: "greet", TargetID: "end"},
		},
	}
}

func testExecution(id string) *models.Execution {
	execution := models.NewExecution(testWorkflow("wf-1", 1), "start", "user-1", "conv-1", map[string]any{"userName": "Ada"})
	execution.ID = id

	return execution
}

func TestFileURLPrefixStripped(t *testing.T) {
	dir := t.TempDir()
	store := NewPersistence("file://" + dir)

	require.NoError(t, store.HealthCheck(context.Background()))
	assert.Equal(t, dir, store.root)
}

func TestWorkflowSaveAndLoadVersions(t *testing.T) {
	store := testPersistence(t)
	repo := store.WorkflowRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testWorkflow("wf-1", 1)))
	require.NoError(t, repo.Save(ctx, testWorkflow("wf-1", 2)))

	latest, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	require.Len(t, latest.Nodes, 3)
	assert.Equal(t, "Hi {{userName}}!", latest.Nodes[1].Data["message"])

	pinned, err := repo.GetByIDAndVersion(ctx, "wf-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pinned.Version)

	_, err = repo.GetByIDAndVersion(ctx, "wf-1", 3)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowListEmptyDirectory(t *testing.T) {
	store := testPersistence(t)

	list, err := store.WorkflowRepository().List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWorkflowRejectsUnsafeIDs(t *testing.T) {
	store := testPersistence(t)
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", "a\\b", ""} {
		_, err := store.WorkflowRepository().GetByID(ctx, id)
		require.Error(t, err, "id %q", id)

		workflow := testWorkflow(id, 1)
		require.Error(t, store.WorkflowRepository().Save(ctx, workflow), "id %q", id)
	}
}

func TestExecutionLifecycle(t *testing.T) {
	store := testPersistence(t)
	repo := store.ExecutionRepository()
	ctx := context.Background()

	execution := testExecution("exec-1")
	require.NoError(t, repo.Create(ctx, execution))

	err := repo.Create(ctx, testExecution("exec-1"))
	assert.True(t, persistence.IsExecutionAlreadyExists(err))

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Revision)

	loaded.Status = models.ExecutionStatusWaitingInput
	require.NoError(t, repo.Update(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Revision)

	stale := testExecution("exec-1")
	stale.Revision = 1
	err = repo.Update(ctx, stale)
	assert.True(t, persistence.IsConcurrentModification(err))

	reloaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaitingInput, reloaded.Status)
}

func TestExecutionListFilters(t *testing.T) {
	store := testPersistence(t)
	repo := store.ExecutionRepository()
	ctx := context.Background()

	waiting := testExecution("exec-1")
	waiting.Status = models.ExecutionStatusWaitingInput
	require.NoError(t, repo.Create(ctx, waiting))

	other := testExecution("exec-2")
	other.ConversationID = "conv-2"
	require.NoError(t, repo.Create(ctx, other))

	byConversation, err := repo.ListByConversation(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, byConversation, 1)
	assert.Equal(t, "exec-1", byConversation[0].ID)

	byStatus, err := repo.ListByStatus(ctx, models.ExecutionStatusWaitingInput)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	byWorkflow, err := repo.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)
}

func TestExecutionListEmptyDirectory(t *testing.T) {
	store := testPersistence(t)

	list, err := store.ExecutionRepository().ListByStatus(context.Background(), models.ExecutionStatusRunning)

	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExecutionHistorySurvivesRoundTrip(t *testing.T) {
	store := testPersistence(t)
	repo := store.ExecutionRepository()
	ctx := context.Background()

	execution := testExecution("exec-1")
	execution.EnterNode("start", execution.CreatedAt)
	execution.ExitNode(execution.CreatedAt)
	execution.EnterNode("greet", execution.CreatedAt)
	require.NoError(t, repo.Create(ctx, execution))

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, loaded.History, 2)
	assert.NotNil(t, loaded.History[0].ExitedAt)
	assert.Nil(t, loaded.History[1].ExitedAt)
}
