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
	"strconv"
	"strings"
	"time"

	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

// WorkflowRepository stores every workflow version as its own JSON document
// named <id>@<version>.json.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a workflow repository under root.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) filePath(id string, version int) string {
	return filepath.Clean(path.Join(wr.dir(), fmt.Sprintf("%s@%d.json", id, version)))
}

// Save writes the workflow version to disk.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := validateID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := os.MkdirAll(wr.dir(), 0750); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to create workflows directory: %w", err))
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to marshal workflow: %w", err))
	}

	if err := os.WriteFile(wr.filePath(workflow.ID, workflow.Version), data, 0600); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// GetByIDAndVersion reads one workflow version.
func (wr *WorkflowRepository) GetByIDAndVersion(_ context.Context, id string, version int) (*models.Workflow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, err)
	}

	body, err := os.ReadFile(wr.filePath(id, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, persistence.NewWorkflowVersionError("GetByIDAndVersion", id, version, fmt.Errorf("failed to unmarshal workflow: %w", err))
	}

	return &workflow, nil
}

// GetByID reads the highest stored version of the workflow.
func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	version, err := wr.latestVersion(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return wr.GetByIDAndVersion(ctx, id, version)
}

// List returns the latest version of every stored workflow.
func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	entries, err := wr.versionsByID()
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		versions := entries[id]
		workflow, err := wr.GetByIDAndVersion(ctx, id, versions[len(versions)-1])
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) latestVersion(id string) (int, error) {
	entries, err := wr.versionsByID()
	if err != nil {
		return 0, err
	}

	versions, ok := entries[id]
	if !ok {
		return 0, persistence.ErrWorkflowNotFound
	}

	return versions[len(versions)-1], nil
}

// versionsByID scans the workflows directory and groups stored versions by
// workflow ID, each list sorted ascending.
func (wr *WorkflowRepository) versionsByID() (map[string][]int, error) {
	if _, err := os.Stat(wr.dir()); os.IsNotExist(err) {
		return map[string][]int{}, nil
	}

	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*@*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	entries := make(map[string][]int)

	for _, file := range jsonFiles {
		name := strings.TrimSuffix(file, ".json")

		at := strings.LastIndex(name, "@")
		if at <= 0 {
			continue
		}

		version, err := strconv.Atoi(name[at+1:])
		if err != nil {
			continue
		}

		id := name[:at]
		entries[id] = append(entries[id], version)
	}

	for id := range entries {
		sort.Ints(entries[id])
	}

	return entries, nil
}
