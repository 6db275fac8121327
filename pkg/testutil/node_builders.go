// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dialora/dialora/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a message node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:        uuid.New().String(),
		Type:      models.NodeTypeMessage,
		Name:      "Test Node",
		Data:      map[string]any{"message": "test"},
		PositionX: 100,
		PositionY: 200,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithInputNode configures the node to collect a user reply into a variable.
func WithInputNode(question, variableName string) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeInput
		n.Data = map[string]any{
			"question":     question,
			"variableName": variableName,
		}
	}
}

// WithData sets the node data payload.
func WithData(data map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Data = data
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// WithPosition sets the node position.
func WithPosition(x, y int) func(*models.Node) {
	return func(n *models.Node) {
		n.PositionX = x
		n.PositionY = y
	}
}

// WithType sets the node type.
func WithType(nodeType models.NodeType) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
	}
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// CreateTestWorkflow creates an active workflow with no nodes.
func CreateTestWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:          uuid.New().String(),
		Version:     1,
		ChatbotID:   "test-bot",
		Name:        "Test Workflow",
		Status:      models.WorkflowStatusActive,
		Metadata:    map[string]any{"category": "test"},
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
	}
}

// CreateTestWorkflowWithNodes creates a workflow with the smallest complete
// graph: start-1 -> msg-1 -> end-1.
func CreateTestWorkflowWithNodes() *models.Workflow {
	workflow := CreateTestWorkflow()

	workflow.Nodes = []*models.Node{
		CreateTestNode(WithID("start-1"), WithType(models.NodeTypeStart), WithData(nil)),
		CreateTestNode(WithID("msg-1"), WithName("Greeting"), WithData(map[string]any{"message": "Hi"})),
		CreateTestNode(WithID("end-1"), WithType(models.NodeTypeEnd), WithData(nil)),
	}

	workflow.Connections = []*models.Connection{
		CreateTestConnection("start-1", "msg-1"),
		CreateTestConnection("msg-1", "end-1"),
	}

	return workflow
}

// CreateTestConnection creates a connection between two nodes.
func CreateTestConnection(sourceNodeID, targetNodeID string) *models.Connection {
	return &models.Connection{
		ID:       uuid.New().String(),
		SourceID: sourceNodeID,
		TargetID: targetNodeID,
	}
}

// CreateConditionalConnection creates a connection guarded by a branch expression.
func CreateConditionalConnection(sourceNodeID, targetNodeID, condition string) *models.Connection {
	connection := CreateTestConnection(sourceNodeID, targetNodeID)
	connection.Condition = condition

	return connection
}
