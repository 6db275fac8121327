// Package workflow provides static validation of workflow graphs before
// activation and before each execution start.
package workflow

import (
	"fmt"
	"strings"

	"github.com/dialora/dialora/pkg/models"
)

// ViolationKind names one class of validation failure.
type ViolationKind string

const (
	ViolationNoStartNode        ViolationKind = "no_start_node"
	ViolationMultipleStartNodes ViolationKind = "multiple_start_nodes"
	ViolationDuplicateNodeID    ViolationKind = "duplicate_node_id"
	ViolationDanglingConnection ViolationKind = "dangling_connection"
	ViolationDeadEndNode        ViolationKind = "dead_end_node"
	ViolationInvalidCondition   ViolationKind = "invalid_condition_expression"
	ViolationMisplacedDefault   ViolationKind = "misplaced_default_branch"
	ViolationUnknownNodeType    ViolationKind = "unknown_node_type"
	ViolationInvalidNodeData    ViolationKind = "invalid_node_data"
)

// Violation is one reported validation failure.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	NodeID  string        `json:"node_id,omitempty"`
	Message string        `json:"message"`
}

// ValidationResult is the outcome of validating a workflow graph.
type ValidationResult struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations,omitempty"`
}

// Summary renders the violations as a single diagnostic line.
func (r ValidationResult) Summary() string {
	if r.OK {
		return "valid"
	}

	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		if v.NodeID != "" {
			parts = append(parts, fmt.Sprintf("%s(%s): %s", v.Kind, v.NodeID, v.Message))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", v.Kind, v.Message))
		}
	}

	return strings.Join(parts, "; ")
}

// ExpressionParser checks that a condition expression stays inside the
// supported grammar.
type ExpressionParser interface {
	Parse(expression string) error
}

// DataSchemas validates a node's data payload against the schema registered
// for its type, returning one message per schema violation.
type DataSchemas interface {
	ValidateNodeData(nodeType models.NodeType, data map[string]any) []string
}

// Validator runs the static checks on a workflow graph.
type Validator struct {
	expressions ExpressionParser
	schemas     DataSchemas
}

// NewValidator creates a Validator. schemas may be nil, in which case node
// data payloads are not schema-checked.
func NewValidator(expressions ExpressionParser, schemas DataSchemas) *Validator {
	return &Validator{
		expressions: expressions,
		schemas:     schemas,
	}
}

// Validate reports every violation in the workflow graph. A workflow that
// passes is safe to hand to the execution controller.
func (v *Validator) Validate(wf *models.Workflow) ValidationResult {
	var violations []Violation

	violations = append(violations, v.checkNodeIDs(wf)...)
	violations = append(violations, v.checkStartNodes(wf)...)
	violations = append(violations, v.checkNodeTypes(wf)...)
	violations = append(violations, v.checkConnections(wf)...)
	violations = append(violations, v.checkJumpTargets(wf)...)
	violations = append(violations, v.checkDeadEnds(wf)...)
	violations = append(violations, v.checkConditionBranches(wf)...)
	violations = append(violations, v.checkNodeData(wf)...)

	return ValidationResult{
		OK:         len(violations) == 0,
		Violations: violations,
	}
}

func (v *Validator) checkNodeIDs(wf *models.Workflow) []Violation {
	var violations []Violation

	seen := make(map[string]bool, len(wf.Nodes))

	for _, node := range wf.Nodes {
		if seen[node.ID] {
			violations = append(violations, Violation{
				Kind:    ViolationDuplicateNodeID,
				NodeID:  node.ID,
				Message: fmt.Sprintf("node id %q declared more than once", node.ID),
			})

			continue
		}

		seen[node.ID] = true
	}

	return violations
}

func (v *Validator) checkStartNodes(wf *models.Workflow) []Violation {
	starts := wf.StartNodes()

	switch {
	case len(starts) == 0:
		return []Violation{{
			Kind:    ViolationNoStartNode,
			Message: "workflow has no start node",
		}}
	case len(starts) > 1:
		ids := make([]string, 0, len(starts))
		for _, node := range starts {
			ids = append(ids, node.ID)
		}

		return []Violation{{
			Kind:    ViolationMultipleStartNodes,
			Message: "workflow has multiple start nodes: " + strings.Join(ids, ", "),
		}}
	default:
		return nil
	}
}

func (v *Validator) checkNodeTypes(wf *models.Workflow) []Violation {
	var violations []Violation

	for _, node := range wf.Nodes {
		if !node.Type.Known() {
			violations = append(violations, Violation{
				Kind:    ViolationUnknownNodeType,
				NodeID:  node.ID,
				Message: fmt.Sprintf("node type %q is not supported", node.Type),
			})
		}
	}

	return violations
}

func (v *Validator) checkConnections(wf *models.Workflow) []Violation {
	var violations []Violation

	for _, conn := range wf.Connections {
		if wf.NodeByID(conn.SourceID) == nil {
			violations = append(violations, Violation{
				Kind:    ViolationDanglingConnection,
				Message: fmt.Sprintf("connection source %q does not exist", conn.SourceID),
			})
		}

		if wf.NodeByID(conn.TargetID) == nil {
			violations = append(violations, Violation{
				Kind:    ViolationDanglingConnection,
				Message: fmt.Sprintf("connection target %q does not exist", conn.TargetID),
			})
		}
	}

	return violations
}

// checkJumpTargets treats a jump node's target like a connection: it must
// reference an existing node. Targets carrying interpolation markers are
// resolved at run time and skipped here.
func (v *Validator) checkJumpTargets(wf *models.Workflow) []Violation {
	var violations []Violation

	for _, node := range wf.Nodes {
		if node.Type != models.NodeTypeJump {
			continue
		}

		target, ok := node.DataString("targetNodeId")
		if !ok || strings.Contains(target, "{{") {
			continue
		}

		if wf.NodeByID(target) == nil {
			violations = append(violations, Violation{
				Kind:    ViolationDanglingConnection,
				NodeID:  node.ID,
				Message: fmt.Sprintf("jump target %q does not exist", target),
			})
		}
	}

	return violations
}

func (v *Validator) checkDeadEnds(wf *models.Workflow) []Violation {
	var violations []Violation

	for _, node := range wf.Nodes {
		// End nodes terminate and jump nodes advance through their target,
		// so neither needs an outgoing connection.
		if node.Type == models.NodeTypeEnd || node.Type == models.NodeTypeJump {
			continue
		}

		if len(wf.OutgoingConnections(node.ID)) == 0 {
			violations = append(violations, Violation{
				Kind:    ViolationDeadEndNode,
				NodeID:  node.ID,
				Message: fmt.Sprintf("node %q has no outgoing connection", node.ID),
			})
		}
	}

	return violations
}

// checkConditionBranches enforces the branch contract on condition nodes:
// either the node carries its own condition, or every outgoing connection
// does, with at most one trailing default.
func (v *Validator) checkConditionBranches(wf *models.Workflow) []Violation {
	var violations []Violation

	for _, node := range wf.Nodes {
		if node.Type != models.NodeTypeCondition {
			continue
		}

		if inline, ok := node.DataString("condition"); ok && strings.TrimSpace(inline) != "" {
			if err := v.parseExpression(inline); err != nil {
				violations = append(violations, Violation{
					Kind:    ViolationInvalidCondition,
					NodeID:  node.ID,
					Message: err.Error(),
				})
			}

			continue
		}

		outgoing := wf.OutgoingConnections(node.ID)
		defaults := 0

		for idx, conn := range outgoing {
			if !conn.HasCondition() {
				defaults++

				if defaults > 1 {
					violations = append(violations, Violation{
						Kind:    ViolationMisplacedDefault,
						NodeID:  node.ID,
						Message: "more than one default branch",
					})
				} else if idx != len(outgoing)-1 {
					violations = append(violations, Violation{
						Kind:    ViolationMisplacedDefault,
						NodeID:  node.ID,
						Message: "default branch must be declared last",
					})
				}

				continue
			}

			if err := v.parseExpression(conn.Condition); err != nil {
				violations = append(violations, Violation{
					Kind:    ViolationInvalidCondition,
					NodeID:  node.ID,
					Message: fmt.Sprintf("connection to %q: %v", conn.TargetID, err),
				})
			}
		}
	}

	return violations
}

func (v *Validator) parseExpression(expression string) error {
	if v.expressions == nil {
		return nil
	}

	return v.expressions.Parse(expression)
}

func (v *Validator) checkNodeData(wf *models.Workflow) []Violation {
	if v.schemas == nil {
		return nil
	}

	var violations []Violation

	for _, node := range wf.Nodes {
		if !node.Type.Known() {
			continue
		}

		for _, message := range v.schemas.ValidateNodeData(node.Type, node.Data) {
			violations = append(violations, Violation{
				Kind:    ViolationInvalidNodeData,
				NodeID:  node.ID,
				Message: message,
			})
		}
	}

	return violations
}
