package models

import "strings"

// Connection is a directed edge between two nodes. Condition carries the
// boolean expression used by condition-node branching; Label is a human
// hint ("Yes"/"No") and is never evaluated. Declaration order matters:
// condition nodes try their outgoing connections in the order the workflow
// lists them.
type Connection struct {
	ID        string `json:"id,omitempty"`
	SourceID  string `json:"source_id"           validate:"required"`
	TargetID  string `json:"target_id"           validate:"required"`
	Condition string `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}

// HasCondition reports whether the connection carries a branch expression.
func (c *Connection) HasCondition() bool {
	return strings.TrimSpace(c.Condition) != ""
}
