// Package models defines the core domain models for chatbot workflow execution.
package models

// NodeType identifies the behavior of a workflow node. The set is closed:
// the engine refuses to construct handlers for anything else.
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeMessage     NodeType = "message"
	NodeTypeCondition   NodeType = "condition"
	NodeTypeInput       NodeType = "input"
	NodeTypeAction      NodeType = "action"
	NodeTypeIntegration NodeType = "integration"
	NodeTypeContext     NodeType = "context"
	NodeTypeJump        NodeType = "jump"
	NodeTypeEnd         NodeType = "end"
)

// KnownNodeTypes lists every node type the engine can execute.
var KnownNodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeMessage,
	NodeTypeCondition,
	NodeTypeInput,
	NodeTypeAction,
	NodeTypeIntegration,
	NodeTypeContext,
	NodeTypeJump,
	NodeTypeEnd,
}

func (t NodeType) Known() bool {
	for _, known := range KnownNodeTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Node represents one vertex of a workflow graph. Data carries the
// type-specific payload; position fields are authoring-side layout metadata
// the engine never reads.
type Node struct {
	ID        string         `json:"id"                   validate:"required"`
	Type      NodeType       `json:"type"                 validate:"required"`
	Name      string         `json:"name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	PositionX int            `json:"position_x,omitempty"`
	PositionY int            `json:"position_y,omitempty"`
}

// DataString returns the string value stored under key in the node data,
// reporting false when the key is absent or not a string.
func (n *Node) DataString(key string) (string, bool) {
	if n.Data == nil {
		return "", false
	}

	value, ok := n.Data[key].(string)
	if !ok {
		return "", false
	}

	return value, true
}

// DataStrings returns the value under key as a slice of strings, accepting
// both []string and []any-of-strings JSON decodings.
func (n *Node) DataStrings(key string) ([]string, bool) {
	if n.Data == nil {
		return nil, false
	}

	switch values := n.Data[key].(type) {
	case []string:
		return values, true
	case []any:
		out := make([]string, 0, len(values))

		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}

			out = append(out, s)
		}

		return out, true
	default:
		return nil, false
	}
}
