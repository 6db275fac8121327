// Package events defines the event types published on the execution
// lifecycle and conversation topics.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dialora/dialora/pkg/models"
)

type EventType string

// Topic carries every dialora event. Consumers filter on the event_type
// metadata field.
const Topic = "dialora.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent      EventType = "execution.started"
	ExecutionWaitingInputEvent EventType = "execution.waiting_input"
	ExecutionResumedEvent      EventType = "execution.resumed"
	ExecutionCompletedEvent    EventType = "execution.completed"
	ExecutionFailedEvent       EventType = "execution.failed"
	ExecutionCancelledEvent    EventType = "execution.cancelled"

	// Conversation events.
	ConversationMessageEvent     EventType = "conversation.message"
	ConversationPromptEvent      EventType = "conversation.prompt"
	ConversationUserRepliedEvent EventType = "conversation.user_replied"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	WorkflowID     string         `json:"workflow_id,omitempty"`
	ExecutionID    string         `json:"execution_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent fills the envelope fields shared by every event.
func NewBaseEvent(eventType EventType, execution *models.Execution) BaseEvent {
	base := BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}

	if execution != nil {
		base.WorkflowID = execution.WorkflowID
		base.ExecutionID = execution.ID
		base.ConversationID = execution.ConversationID
	}

	return base
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowVersion int    `json:"workflow_version"`
	UserID          string `json:"user_id,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionWaitingInput struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	Question string `json:"question,omitempty"`
}

func (e ExecutionWaitingInput) GetType() EventType {
	return ExecutionWaitingInputEvent
}

type ExecutionResumed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Input  any    `json:"input,omitempty"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
	HopCount int           `json:"hop_count"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Kind   models.ErrorKind `json:"kind"`
	NodeID string           `json:"node_id,omitempty"`
	Error  string           `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}
