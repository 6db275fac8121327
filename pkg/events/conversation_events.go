package events

// Conversation events flow between the engine and the channel adapters that
// talk to the user. Outbound text rides on message and prompt events,
// inbound replies arrive as user_replied and resume waiting executions.

type ConversationMessage struct {
	BaseEvent

	Text string `json:"text"`
}

func (e ConversationMessage) GetType() EventType {
	return ConversationMessageEvent
}

type ConversationPrompt struct {
	BaseEvent

	Text string `json:"text"`
}

func (e ConversationPrompt) GetType() EventType {
	return ConversationPromptEvent
}

type ConversationUserReplied struct {
	BaseEvent

	UserID string `json:"user_id,omitempty"`
	Text   string `json:"text"`
}

func (e ConversationUserReplied) GetType() EventType {
	return ConversationUserRepliedEvent
}
