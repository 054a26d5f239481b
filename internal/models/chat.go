package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a saved conversation transcript. PersonaUUID is nil for chats
// started without a persona.
type Chat struct {
	UUID        uuid.UUID  `json:"uuid"`
	Name        string     `json:"name"`
	PersonaUUID *uuid.UUID `json:"persona_uuid,omitempty"`
	SavedAt     time.Time  `json:"saved_at"`
}

// Message is a single entry in a chat transcript. IsActive controls whether
// the message is included in the model context on the next completion call.
type Message struct {
	UUID      uuid.UUID `json:"uuid"`
	Text      string    `json:"text"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	IsActive  bool      `json:"is_active"`
	ChatUUID  uuid.UUID `json:"chat_uuid"`
	// Metadata is present only when the model response carried usage data
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata holds the usage and finish data attached to a model
// response. Keyed by the provider's completion id.
type MessageMetadata struct {
	OpenAIID         string    `json:"openai_id"`
	FinishReason     string    `json:"finish_reason"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Timestamp        time.Time `json:"timestamp"`
}
