package ai

import (
	"context"
	"time"

	"github.com/botforge/botforge/internal/models"
)

// Provider is the interface for LLM providers
type Provider interface {
	// Complete sends an ordered list of role-tagged messages and returns the
	// completion along with its usage metadata
	Complete(ctx context.Context, messages []ChatMessage, model string) (*CompletionResult, error)

	// GenerateImages generates n images for a prompt at the requested size
	GenerateImages(ctx context.Context, prompt string, n int, size string) ([][]byte, error)
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// CompletionResult represents a completion from the LLM along with the
// usage and finish data the provider reported for it
type CompletionResult struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	FinishReason     string    `json:"finish_reason"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	Timestamp        time.Time `json:"timestamp"`
}

// Metadata converts the result into the persisted metadata shape. It returns
// nil when the provider reported no usage data, matching the nullable
// metadata reference on messages.
func (r *CompletionResult) Metadata() *models.MessageMetadata {
	if r.ID == "" || r.TotalTokens == 0 {
		return nil
	}
	return &models.MessageMetadata{
		OpenAIID:         r.ID,
		FinishReason:     r.FinishReason,
		PromptTokens:     int(r.PromptTokens),
		CompletionTokens: int(r.CompletionTokens),
		TotalTokens:      int(r.TotalTokens),
		Timestamp:        r.Timestamp,
	}
}
