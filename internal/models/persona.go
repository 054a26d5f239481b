package models

import (
	"time"

	"github.com/google/uuid"
)

// Persona is a reusable system-prompt profile selectable as chat context
type Persona struct {
	UUID          uuid.UUID `json:"uuid"`
	Name          string    `json:"name"`
	Alias         string    `json:"alias"`
	SystemMessage string    `json:"system_message"`
	CreatedAt     time.Time `json:"created_at"`
	LastUsed      time.Time `json:"last_used"`
}

// ToBot converts the persona into a community bot record for the share flow.
// The persona's uuid becomes the bot's parent so a shared bot can be traced
// back to the persona it was promoted from.
func (p *Persona) ToBot(createdBy string, description string, tags []string) *Bot {
	now := time.Now().UTC()
	return &Bot{
		UUID:          uuid.New(),
		ParentUUID:    p.UUID,
		Name:          p.Name,
		Alias:         p.Alias,
		SystemMessage: p.SystemMessage,
		Description:   description,
		Tags:          tags,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
