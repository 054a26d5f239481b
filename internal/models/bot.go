package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bot is a community-shared persona. The same shape is stored locally (with
// an FTS shadow row) and in the remote directory.
type Bot struct {
	UUID          uuid.UUID `json:"uuid"`
	ParentUUID    uuid.UUID `json:"parent_uuid"`
	Name          string    `json:"name"`
	Alias         string    `json:"alias"`
	SystemMessage string    `json:"system_message"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	UsersCount    int       `json:"users_count"`
	UserUpVotes   int       `json:"user_up_votes"`
	UserDownVotes int       `json:"user_down_votes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CreatedBy     string    `json:"created_by"`
}

// Popularity is the ordering heuristic used by search results
func (b *Bot) Popularity() int {
	return b.UserUpVotes + b.UsersCount
}

// SearchFields returns the lower-cased values written to the FTS shadow row,
// in column order: name, alias, system message, description, tags, created by.
func (b *Bot) SearchFields() (string, string, string, string, string, string) {
	return strings.ToLower(b.Name),
		strings.ToLower(b.Alias),
		strings.ToLower(b.SystemMessage),
		strings.ToLower(b.Description),
		strings.ToLower(strings.Join(b.Tags, " ")),
		strings.ToLower(b.CreatedBy)
}

// ToPersona converts a community bot into a local persona (the "use this
// bot" flow)
func (b *Bot) ToPersona() *Persona {
	return &Persona{
		UUID:          uuid.New(),
		Name:          b.Name,
		Alias:         b.Alias,
		SystemMessage: b.SystemMessage,
		CreatedAt:     time.Now().UTC(),
	}
}
