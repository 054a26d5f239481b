package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{name: "user", input: "user", want: RoleUser},
		{name: "bot", input: "bot", want: RoleBot},
		{name: "system", input: "system", want: RoleSystem},
		{name: "unknown role rejected", input: "assistant", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "case sensitive", input: "USER", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRole(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPersonaToBot(t *testing.T) {
	t.Parallel()

	persona := &Persona{
		UUID:          uuid.New(),
		Name:          "Chef Bot",
		Alias:         "chef",
		SystemMessage: "You are a professional chef.",
	}

	bot := persona.ToBot("user-123", "Cooks things", []string{"Food", "Cooking"})

	if bot.ParentUUID != persona.UUID {
		t.Errorf("ParentUUID = %s, want persona uuid %s", bot.ParentUUID, persona.UUID)
	}
	if bot.UUID == persona.UUID {
		t.Error("shared bot must get its own uuid")
	}
	if bot.Name != persona.Name || bot.Alias != persona.Alias || bot.SystemMessage != persona.SystemMessage {
		t.Error("persona fields not carried over to bot")
	}
	if bot.CreatedBy != "user-123" {
		t.Errorf("CreatedBy = %q, want user-123", bot.CreatedBy)
	}
	if !bot.CreatedAt.Equal(bot.UpdatedAt) {
		t.Error("new bot should have created_at == updated_at")
	}
}

func TestBotSearchFields(t *testing.T) {
	t.Parallel()

	bot := &Bot{
		Name:          "Chef Bot",
		Alias:         "CHEF",
		SystemMessage: "You Are A Chef",
		Description:   "Cooks Things",
		Tags:          []string{"Food", "Cooking"},
		CreatedBy:     "Alice",
	}

	name, alias, system, desc, tags, createdBy := bot.SearchFields()
	for _, field := range []string{name, alias, system, desc, tags, createdBy} {
		if field != strings.ToLower(field) {
			t.Errorf("search field %q is not lower-cased", field)
		}
	}
	if tags != "food cooking" {
		t.Errorf("tags field = %q, want %q", tags, "food cooking")
	}
}

func TestBotPopularity(t *testing.T) {
	t.Parallel()

	a := &Bot{UserUpVotes: 5, UsersCount: 10}
	b := &Bot{UserUpVotes: 1, UsersCount: 1}

	if a.Popularity() != 15 {
		t.Errorf("Popularity() = %d, want 15", a.Popularity())
	}
	if a.Popularity() <= b.Popularity() {
		t.Error("bot a should rank above bot b")
	}
}

func TestBotToPersona(t *testing.T) {
	t.Parallel()

	bot := &Bot{
		UUID:          uuid.New(),
		Name:          "Helper",
		Alias:         "help",
		SystemMessage: "You help.",
		CreatedAt:     time.Now().Add(-time.Hour),
	}

	persona := bot.ToPersona()
	if persona.UUID == bot.UUID {
		t.Error("local persona must get its own uuid")
	}
	if persona.Name != bot.Name || persona.SystemMessage != bot.SystemMessage {
		t.Error("bot fields not carried over to persona")
	}
}
