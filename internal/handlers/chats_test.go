package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/services/ai"
)

type fakeProvider struct {
	lastMessages []ai.ChatMessage
	reply        string
	err          error
}

func (p *fakeProvider) Complete(ctx context.Context, messages []ai.ChatMessage, model string) (*ai.CompletionResult, error) {
	p.lastMessages = messages
	if p.err != nil {
		return nil, p.err
	}
	return &ai.CompletionResult{
		ID:           "cmpl-1",
		Text:         p.reply,
		FinishReason: "stop",
		TotalTokens:  7,
		Timestamp:    time.Now().UTC(),
	}, nil
}

func (p *fakeProvider) GenerateImages(ctx context.Context, prompt string, n int, size string) ([][]byte, error) {
	return nil, nil
}

func chatRouter(t *testing.T, db *database.DB, provider ai.Provider) *mux.Router {
	t.Helper()

	var svc *ai.ChatService
	if provider != nil {
		svc = ai.NewChatService(provider, "test-model")
	}
	h := NewChatHandler(database.NewChatRepository(db), database.NewPersonaRepository(db), svc)

	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/chats").Subrouter())
	return r
}

func TestSaveListDeleteChat(t *testing.T) {
	t.Parallel()

	r := chatRouter(t, newTestDB(t), nil)

	rec := doJSON(t, r, http.MethodPost, "/chats", map[string]any{
		"name": "Dinner plans",
		"messages": []map[string]any{
			{"role": "user", "text": "What should I cook?"},
			{"role": "bot", "text": "Pasta."},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var chat models.Chat
	decodeData(t, rec, &chat)

	rec = doJSON(t, r, http.MethodGet, "/chats", nil)
	var chats []*models.Chat
	decodeData(t, rec, &chats)
	if len(chats) != 1 || chats[0].Name != "Dinner plans" {
		t.Fatalf("expected one saved chat, got %+v", chats)
	}

	rec = doJSON(t, r, http.MethodGet, "/chats/"+chat.UUID.String()+"/messages", nil)
	var messages []*models.Message
	decodeData(t, rec, &messages)
	if len(messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[1].Role != models.RoleBot {
		t.Errorf("messages out of order: %+v", messages)
	}

	rec = doJSON(t, r, http.MethodDelete, "/chats/"+chat.UUID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/chats", nil)
	chats = nil
	decodeData(t, rec, &chats)
	if len(chats) != 0 {
		t.Errorf("expected no chats after delete, got %d", len(chats))
	}
}

func TestSaveChatRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	r := chatRouter(t, newTestDB(t), nil)

	rec := doJSON(t, r, http.MethodPost, "/chats", map[string]any{
		"name": "Broken",
		"messages": []map[string]any{
			{"role": "wizard", "text": "hello"},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", rec.Code)
	}
}

func TestCompleteUsesPersonaContext(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{reply: "Try a risotto."}
	r := chatRouter(t, db, provider)

	persona := &models.Persona{
		UUID:          uuid.New(),
		Name:          "Chef",
		SystemMessage: "You are a chef.",
		CreatedAt:     time.Now().UTC(),
	}
	if err := database.NewPersonaRepository(db).Create(context.Background(), persona); err != nil {
		t.Fatalf("failed to create persona: %v", err)
	}

	chatID := uuid.New()
	rec := doJSON(t, r, http.MethodPost, "/chats/"+chatID.String()+"/complete", map[string]any{
		"persona_uuid": persona.UUID,
		"messages": []map[string]any{
			{"role": "user", "text": "What should I cook?"},
			{"role": "user", "text": "Old idea", "is_active": false},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var reply models.Message
	decodeData(t, rec, &reply)
	if reply.Role != models.RoleBot || reply.Text != "Try a risotto." {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if reply.Metadata == nil || reply.Metadata.OpenAIID != "cmpl-1" {
		t.Errorf("expected usage metadata, got %+v", reply.Metadata)
	}

	// system message first, inactive entries dropped
	if len(provider.lastMessages) != 2 {
		t.Fatalf("expected 2 messages sent to provider, got %d", len(provider.lastMessages))
	}
	if provider.lastMessages[0].Role != models.RoleSystem || provider.lastMessages[0].Content != "You are a chef." {
		t.Errorf("expected persona system message first, got %+v", provider.lastMessages[0])
	}
}

func TestCompleteWithoutProvider(t *testing.T) {
	t.Parallel()

	r := chatRouter(t, newTestDB(t), nil)

	rec := doJSON(t, r, http.MethodPost, "/chats/"+uuid.NewString()+"/complete", map[string]any{
		"messages": []map[string]any{{"role": "user", "text": "hi"}},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without provider, got %d", rec.Code)
	}
}

func TestCancelWithoutInflight(t *testing.T) {
	t.Parallel()

	r := chatRouter(t, newTestDB(t), &fakeProvider{})

	rec := doJSON(t, r, http.MethodPost, "/chats/"+uuid.NewString()+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}
	var body map[string]bool
	decodeData(t, rec, &body)
	if body["canceled"] {
		t.Error("expected canceled=false with no in-flight request")
	}
}
