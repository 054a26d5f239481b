package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/services/ai"
	"github.com/botforge/botforge/internal/validation"
)

// ChatHandler handles chat transcript and completion requests
type ChatHandler struct {
	chats    *database.ChatRepository
	personas *database.PersonaRepository
	chat     *ai.ChatService
}

// NewChatHandler creates a new chat handler. chat may be nil when no AI
// provider is configured; completion endpoints then return 503.
func NewChatHandler(chats *database.ChatRepository, personas *database.PersonaRepository, chat *ai.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats, personas: personas, chat: chat}
}

// RegisterRoutes registers chat routes on the given router.
// The router should already have the /chats prefix.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListChats).Methods("GET")
	r.HandleFunc("", h.SaveChat).Methods("POST")
	r.HandleFunc("", h.DeleteAllChats).Methods("DELETE")
	r.HandleFunc("/{id}", h.DeleteChat).Methods("DELETE")
	r.HandleFunc("/{id}/messages", h.GetMessages).Methods("GET")
	r.HandleFunc("/{id}/complete", h.Complete).Methods("POST")
	r.HandleFunc("/{id}/cancel", h.Cancel).Methods("POST")
}

// ChatMessageRequest is one transcript entry in a save or completion request
type ChatMessageRequest struct {
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Text     string     `json:"text" validate:"required,min=1,max=100000"`
	Role     string     `json:"role" validate:"required,role"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// SaveChatRequest represents a save chat request. Saving an existing uuid
// replaces the stored name and persona reference and appends the messages.
type SaveChatRequest struct {
	Name        string               `json:"name" validate:"required,min=1,max=200"`
	PersonaUUID *uuid.UUID           `json:"persona_uuid,omitempty"`
	Messages    []ChatMessageRequest `json:"messages" validate:"dive"`
}

// CompleteRequest represents a chat completion request. The conversation is
// carried in the request because chats are only persisted when the user
// saves them explicitly.
type CompleteRequest struct {
	PersonaUUID *uuid.UUID           `json:"persona_uuid,omitempty"`
	Messages    []ChatMessageRequest `json:"messages" validate:"required,min=1,dive"`
}

// ListChats lists saved chats, newest first
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.List(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list chats")
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

// SaveChat persists a chat transcript under the uuid in the path
func (h *ChatHandler) SaveChat(w http.ResponseWriter, r *http.Request) {
	var req SaveChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	chat := &models.Chat{
		UUID:        uuid.New(),
		Name:        validation.SanitizeText(req.Name),
		PersonaUUID: req.PersonaUUID,
		SavedAt:     time.Now().UTC(),
	}
	messages, err := toMessages(chat.UUID, req.Messages)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if err := h.chats.SaveChat(r.Context(), chat, messages); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save chat")
		return
	}
	respondJSON(w, http.StatusCreated, chat)
}

// GetMessages returns the messages of a saved chat in timestamp order
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	messages, err := h.chats.GetMessages(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// DeleteChat deletes a chat and its messages
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.chats.DeleteByUUID(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Chat not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete chat")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted"})
}

// DeleteAllChats deletes every saved chat
func (h *ChatHandler) DeleteAllChats(w http.ResponseWriter, r *http.Request) {
	if err := h.chats.DeleteAll(r.Context()); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete chats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "All chats deleted"})
}

// Complete runs a model completion over the submitted conversation. The
// chat uuid in the path keys the in-flight request so a later Cancel call
// can tear it down.
func (h *ChatHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "No AI provider configured")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	ctx := r.Context()
	var persona *models.Persona
	if req.PersonaUUID != nil {
		p, err := h.personas.GetByUUID(ctx, *req.PersonaUUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondJSONError(w, http.StatusNotFound, "Not Found", "Persona not found")
				return
			}
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get persona")
			return
		}
		persona = p
		if err := h.personas.TouchLastUsed(ctx, persona.UUID); err != nil {
			// Ordering is a convenience; the completion still proceeds
		}
	}

	messages, err := toMessages(id, req.Messages)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	reply, err := h.chat.Complete(ctx, id, persona, messages)
	if err != nil {
		switch {
		case ai.IsCanceledError(err):
			respondJSONError(w, http.StatusConflict, "Canceled", "Completion was canceled")
		case ai.IsInvalidCredentialError(err):
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "AI provider rejected the configured credential")
		case ai.IsRateLimitError(err):
			respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "AI provider rate limit reached")
		default:
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Completion failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// Cancel tears down the in-flight completion for the chat, if any
func (h *ChatHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "No AI provider configured")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"canceled": h.chat.Cancel(id)})
}

// toMessages converts request transcript entries into model messages bound
// to the chat. Entries default to active with a fresh uuid and timestamp.
func toMessages(chatUUID uuid.UUID, entries []ChatMessageRequest) ([]*models.Message, error) {
	messages := make([]*models.Message, 0, len(entries))
	now := time.Now().UTC()
	for i, entry := range entries {
		role, err := models.ParseRole(entry.Role)
		if err != nil {
			return nil, err
		}
		msg := &models.Message{
			UUID:      uuid.New(),
			Text:      entry.Text,
			Role:      role,
			Timestamp: now.Add(time.Duration(i) * time.Microsecond),
			IsActive:  true,
			ChatUUID:  chatUUID,
		}
		if entry.UUID != nil {
			msg.UUID = *entry.UUID
		}
		if entry.IsActive != nil {
			msg.IsActive = *entry.IsActive
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
