package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// ChatService runs completion requests for chats. It assembles the model
// context from a persona's system prompt and the chat's active messages,
// and tracks in-flight requests so callers can cancel them.
type ChatService struct {
	provider Provider
	model    string
	mu       sync.Mutex // protects inflight
	inflight map[uuid.UUID]*inflightRequest
}

type inflightRequest struct {
	cancel context.CancelFunc
}

// NewChatService creates a new chat service
func NewChatService(provider Provider, model string) *ChatService {
	return &ChatService{
		provider: provider,
		model:    model,
		inflight: make(map[uuid.UUID]*inflightRequest),
	}
}

// BuildConversation converts a persona and transcript into the ordered
// message list sent to the model. Deactivated messages are skipped.
func BuildConversation(persona *models.Persona, messages []*models.Message) []ChatMessage {
	conversation := make([]ChatMessage, 0, len(messages)+1)
	if persona != nil && persona.SystemMessage != "" {
		conversation = append(conversation, ChatMessage{
			Role:    models.RoleSystem,
			Content: persona.SystemMessage,
		})
	}
	for _, msg := range messages {
		if !msg.IsActive {
			continue
		}
		conversation = append(conversation, ChatMessage{
			Role:    msg.Role,
			Content: msg.Text,
		})
	}
	return conversation
}

// Complete runs a completion for the chat and returns the bot reply as a
// transcript message. A concurrent Complete for the same chat cancels the
// earlier one.
func (s *ChatService) Complete(ctx context.Context, chatUUID uuid.UUID, persona *models.Persona, messages []*models.Message) (*models.Message, error) {
	conversation := BuildConversation(persona, messages)
	if len(conversation) == 0 {
		return nil, fmt.Errorf("chat %s has no active messages", chatUUID)
	}

	ctx, cancel := context.WithCancel(ctx)
	req := &inflightRequest{cancel: cancel}
	s.track(chatUUID, req)
	defer s.untrack(chatUUID, req)

	result, err := s.provider.Complete(ctx, conversation, s.model)
	if err != nil {
		return nil, err
	}

	return &models.Message{
		UUID:      uuid.New(),
		Text:      result.Text,
		Role:      models.RoleBot,
		Timestamp: time.Now().UTC(),
		IsActive:  true,
		ChatUUID:  chatUUID,
		Metadata:  result.Metadata(),
	}, nil
}

// Cancel tears down the in-flight completion for a chat, if any. It reports
// whether a request was actually cancelled.
func (s *ChatService) Cancel(chatUUID uuid.UUID) bool {
	s.mu.Lock()
	req, ok := s.inflight[chatUUID]
	if ok {
		delete(s.inflight, chatUUID)
	}
	s.mu.Unlock()

	if ok {
		req.cancel()
	}
	return ok
}

func (s *ChatService) track(chatUUID uuid.UUID, req *inflightRequest) {
	s.mu.Lock()
	if prev, ok := s.inflight[chatUUID]; ok {
		prev.cancel()
	}
	s.inflight[chatUUID] = req
	s.mu.Unlock()
}

func (s *ChatService) untrack(chatUUID uuid.UUID, req *inflightRequest) {
	s.mu.Lock()
	// Only remove our own entry. A newer request may have replaced it.
	if current, ok := s.inflight[chatUUID]; ok && current == req {
		delete(s.inflight, chatUUID)
	}
	s.mu.Unlock()
	req.cancel()
}
