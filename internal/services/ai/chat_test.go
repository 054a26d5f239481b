package ai

import (
	"context"
	"testing"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// fakeProvider returns a canned completion, optionally blocking until the
// context is cancelled
type fakeProvider struct {
	result *CompletionResult
	block  bool
	gotMsg []ChatMessage
}

func (f *fakeProvider) Complete(ctx context.Context, messages []ChatMessage, model string) (*CompletionResult, error) {
	f.gotMsg = messages
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, nil
}

func (f *fakeProvider) GenerateImages(ctx context.Context, prompt string, n int, size string) ([][]byte, error) {
	return nil, nil
}

func transcriptMessage(role models.Role, text string, active bool) *models.Message {
	return &models.Message{
		UUID:      uuid.New(),
		Text:      text,
		Role:      role,
		Timestamp: time.Now().UTC(),
		IsActive:  active,
	}
}

func TestBuildConversation(t *testing.T) {
	t.Parallel()

	persona := &models.Persona{
		UUID:          uuid.New(),
		Name:          "Chef",
		SystemMessage: "You are a chef.",
	}
	messages := []*models.Message{
		transcriptMessage(models.RoleUser, "dinner ideas?", true),
		transcriptMessage(models.RoleBot, "How about pasta?", false),
		transcriptMessage(models.RoleUser, "something lighter", true),
	}

	conv := BuildConversation(persona, messages)
	if len(conv) != 3 {
		t.Fatalf("conversation length = %d, want 3 (system + 2 active)", len(conv))
	}
	if conv[0].Role != models.RoleSystem || conv[0].Content != "You are a chef." {
		t.Errorf("first message should be the persona system prompt, got %+v", conv[0])
	}
	if conv[1].Content != "dinner ideas?" || conv[2].Content != "something lighter" {
		t.Errorf("deactivated message leaked into context: %+v", conv[1:])
	}

	if conv := BuildConversation(nil, messages); len(conv) != 2 {
		t.Errorf("conversation without persona length = %d, want 2", len(conv))
	}
}

func TestChatServiceComplete(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{result: &CompletionResult{
		ID:               "chatcmpl-123",
		Text:             "Hello there",
		FinishReason:     "stop",
		PromptTokens:     12,
		CompletionTokens: 3,
		TotalTokens:      15,
		Timestamp:        time.Now().UTC(),
	}}
	svc := NewChatService(provider, "gpt-4o-mini")

	chatUUID := uuid.New()
	reply, err := svc.Complete(context.Background(), chatUUID, nil, []*models.Message{
		transcriptMessage(models.RoleUser, "hi", true),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply.Role != models.RoleBot {
		t.Errorf("reply role = %v, want bot", reply.Role)
	}
	if reply.Text != "Hello there" {
		t.Errorf("reply text = %q", reply.Text)
	}
	if reply.ChatUUID != chatUUID {
		t.Errorf("reply chat = %v, want %v", reply.ChatUUID, chatUUID)
	}
	if reply.Metadata == nil {
		t.Fatal("reply should carry metadata when the provider reported usage")
	}
	if reply.Metadata.OpenAIID != "chatcmpl-123" || reply.Metadata.TotalTokens != 15 {
		t.Errorf("metadata = %+v", reply.Metadata)
	}
}

func TestChatServiceCompleteEmptyContext(t *testing.T) {
	t.Parallel()

	svc := NewChatService(&fakeProvider{}, "")
	_, err := svc.Complete(context.Background(), uuid.New(), nil, []*models.Message{
		transcriptMessage(models.RoleUser, "hidden", false),
	})
	if err == nil {
		t.Fatal("Complete should fail when every message is deactivated")
	}
}

func TestChatServiceCancel(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{block: true}
	svc := NewChatService(provider, "")
	chatUUID := uuid.New()

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Complete(context.Background(), chatUUID, nil, []*models.Message{
			transcriptMessage(models.RoleUser, "hi", true),
		})
		errCh <- err
	}()

	// Wait for the request to register as in-flight
	deadline := time.After(2 * time.Second)
	for !svc.Cancel(chatUUID) {
		select {
		case <-deadline:
			t.Fatal("request never became cancellable")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case err := <-errCh:
		if !IsCanceledError(err) {
			t.Errorf("Complete returned %v, want a canceled error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Complete did not return after cancel")
	}

	if svc.Cancel(chatUUID) {
		t.Error("second Cancel should report nothing in flight")
	}
}

func TestCompletionResultMetadata(t *testing.T) {
	t.Parallel()

	if md := (&CompletionResult{Text: "hi"}).Metadata(); md != nil {
		t.Errorf("result without usage should have nil metadata, got %+v", md)
	}
}
