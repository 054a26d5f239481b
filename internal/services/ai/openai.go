package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second

	// DefaultImageSize is the size requested when the caller leaves it empty
	DefaultImageSize = "256x256"
	// MaxImagesPerRequest caps n on image generation requests
	MaxImagesPerRequest = 10

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the Provider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Complete sends the conversation to the chat completions API and returns
// the completion text along with finish reason and token usage
func (p *OpenAIProvider) Complete(ctx context.Context, messages []ChatMessage, model string) (*CompletionResult, error) {
	if model == "" {
		model = p.model
	}

	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			openAIMessages = append(openAIMessages, openai.SystemMessage(msg.Content))
		case models.RoleBot:
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		case models.RoleUser:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unknown role %q in conversation", msg.Role)
		}
	}
	if len(openAIMessages) == 0 {
		return nil, errors.New("conversation is empty")
	}

	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)
	chatIDStr := ExtractChatID(ctx)

	if p.logger != nil && p.debugMode {
		previews := make([]string, 0, len(messages))
		for _, msg := range messages {
			previews = append(previews, SanitizePrompt(msg.Content, false))
		}
		p.logger.Debug("llm_api_request",
			zap.String("operation", "complete"),
			zap.String("model", model),
			zap.Int("message_count", len(openAIMessages)),
			zap.Strings("message_previews", previews),
			zap.String("user_id", userIDStr),
			zap.String("chat_id", chatIDStr),
			zap.String("request_id", requestID),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: openAIMessages,
		// Temperature omitted - use model default to avoid "unsupported_value" errors
	}

	startTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "complete"),
				zap.String("model", model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("chat_id", chatIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to complete chat: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to complete chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}
	choice := resp.Choices[0]

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "complete"),
			zap.String("model", model),
			zap.Int("response_length", len(choice.Message.Content)),
			zap.String("response_preview", SanitizeResponse(choice.Message.Content, true)),
			zap.String("finish_reason", string(choice.FinishReason)),
			zap.Int64("total_tokens", resp.Usage.TotalTokens),
			zap.String("user_id", userIDStr),
			zap.String("chat_id", chatIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return &CompletionResult{
		ID:               resp.ID,
		Text:             choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Timestamp:        time.Unix(resp.Created, 0).UTC(),
	}, nil
}

// GenerateImages generates n images for the prompt and returns them as raw bytes
func (p *OpenAIProvider) GenerateImages(ctx context.Context, prompt string, n int, size string) ([][]byte, error) {
	if n < 1 {
		n = 1
	}
	if n > MaxImagesPerRequest {
		n = MaxImagesPerRequest
	}
	if size == "" {
		size = DefaultImageSize
	}

	requestID := ExtractRequestID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "generate_images"),
			zap.String("prompt_preview", SanitizePrompt(prompt, false)),
			zap.Int("n", n),
			zap.String("size", size),
			zap.String("request_id", requestID),
		)
	}

	req := openai.ImageGenerateParams{
		Prompt:         prompt,
		N:              openai.Int(int64(n)),
		Size:           openai.ImageGenerateParamsSize(size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	}

	startTime := time.Now()
	resp, err := p.client.Images.Generate(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "generate_images"),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to generate images: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to generate images: %w", err)
	}

	images := make([][]byte, 0, len(resp.Data))
	for _, img := range resp.Data {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode generated image: %w", err)
		}
		images = append(images, data)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "generate_images"),
			zap.Int("image_count", len(images)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return images, nil
}
