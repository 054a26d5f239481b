package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsInvalidCredentialError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrInvalidCredential, true},
		{"wrapped sentinel", fmt.Errorf("complete: %w", ErrInvalidCredential), true},
		{"401 status", errors.New("POST /v1/chat/completions: 401 Unauthorized"), true},
		{"invalid_api_key code", errors.New(`{"code": "invalid_api_key"}`), true},
		{"incorrect key message", errors.New("Incorrect API key provided: sk-proj"), true},
		{"api error struct", &APIError{StatusCode: 401}, true},
		{"rate limit", errors.New("429 too many requests"), false},
		{"generic", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidCredentialError(tt.err); got != tt.want {
				t.Errorf("IsInvalidCredentialError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsCanceledError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, true},
		{"wrapped canceled", fmt.Errorf("complete: %w", context.Canceled), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"message only", errors.New("Post \"https://api.openai.com\": context canceled"), true},
		{"credential", ErrInvalidCredential, false},
		{"generic", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCanceledError(tt.err); got != tt.want {
				t.Errorf("IsCanceledError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	err := errors.New(`429 Too Many Requests {"message": "Rate limit reached", "type": "rate_limit_error", "code": "rate_limit_exceeded"}`)
	apiErr := ExtractAPIError(err)
	if apiErr == nil {
		t.Fatal("expected an APIError")
	}
	if apiErr.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.Message != "Rate limit reached" {
		t.Errorf("Message = %q, want parsed JSON message", apiErr.Message)
	}
	if apiErr.Code != "rate_limit_exceeded" {
		t.Errorf("Code = %q, want rate_limit_exceeded", apiErr.Code)
	}
	if apiErr.RetryAfter == nil {
		t.Error("RetryAfter should be set for rate limit errors")
	}

	if got := ExtractAPIError(errors.New("connection refused")); got != nil {
		t.Errorf("ExtractAPIError(generic) = %v, want nil", got)
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	if got := GetRetryDelay(ErrInvalidCredential, 0); got != 0 {
		t.Errorf("credential errors should not be retried, got delay %v", got)
	}
	if got := GetRetryDelay(context.Canceled, 0); got != 0 {
		t.Errorf("canceled requests should not be retried, got delay %v", got)
	}

	rateErr := errors.New("429 rate limit")
	if got := GetRetryDelay(rateErr, 0); got != 60*time.Second {
		t.Errorf("rate limit attempt 0 delay = %v, want 60s", got)
	}
	if got := GetRetryDelay(rateErr, 100); got != 15*time.Minute {
		t.Errorf("rate limit delay should cap at 15m, got %v", got)
	}

	if got := GetRetryDelay(errors.New("boom"), 0); got != 5*time.Second {
		t.Errorf("generic attempt 0 delay = %v, want 5s", got)
	}
	if got := GetRetryDelay(errors.New("boom"), 100); got != 5*time.Minute {
		t.Errorf("generic delay should cap at 5m, got %v", got)
	}
}
