package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredential indicates the configured API key was rejected
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents an error from the LLM provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter *time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsInvalidCredentialError checks if an error was caused by a missing or
// rejected API key. Call sites use this to steer the user to settings
// instead of offering a plain retry.
func IsInvalidCredentialError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.Code == "invalid_api_key"
	}
	if errors.Is(err, ErrInvalidCredential) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "invalid_api_key") ||
		strings.Contains(errStr, "incorrect api key") ||
		strings.Contains(errStr, "invalid authentication")
}

// IsCanceledError checks if an error came from the caller tearing the
// request down rather than from the provider
func IsCanceledError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "context canceled") ||
		strings.Contains(errStr, "request canceled")
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// ExtractAPIError extracts API error details from an error
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	var statusCode int
	var errType string
	switch {
	case strings.Contains(errStr, "401"):
		statusCode = 401
		errType = "invalid_request_error"
	case strings.Contains(errStr, "429"):
		statusCode = 429
		errType = "rate_limit_error"
	default:
		return nil
	}

	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    errStr,
		Type:       errType,
	}

	// The SDK often embeds the provider's JSON error body in the message
	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			jsonStr = jsonStr[:jsonEnd+1]
			var errorData struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(jsonStr), &errorData) == nil {
				apiErr.Message = errorData.Message
				apiErr.Type = errorData.Type
				apiErr.Code = errorData.Code
			}
		}
	}

	if statusCode == 429 {
		retryAfter := 60 * time.Second
		apiErr.RetryAfter = &retryAfter
	}

	return apiErr
}

// GetRetryDelay calculates the delay before retrying based on error type
func GetRetryDelay(err error, attempt int) time.Duration {
	// Cap attempt so the shift below cannot overflow
	shift := attempt
	if shift > 10 {
		shift = 10
	}
	if shift < 0 {
		shift = 0
	}

	if IsInvalidCredentialError(err) || IsCanceledError(err) {
		// Neither recovers on its own, retrying is pointless
		return 0
	}

	if IsRateLimitError(err) {
		delay := 60 * time.Second * time.Duration(1<<uint(shift))
		if delay > 15*time.Minute {
			delay = 15 * time.Minute
		}

		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil {
			if *apiErr.RetryAfter > delay {
				delay = *apiErr.RetryAfter
			}
		}

		return delay
	}

	delay := 5 * time.Second * time.Duration(1<<uint(shift))
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
