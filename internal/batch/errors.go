// ABOUTME: Provider error taxonomy with retryability classification
// ABOUTME: Maps OpenAI API failures onto transient vs. permanent categories
package batch

import (
	"context"
	"errors"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorCategory classifies a provider call failure.
type ErrorCategory string

const (
	CategoryRateLimit  ErrorCategory = "RATE_LIMIT"   // retryable
	CategoryServer     ErrorCategory = "SERVER_ERROR" // retryable
	CategoryNetwork    ErrorCategory = "NETWORK"      // retryable
	CategoryInvalidReq ErrorCategory = "INVALID_REQ"  // not retryable
	CategoryAuth       ErrorCategory = "AUTH_ERROR"   // not retryable
	CategoryUnknown    ErrorCategory = "UNKNOWN"      // not retryable
)

// ProviderError wraps a provider call failure with its category.
type ProviderError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether retrying with backoff can help.
func (e *ProviderError) IsRetryable() bool {
	return e.Category == CategoryRateLimit || e.Category == CategoryServer || e.Category == CategoryNetwork
}

// Classify wraps an error from the OpenAI client into a ProviderError.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Category: categoryForStatus(apiErr.HTTPStatusCode),
			Message:  apiErr.Message,
			Err:      err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Category: categoryForStatus(reqErr.HTTPStatusCode),
			Message:  reqErr.Error(),
			Err:      err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Category: CategoryNetwork, Message: err.Error(), Err: err}
	}

	return &ProviderError{Category: CategoryUnknown, Message: err.Error(), Err: err}
}

func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 429:
		return CategoryRateLimit
	case status >= 500:
		return CategoryServer
	case status == 401 || status == 403:
		return CategoryAuth
	case status >= 400:
		return CategoryInvalidReq
	default:
		return CategoryUnknown
	}
}

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).IsRetryable()
}
