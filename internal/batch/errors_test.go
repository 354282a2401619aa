// ABOUTME: Tests for provider error classification
// ABOUTME: Maps HTTP status codes and transport failures onto retryability
package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  ErrorCategory
		retryable bool
	}{
		{
			name:      "rate limited",
			err:       &openai.APIError{HTTPStatusCode: 429, Message: "slow down"},
			category:  CategoryRateLimit,
			retryable: true,
		},
		{
			name:      "server error",
			err:       &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"},
			category:  CategoryServer,
			retryable: true,
		},
		{
			name:      "bad request",
			err:       &openai.APIError{HTTPStatusCode: 400, Message: "invalid model"},
			category:  CategoryInvalidReq,
			retryable: false,
		},
		{
			name:      "unauthorized",
			err:       &openai.APIError{HTTPStatusCode: 401, Message: "bad key"},
			category:  CategoryAuth,
			retryable: false,
		},
		{
			name:      "request error",
			err:       &openai.RequestError{HTTPStatusCode: 500, Err: errors.New("upstream")},
			category:  CategoryServer,
			retryable: true,
		},
		{
			name:      "network timeout",
			err:       timeoutErr{},
			category:  CategoryNetwork,
			retryable: true,
		},
		{
			name:      "context deadline",
			err:       fmt.Errorf("calling provider: %w", context.DeadlineExceeded),
			category:  CategoryNetwork,
			retryable: true,
		},
		{
			name:      "unknown",
			err:       errors.New("something odd"),
			category:  CategoryUnknown,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := Classify(tt.err)
			if pe.Category != tt.category {
				t.Errorf("Category = %s, want %s", pe.Category, tt.category)
			}
			if pe.IsRetryable() != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", pe.IsRetryable(), tt.retryable)
			}
			if IsRetryable(tt.err) != tt.retryable {
				t.Errorf("IsRetryable(err) = %v, want %v", IsRetryable(tt.err), tt.retryable)
			}
		})
	}
}

func TestClassify_PassesThroughProviderError(t *testing.T) {
	orig := &ProviderError{Category: CategoryRateLimit, Message: "wrapped"}
	got := Classify(fmt.Errorf("submit: %w", orig))
	if got != orig {
		t.Errorf("Classify() = %+v, want the original ProviderError", got)
	}
}

func TestClassify_Nil(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
	if IsRetryable(nil) {
		t.Error("IsRetryable(nil) should be false")
	}
}
