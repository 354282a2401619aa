// ABOUTME: Provider abstraction over the hosted batch API
// ABOUTME: Submit, status, and results; implemented by the OpenAI client
package batch

import (
	"context"
	"time"

	"github.com/harper/photo-critic/internal/models"
)

// Provider-side batch status strings, per the OpenAI Batch API.
const (
	ProviderStatusValidating = "validating"
	ProviderStatusInProgress = "in_progress"
	ProviderStatusFinalizing = "finalizing"
	ProviderStatusCompleted  = "completed"
	ProviderStatusFailed     = "failed"
	ProviderStatusExpired    = "expired"
	ProviderStatusCancelling = "cancelling"
	ProviderStatusCancelled  = "cancelled"
)

// Counts mirrors the provider's per-batch request counters.
type Counts struct {
	Total     int
	Completed int
	Failed    int
}

// Status is one observation of a provider batch.
type Status struct {
	ProviderBatchID string
	State           string
	Counts          Counts
	OutputFileID    string
	ErrorFileID     string
	ExpiresAt       time.Time
}

// RawResult is one line of provider output, matched by custom id.
type RawResult struct {
	CustomID   string
	StatusCode int
	Body       []byte
	ErrCode    string
	ErrMsg     string
}

// Failed reports whether the provider recorded an error for this item.
func (r RawResult) Failed() bool {
	return r.ErrMsg != "" || (r.StatusCode != 0 && r.StatusCode != 200)
}

// Provider is the hosted batch API surface the orchestrator depends on.
// Implementations must carry the item's stable id through as the custom id.
type Provider interface {
	// Submit uploads a chunk as one batch and returns the provider batch id.
	Submit(ctx context.Context, chunk models.Chunk) (string, error)

	// Status retrieves the current state of a submitted batch.
	Status(ctx context.Context, providerBatchID string) (Status, error)

	// Results retrieves all per-item outcomes of an ended batch.
	Results(ctx context.Context, providerBatchID string) ([]RawResult, error)
}
