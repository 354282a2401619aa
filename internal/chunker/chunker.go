// ABOUTME: Splits the ordered request set into batches under provider limits
// ABOUTME: Greedy, order-preserving packing; deterministic for fixed input
package chunker

import (
	"fmt"

	"github.com/harper/photo-critic/internal/models"
)

// LimitError reports invalid chunking limits. It is a configuration error
// and aborts the run before any submission.
type LimitError struct {
	Msg string
}

func (e *LimitError) Error() string {
	return "chunking limit violation: " + e.Msg
}

// OversizeError reports a single item whose payload alone exceeds the byte
// ceiling. The item cannot be split; the caller must shrink it upstream.
type OversizeError struct {
	ID   string
	Size int64
	Max  int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("payload too large: %s is %d bytes (max %d per batch)", e.ID, e.Size, e.Max)
}

// Chunk partitions items in input order into chunks satisfying both limits.
// The partition is exact: every item lands in exactly one chunk, order is
// preserved, and identical input with identical limits always produces
// identical chunk boundaries.
func Chunk(items []models.RequestItem, maxCount int, maxBytes int64) ([]models.Chunk, error) {
	if maxCount <= 0 {
		return nil, &LimitError{Msg: fmt.Sprintf("max request count must be positive, got %d", maxCount)}
	}
	if maxBytes <= 0 {
		return nil, &LimitError{Msg: fmt.Sprintf("max byte size must be positive, got %d", maxBytes)}
	}

	var chunks []models.Chunk
	var current []models.RequestItem
	var currentBytes int64

	closeChunk := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, models.Chunk{
			ID:    fmt.Sprintf("chunk_%04d", len(chunks)),
			Items: current,
		})
		current = nil
		currentBytes = 0
	}

	for _, item := range items {
		if item.Payload.Size > maxBytes {
			return nil, &OversizeError{ID: item.ID, Size: item.Payload.Size, Max: maxBytes}
		}
		if len(current) >= maxCount || currentBytes+item.Payload.Size > maxBytes {
			closeChunk()
		}
		current = append(current, item)
		currentBytes += item.Payload.Size
	}
	closeChunk()

	return chunks, nil
}
