// ABOUTME: Reconciles provider batch output against original request ids
// ABOUTME: Idempotent merge: recorded results are never overwritten
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/photo-critic/internal/batch"
	"github.com/harper/photo-critic/internal/checkpoint"
	"github.com/harper/photo-critic/internal/models"
)

// Collector accumulates the run's result mapping. Append-only: an id that
// already has a result keeps it, so collecting a job twice is idempotent.
type Collector struct {
	store   *checkpoint.Store
	logger  *slog.Logger
	results map[string]models.ResultItem
}

// New creates an empty collector backed by the checkpoint store.
func New(store *checkpoint.Store, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		store:   store,
		logger:  logger,
		results: map[string]models.ResultItem{},
	}
}

// Record adds a locally produced result (e.g. a corrupt-input error) unless
// one already exists for the id.
func (c *Collector) Record(item models.ResultItem) {
	if _, ok := c.results[item.ID]; ok {
		return
	}
	c.results[item.ID] = item
}

// Results returns the merged result mapping.
func (c *Collector) Results() map[string]models.ResultItem {
	return c.results
}

// Collect fetches a terminal job's provider output and merges it. Responses
// are matched by the stable custom id, never by position. Items with no
// response after a collectible batch become missing_result errors.
func (c *Collector) Collect(ctx context.Context, provider batch.Provider, job *batch.BatchJob, chunk models.Chunk) error {
	if !job.State.Collectible() {
		return fmt.Errorf("cannot collect chunk %s in state %s", job.ChunkID, job.State)
	}

	raws, err := provider.Results(ctx, job.ProviderBatchID)
	if err != nil {
		return fmt.Errorf("collecting chunk %s: %w", job.ChunkID, err)
	}

	byID := make(map[string]batch.RawResult, len(raws))
	for _, raw := range raws {
		byID[raw.CustomID] = raw
	}

	var mergedIDs []string
	for _, item := range chunk.Items {
		if _, ok := c.results[item.ID]; ok {
			continue
		}
		raw, ok := byID[item.ID]
		switch {
		case !ok:
			c.results[item.ID] = models.ErrorResult(item, models.ErrMissingResult, "no response from provider")
		case raw.Failed():
			msg := raw.ErrMsg
			if msg == "" {
				msg = fmt.Sprintf("provider returned status %d", raw.StatusCode)
			}
			c.results[item.ID] = models.ErrorResult(item, models.ErrProviderRejected, msg)
		default:
			c.results[item.ID] = c.parseSuccess(item, raw)
		}
		mergedIDs = append(mergedIDs, item.ID)
	}

	if err := c.store.MarkMerged(mergedIDs); err != nil {
		return fmt.Errorf("recording merged ids for chunk %s: %w", job.ChunkID, err)
	}

	c.logger.Info("chunk results merged",
		"chunk", job.ChunkID, "batch_id", job.ProviderBatchID, "merged", len(mergedIDs))
	return nil
}

// parseSuccess turns a raw chat completion into a Success or, when the body
// cannot be understood, a provider_rejected error for that item only.
func (c *Collector) parseSuccess(item models.RequestItem, raw batch.RawResult) models.ResultItem {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return models.ErrorResult(item, models.ErrProviderRejected,
			fmt.Sprintf("unparseable response body: %v", err))
	}
	if len(resp.Choices) == 0 {
		return models.ErrorResult(item, models.ErrProviderRejected, "no completion choices returned")
	}

	critique, err := ParseCritique(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("critique parse failed", "id", item.ID, "error", err)
		return models.ErrorResult(item, models.ErrProviderRejected,
			fmt.Sprintf("unparseable critique: %v", err))
	}

	return models.ResultItem{
		ID:       item.ID,
		Path:     item.Path,
		Filename: item.Filename,
		Index:    item.Index,
		Critique: critique,
	}
}

// ParseCritique parses the model's JSON critique, tolerating markdown code
// fences around the object.
func ParseCritique(content string) (*models.Critique, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var critique models.Critique
	if err := json.Unmarshal([]byte(content), &critique); err != nil {
		return nil, err
	}
	critique.ComputeOverall()
	return &critique, nil
}
