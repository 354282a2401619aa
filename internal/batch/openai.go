// ABOUTME: OpenAI implementation of the batch Provider interface
// ABOUTME: Uploads chunks as JSONL batch files and reads output/error files
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/photo-critic/internal/models"
	"github.com/harper/photo-critic/internal/prepare"
)

const (
	// completionWindow is the only window the Batch API currently accepts.
	completionWindow = "24h"

	maxCritiqueTokens = 1024
)

// OpenAIProvider talks to the OpenAI Batch API.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIProvider creates a provider for the given model.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &OpenAIProvider{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

// Submit uploads the chunk as a JSONL batch input file and creates the batch.
func (p *OpenAIProvider) Submit(ctx context.Context, chunk models.Chunk) (string, error) {
	req := openai.CreateBatchWithUploadFileRequest{
		Endpoint:         openai.BatchEndpointChatCompletions,
		CompletionWindow: completionWindow,
	}
	req.FileName = chunk.ID + ".jsonl"

	for _, item := range chunk.Items {
		req.AddChatCompletion(item.ID, p.chatRequest(item))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateBatchWithUploadFile(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submitting batch %s: %w", chunk.ID, Classify(err))
	}
	return resp.ID, nil
}

// Status retrieves the batch's provider-side state.
func (p *OpenAIProvider) Status(ctx context.Context, providerBatchID string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.RetrieveBatch(ctx, providerBatchID)
	if err != nil {
		return Status{}, fmt.Errorf("retrieving batch %s: %w", providerBatchID, Classify(err))
	}

	st := Status{
		ProviderBatchID: resp.ID,
		State:           resp.Status,
		Counts: Counts{
			Total:     resp.RequestCounts.Total,
			Completed: resp.RequestCounts.Completed,
			Failed:    resp.RequestCounts.Failed,
		},
	}
	if resp.OutputFileID != nil {
		st.OutputFileID = *resp.OutputFileID
	}
	if resp.ErrorFileID != nil {
		st.ErrorFileID = *resp.ErrorFileID
	}
	if resp.ExpiresAt != nil {
		st.ExpiresAt = time.Unix(int64(*resp.ExpiresAt), 0)
	}
	return st, nil
}

// Results reads the batch output and error files and returns every per-item
// outcome, keyed by the custom id carried through submission.
func (p *OpenAIProvider) Results(ctx context.Context, providerBatchID string) ([]RawResult, error) {
	st, err := p.Status(ctx, providerBatchID)
	if err != nil {
		return nil, err
	}

	var results []RawResult
	for _, fileID := range []string{st.OutputFileID, st.ErrorFileID} {
		if fileID == "" {
			continue
		}
		lines, err := p.readResultFile(ctx, fileID)
		if err != nil {
			return nil, err
		}
		results = append(results, lines...)
	}
	return results, nil
}

func (p *OpenAIProvider) readResultFile(ctx context.Context, fileID string) ([]RawResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	content, err := p.client.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("fetching result file %s: %w", fileID, Classify(err))
	}
	defer content.Close()

	// One JSON object per line, per the Batch API output format.
	type outputLine struct {
		CustomID string `json:"custom_id"`
		Response *struct {
			StatusCode int             `json:"status_code"`
			Body       json.RawMessage `json:"body"`
		} `json:"response"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	var results []RawResult
	scanner := bufio.NewScanner(content)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var out outputLine
		if err := json.Unmarshal(line, &out); err != nil {
			return nil, fmt.Errorf("parsing result line in %s: %w", fileID, err)
		}
		raw := RawResult{CustomID: out.CustomID}
		if out.Response != nil {
			raw.StatusCode = out.Response.StatusCode
			raw.Body = []byte(out.Response.Body)
		}
		if out.Error != nil {
			raw.ErrCode = out.Error.Code
			raw.ErrMsg = out.Error.Message
		}
		results = append(results, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading result file %s: %w", fileID, err)
	}
	return results, nil
}

func (p *OpenAIProvider) chatRequest(item models.RequestItem) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: maxCritiqueTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prepare.SystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    prepare.DataURL(item.Payload),
							Detail: openai.ImageURLDetailAuto,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prepare.UserPrompt,
					},
				},
			},
		},
	}
}
