// ABOUTME: Tests for result reconciliation and critique parsing
// ABOUTME: Covers id matching, missing results, rejections, and idempotency
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/harper/photo-critic/internal/batch"
	"github.com/harper/photo-critic/internal/checkpoint"
	"github.com/harper/photo-critic/internal/models"
)

type stubProvider struct {
	results map[string][]batch.RawResult
	calls   int
}

func (p *stubProvider) Submit(context.Context, models.Chunk) (string, error) {
	return "", fmt.Errorf("not used")
}

func (p *stubProvider) Status(context.Context, string) (batch.Status, error) {
	return batch.Status{}, fmt.Errorf("not used")
}

func (p *stubProvider) Results(_ context.Context, batchID string) ([]batch.RawResult, error) {
	p.calls++
	return p.results[batchID], nil
}

func testStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "cp.json"))
	if err != nil {
		t.Fatalf("checkpoint.Open() error = %v", err)
	}
	return store
}

func critiqueBody(t *testing.T, overall float64) []byte {
	t.Helper()
	critique := fmt.Sprintf(`{"composition_score": 8, "lighting_score": 7, "subject_score": 9, "technical_score": 6, "overall_score": %g, "summary": "solid frame"}`, overall)
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": critique}},
		},
	}
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	return body
}

func testChunk() models.Chunk {
	return models.Chunk{
		ID: "chunk_0000",
		Items: []models.RequestItem{
			{ID: "img_0000_a", Path: "/p/a.jpg", Filename: "a.jpg", Index: 0},
			{ID: "img_0001_b", Path: "/p/b.jpg", Filename: "b.jpg", Index: 1},
			{ID: "img_0002_c", Path: "/p/c.jpg", Filename: "c.jpg", Index: 2},
		},
	}
}

func succeededJob() *batch.BatchJob {
	return &batch.BatchJob{
		ChunkID:         "chunk_0000",
		ProviderBatchID: "batch_1",
		State:           batch.StateSucceeded,
	}
}

func TestCollect_MatchesByCustomID(t *testing.T) {
	provider := &stubProvider{results: map[string][]batch.RawResult{
		// Provider order differs from chunk order on purpose.
		"batch_1": {
			{CustomID: "img_0002_c", StatusCode: 200, Body: critiqueBody(t, 6.5)},
			{CustomID: "img_0000_a", StatusCode: 200, Body: critiqueBody(t, 9.0)},
			{CustomID: "img_0001_b", StatusCode: 200, Body: critiqueBody(t, 7.2)},
		},
	}}
	store := testStore(t)
	coll := New(store, nil)

	if err := coll.Collect(context.Background(), provider, succeededJob(), testChunk()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	results := coll.Results()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantOverall := map[string]float64{"img_0000_a": 9.0, "img_0001_b": 7.2, "img_0002_c": 6.5}
	for id, want := range wantOverall {
		res, ok := results[id]
		if !ok || !res.Succeeded() {
			t.Fatalf("no success for %s: %+v", id, res)
		}
		if res.Overall() != want {
			t.Errorf("%s overall = %v, want %v", id, res.Overall(), want)
		}
	}
	for _, id := range []string{"img_0000_a", "img_0001_b", "img_0002_c"} {
		if !store.Merged(id) {
			t.Errorf("id %s not marked merged", id)
		}
	}
}

func TestCollect_MissingResponseBecomesMissingResult(t *testing.T) {
	provider := &stubProvider{results: map[string][]batch.RawResult{
		"batch_1": {
			{CustomID: "img_0000_a", StatusCode: 200, Body: critiqueBody(t, 8.0)},
			// img_0001_b absent, img_0002_c absent.
		},
	}}
	coll := New(testStore(t), nil)

	if err := coll.Collect(context.Background(), provider, succeededJob(), testChunk()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	for _, id := range []string{"img_0001_b", "img_0002_c"} {
		res := coll.Results()[id]
		if res.Succeeded() {
			t.Fatalf("%s should be an error result", id)
		}
		if res.ErrKind != models.ErrMissingResult {
			t.Errorf("%s ErrKind = %s, want %s", id, res.ErrKind, models.ErrMissingResult)
		}
	}
}

func TestCollect_EmptyOutputAfterPartialFailure(t *testing.T) {
	// A batch that ended with no output at all: every item becomes a
	// missing_result, none silently disappears.
	provider := &stubProvider{results: map[string][]batch.RawResult{}}
	job := succeededJob()
	job.State = batch.StatePartiallyFailed
	coll := New(testStore(t), nil)

	if err := coll.Collect(context.Background(), provider, job, testChunk()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(coll.Results()) != 3 {
		t.Fatalf("got %d results, want 3", len(coll.Results()))
	}
	for id, res := range coll.Results() {
		if res.ErrKind != models.ErrMissingResult {
			t.Errorf("%s ErrKind = %s, want missing_result", id, res.ErrKind)
		}
	}
}

func TestCollect_ProviderRejection(t *testing.T) {
	provider := &stubProvider{results: map[string][]batch.RawResult{
		"batch_1": {
			{CustomID: "img_0000_a", StatusCode: 200, Body: critiqueBody(t, 8.0)},
			{CustomID: "img_0001_b", StatusCode: 400, ErrMsg: "image too large"},
			{CustomID: "img_0002_c", StatusCode: 500},
		},
	}}
	coll := New(testStore(t), nil)

	if err := coll.Collect(context.Background(), provider, succeededJob(), testChunk()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	rejected := coll.Results()["img_0001_b"]
	if rejected.ErrKind != models.ErrProviderRejected || rejected.ErrMsg != "image too large" {
		t.Errorf("rejection = %q %q", rejected.ErrKind, rejected.ErrMsg)
	}
	noMsg := coll.Results()["img_0002_c"]
	if noMsg.ErrKind != models.ErrProviderRejected || noMsg.ErrMsg != "provider returned status 500" {
		t.Errorf("status-only rejection = %q %q", noMsg.ErrKind, noMsg.ErrMsg)
	}
}

func TestCollect_Idempotent(t *testing.T) {
	provider := &stubProvider{results: map[string][]batch.RawResult{
		"batch_1": {
			{CustomID: "img_0000_a", StatusCode: 200, Body: critiqueBody(t, 8.0)},
			{CustomID: "img_0001_b", StatusCode: 200, Body: critiqueBody(t, 7.0)},
			{CustomID: "img_0002_c", StatusCode: 200, Body: critiqueBody(t, 6.0)},
		},
	}}
	store := testStore(t)
	coll := New(store, nil)
	job := succeededJob()
	chunk := testChunk()

	for i := 0; i < 2; i++ {
		if err := coll.Collect(context.Background(), provider, job, chunk); err != nil {
			t.Fatalf("Collect() #%d error = %v", i, err)
		}
	}

	if len(coll.Results()) != 3 {
		t.Errorf("got %d results after double collect, want 3", len(coll.Results()))
	}
	if store.MergedCount() != 3 {
		t.Errorf("MergedCount() = %d, want 3", store.MergedCount())
	}
}

func TestCollect_RefusesNonCollectibleStates(t *testing.T) {
	coll := New(testStore(t), nil)
	for _, state := range []batch.JobState{batch.StateExpired, batch.StateSubmissionFailed, batch.StatePolling} {
		job := succeededJob()
		job.State = state
		if err := coll.Collect(context.Background(), &stubProvider{}, job, testChunk()); err == nil {
			t.Errorf("Collect() in state %s should fail", state)
		}
	}
}

func TestCollect_RecordedErrorIsNotOverwritten(t *testing.T) {
	provider := &stubProvider{results: map[string][]batch.RawResult{
		"batch_1": {
			{CustomID: "img_0000_a", StatusCode: 200, Body: critiqueBody(t, 8.0)},
		},
	}}
	coll := New(testStore(t), nil)

	// Locally recorded before collection, e.g. a corrupt input.
	item := testChunk().Items[0]
	coll.Record(models.ErrorResult(item, models.ErrCorruptInput, "unreadable"))

	if err := coll.Collect(context.Background(), provider, succeededJob(), testChunk()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	res := coll.Results()["img_0000_a"]
	if res.ErrKind != models.ErrCorruptInput {
		t.Errorf("recorded result overwritten: %+v", res)
	}
}

type scriptedProvider struct {
	stubProvider
	submitted []string
}

func (p *scriptedProvider) Submit(_ context.Context, chunk models.Chunk) (string, error) {
	p.submitted = append(p.submitted, chunk.ID)
	return "batch_new", nil
}

func (p *scriptedProvider) Status(_ context.Context, batchID string) (batch.Status, error) {
	return batch.Status{ProviderBatchID: batchID, State: batch.ProviderStatusCompleted}, nil
}

func TestCollect_ResetCheckpointSubmitsNewInput(t *testing.T) {
	// An earlier completed run left its checkpoint behind; this run covers a
	// different image under the same positional chunk id. Binding the input
	// fingerprint must discard the stale record so the new image is actually
	// submitted and collected, not stamped missing_result.
	store := testStore(t)
	oldItems := []models.RequestItem{{ID: "img_0000_old", Payload: models.Payload{Size: 100}}}
	if _, err := store.BindInput(checkpoint.Fingerprint(oldItems)); err != nil {
		t.Fatalf("BindInput() error = %v", err)
	}
	if err := store.PutJob("chunk_0000", checkpoint.JobRecord{
		ProviderBatchID: "batch_old",
		State:           string(batch.StateSucceeded),
	}); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}

	newItem := models.RequestItem{ID: "img_0000_fresh", Path: "/p/fresh.jpg", Filename: "fresh.jpg", Payload: models.Payload{Size: 300}}
	chunk := models.Chunk{ID: "chunk_0000", Items: []models.RequestItem{newItem}}

	reset, err := store.BindInput(checkpoint.Fingerprint(chunk.Items))
	if err != nil {
		t.Fatalf("BindInput() error = %v", err)
	}
	if !reset {
		t.Fatal("stale checkpoint should have been reset")
	}

	provider := &scriptedProvider{}
	provider.results = map[string][]batch.RawResult{
		"batch_new": {{CustomID: "img_0000_fresh", StatusCode: 200, Body: critiqueBody(t, 8.0)}},
	}

	jobs, err := batch.New(provider, store, batch.Options{}).Run(context.Background(), []models.Chunk{chunk})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(provider.submitted) != 1 || provider.submitted[0] != "chunk_0000" {
		t.Fatalf("submitted = %v, want the new chunk", provider.submitted)
	}
	if jobs[0].ProviderBatchID != "batch_new" {
		t.Fatalf("batch id = %s, want batch_new", jobs[0].ProviderBatchID)
	}

	coll := New(store, nil)
	if err := coll.Collect(context.Background(), provider, jobs[0], chunk); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	res := coll.Results()["img_0000_fresh"]
	if !res.Succeeded() {
		t.Fatalf("result = %+v, want a critique, not %s", res, res.ErrKind)
	}
	if res.Overall() != 8.0 {
		t.Errorf("overall = %v, want 8.0", res.Overall())
	}
}

func TestParseCritique(t *testing.T) {
	body := `{"composition_score": 8, "lighting_score": 7, "subject_score": 9, "technical_score": 6, "summary": "nice"}`

	tests := []struct {
		name    string
		content string
	}{
		{"bare json", body},
		{"json fence", "```json\n" + body + "\n```"},
		{"plain fence", "```\n" + body + "\n```"},
		{"surrounding whitespace", "\n  " + body + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			critique, err := ParseCritique(tt.content)
			if err != nil {
				t.Fatalf("ParseCritique() error = %v", err)
			}
			if critique.CompositionScore != 8 || critique.Summary != "nice" {
				t.Errorf("critique = %+v", critique)
			}
			if critique.OverallScore != 7.5 {
				t.Errorf("OverallScore = %v, want derived 7.5", critique.OverallScore)
			}
		})
	}
}

func TestParseCritique_Invalid(t *testing.T) {
	if _, err := ParseCritique("I cannot critique this image."); err == nil {
		t.Error("expected error for prose response")
	}
}
