// ABOUTME: Tests for checkpoint persistence and resume semantics
// ABOUTME: Verifies round trips, merged-id idempotency, and version checks
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/photo-critic/internal/models"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "checkpoint.json")
}

func TestOpen_FreshStore(t *testing.T) {
	store, err := Open(tempPath(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.RunID() == "" {
		t.Error("fresh store should have a run id")
	}
	if len(store.Jobs()) != 0 {
		t.Error("fresh store should have no jobs")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	path := tempPath(t)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	submitted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := JobRecord{
		ProviderBatchID: "batch_abc",
		State:           "submitted",
		AttemptCount:    2,
		SubmittedAt:     submitted,
		Deadline:        submitted.Add(24 * time.Hour),
	}
	if err := store.PutJob("chunk_0000", rec); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}
	if err := store.MarkMerged([]string{"img_0001_a", "img_0000_b"}); err != nil {
		t.Fatalf("MarkMerged() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}

	got, ok := reopened.Job("chunk_0000")
	if !ok {
		t.Fatal("job not found after reopen")
	}
	if got.ProviderBatchID != "batch_abc" || got.State != "submitted" || got.AttemptCount != 2 {
		t.Errorf("job record = %+v", got)
	}
	if !got.SubmittedAt.Equal(submitted) {
		t.Errorf("SubmittedAt = %v, want %v", got.SubmittedAt, submitted)
	}
	if reopened.RunID() != store.RunID() {
		t.Error("run id changed across reopen")
	}
	if !reopened.Merged("img_0001_a") || !reopened.Merged("img_0000_b") {
		t.Error("merged ids lost across reopen")
	}
	if reopened.Merged("img_0002_c") {
		t.Error("unmerged id reported merged")
	}
}

func TestStore_MarkMergedIdempotent(t *testing.T) {
	store, err := Open(tempPath(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.MarkMerged([]string{"img_0000_a"}); err != nil {
			t.Fatalf("MarkMerged() error = %v", err)
		}
	}

	if store.MergedCount() != 1 {
		t.Errorf("MergedCount() = %d, want 1", store.MergedCount())
	}
}

func TestStore_FlushWritesValidJSON(t *testing.T) {
	path := tempPath(t)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.PutJob("chunk_0000", JobRecord{State: "submitting"}); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading checkpoint: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("checkpoint not valid JSON: %v", err)
	}
	if doc.Version != Version {
		t.Errorf("version = %d, want %d", doc.Version, Version)
	}
	if _, ok := doc.Chunks["chunk_0000"]; !ok {
		t.Error("chunk record missing from file")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("%d files in checkpoint dir, want 1", len(entries))
	}
}

func TestFingerprint(t *testing.T) {
	items := []models.RequestItem{
		{ID: "img_0000_a", Payload: models.Payload{Size: 100}},
		{ID: "img_0001_b", Payload: models.Payload{Size: 200}},
	}

	fp := Fingerprint(items)
	if fp == "" {
		t.Fatal("empty fingerprint")
	}
	if Fingerprint(items) != fp {
		t.Error("fingerprint not stable for identical input")
	}

	reordered := []models.RequestItem{items[1], items[0]}
	if Fingerprint(reordered) == fp {
		t.Error("fingerprint ignores order")
	}

	resized := []models.RequestItem{items[0], {ID: "img_0001_b", Payload: models.Payload{Size: 999}}}
	if Fingerprint(resized) == fp {
		t.Error("fingerprint ignores payload size")
	}
}

func TestStore_BindInput_SameInputResumes(t *testing.T) {
	path := tempPath(t)
	items := []models.RequestItem{{ID: "img_0000_a", Payload: models.Payload{Size: 100}}}
	fp := Fingerprint(items)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reset, err := store.BindInput(fp); err != nil || reset {
		t.Fatalf("BindInput() on fresh store = %v, %v", reset, err)
	}
	if err := store.PutJob("chunk_0000", JobRecord{ProviderBatchID: "batch_a", State: "submitted"}); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	reset, err := reopened.BindInput(fp)
	if err != nil {
		t.Fatalf("BindInput() error = %v", err)
	}
	if reset {
		t.Error("same input should not reset the checkpoint")
	}
	if _, ok := reopened.Job("chunk_0000"); !ok {
		t.Error("job record lost on genuine resume")
	}
	if reopened.RunID() != store.RunID() {
		t.Error("run id changed on genuine resume")
	}
}

func TestStore_BindInput_DifferentInputResets(t *testing.T) {
	path := tempPath(t)

	// A completed earlier run over a different image set left its records
	// behind under the same positional chunk id.
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	oldItems := []models.RequestItem{{ID: "img_0000_old", Payload: models.Payload{Size: 100}}}
	if _, err := store.BindInput(Fingerprint(oldItems)); err != nil {
		t.Fatalf("BindInput() error = %v", err)
	}
	if err := store.PutJob("chunk_0000", JobRecord{ProviderBatchID: "batch_old", State: "succeeded"}); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}
	if err := store.MarkMerged([]string{"img_0000_old"}); err != nil {
		t.Fatalf("MarkMerged() error = %v", err)
	}
	oldRunID := store.RunID()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	newItems := []models.RequestItem{{ID: "img_0000_new", Payload: models.Payload{Size: 300}}}
	reset, err := reopened.BindInput(Fingerprint(newItems))
	if err != nil {
		t.Fatalf("BindInput() error = %v", err)
	}
	if !reset {
		t.Fatal("different input should reset the checkpoint")
	}
	if _, ok := reopened.Job("chunk_0000"); ok {
		t.Error("stale chunk record survived the reset")
	}
	if reopened.Merged("img_0000_old") {
		t.Error("stale merged id survived the reset")
	}
	if reopened.RunID() == oldRunID {
		t.Error("reset kept the old run id")
	}

	// The reset is persisted, not just in memory.
	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen after reset error = %v", err)
	}
	if _, ok := again.Job("chunk_0000"); ok {
		t.Error("stale chunk record persisted past the reset")
	}
}

func TestStore_Remove(t *testing.T) {
	path := tempPath(t)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.PutJob("chunk_0000", JobRecord{State: "succeeded"}); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}

	if err := store.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("checkpoint file still exists after Remove")
	}

	// Removing twice is fine.
	if err := store.Remove(); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}

	// The next run starts clean.
	fresh, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if len(fresh.Jobs()) != 0 || fresh.RunID() == store.RunID() {
		t.Error("removed checkpoint still resumed")
	}
}

func TestOpen_RejectsUnknownVersion(t *testing.T) {
	path := tempPath(t)
	data := `{"version": 99, "run_id": "x", "chunks": {}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for unknown checkpoint version")
	}
}

func TestOpen_RejectsCorruptFile(t *testing.T) {
	path := tempPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for corrupt checkpoint")
	}
}
