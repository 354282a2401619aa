// ABOUTME: Resumability record mapping chunks to provider-visible state
// ABOUTME: Persisted as JSON via atomic write-then-rename
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harper/photo-critic/internal/models"
)

// Version identifies the checkpoint layout for forward compatibility.
const Version = 1

// JobRecord is the persisted state of one chunk's batch job.
type JobRecord struct {
	ProviderBatchID string    `json:"provider_batch_id,omitempty"`
	State           string    `json:"state"`
	AttemptCount    int       `json:"attempt_count"`
	SubmittedAt     time.Time `json:"submitted_at,omitempty"`
	Deadline        time.Time `json:"deadline,omitempty"`
}

// Document is the on-disk checkpoint layout.
type Document struct {
	Version   int                  `json:"version"`
	RunID     string               `json:"run_id"`
	CreatedAt time.Time            `json:"created_at"`
	Input     string               `json:"input_fingerprint,omitempty"`
	Chunks    map[string]JobRecord `json:"chunks"`
	MergedIDs []string             `json:"merged_ids"`
}

// Fingerprint derives a stable digest of the prepared input set. Two runs
// over the same files at the same positions produce the same digest, so a
// checkpoint can tell a genuine resume apart from a run over different
// images that happens to reuse the positional chunk ids.
func Fingerprint(items []models.RequestItem) string {
	h := sha256.New()
	for _, item := range items {
		fmt.Fprintf(h, "%s:%d\n", item.ID, item.Payload.Size)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Store owns the checkpoint file. All mutations flush to disk before
// returning, so the file always reflects the last confirmed state.
type Store struct {
	path   string
	doc    Document
	merged map[string]bool
}

// Open loads an existing checkpoint or starts a fresh one at path.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: Document{
			Version:   Version,
			RunID:     uuid.New().String(),
			CreatedAt: time.Now().UTC(),
			Chunks:    map[string]JobRecord{},
		},
		merged: map[string]bool{},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported checkpoint version %d in %s", doc.Version, path)
	}
	if doc.Chunks == nil {
		doc.Chunks = map[string]JobRecord{}
	}

	s.doc = doc
	for _, id := range doc.MergedIDs {
		s.merged[id] = true
	}
	return s, nil
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// BindInput ties the checkpoint to the given input fingerprint. A loaded
// document produced for a different input set is discarded and replaced by a
// fresh one, so stale positional chunk records can never claim the new
// requests. Reports whether a stale document was discarded.
func (s *Store) BindInput(fingerprint string) (bool, error) {
	if s.doc.Input == fingerprint {
		return false, nil
	}
	if s.doc.Input == "" {
		s.doc.Input = fingerprint
		return false, s.Flush()
	}

	s.doc = Document{
		Version:   Version,
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Input:     fingerprint,
		Chunks:    map[string]JobRecord{},
	}
	s.merged = map[string]bool{}
	return true, s.Flush()
}

// Remove deletes the checkpoint file. Called once every request has a
// result, so the next run starts fresh instead of resuming against records
// it has no use for. Removing an already-absent file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}

// RunID returns the id assigned when the checkpoint was first created.
func (s *Store) RunID() string {
	return s.doc.RunID
}

// Job returns the recorded state for a chunk, if any.
func (s *Store) Job(chunkID string) (JobRecord, bool) {
	rec, ok := s.doc.Chunks[chunkID]
	return rec, ok
}

// Jobs returns all recorded chunk states keyed by chunk id.
func (s *Store) Jobs() map[string]JobRecord {
	out := make(map[string]JobRecord, len(s.doc.Chunks))
	for k, v := range s.doc.Chunks {
		out[k] = v
	}
	return out
}

// PutJob records a chunk's state and flushes to disk.
func (s *Store) PutJob(chunkID string, rec JobRecord) error {
	s.doc.Chunks[chunkID] = rec
	return s.Flush()
}

// Merged reports whether a request id has already been merged into results.
func (s *Store) Merged(id string) bool {
	return s.merged[id]
}

// MergedCount returns how many request ids have been merged.
func (s *Store) MergedCount() int {
	return len(s.merged)
}

// MarkMerged records request ids as merged and flushes to disk.
func (s *Store) MarkMerged(ids []string) error {
	changed := false
	for _, id := range ids {
		if !s.merged[id] {
			s.merged[id] = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.Flush()
}

// Flush writes the checkpoint atomically: serialize to a temp file in the
// same directory, fsync, rename over the destination, fsync the directory.
// A crash mid-write never leaves a partial file observable.
func (s *Store) Flush() error {
	merged := make([]string, 0, len(s.merged))
	for id := range s.merged {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	s.doc.MergedIDs = merged

	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing checkpoint: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncDir best-effort fsyncs the parent directory to persist the rename.
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
