// ABOUTME: BatchJob lifecycle record and its state machine
// ABOUTME: Pending → Submitting → Submitted → Polling → terminal
package batch

import (
	"time"

	"github.com/harper/photo-critic/internal/checkpoint"
)

// JobState is the orchestration state of one chunk's batch job.
type JobState string

const (
	StatePending          JobState = "pending"
	StateSubmitting       JobState = "submitting"
	StateSubmitted        JobState = "submitted"
	StatePolling          JobState = "polling"
	StateSucceeded        JobState = "succeeded"
	StatePartiallyFailed  JobState = "partially_failed"
	StateExpired          JobState = "expired"
	StateSubmissionFailed JobState = "submission_failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobState) Terminal() bool {
	switch s {
	case StateSucceeded, StatePartiallyFailed, StateExpired, StateSubmissionFailed:
		return true
	}
	return false
}

// Collectible reports whether provider results can be fetched for this state.
// Expired and submission-failed jobs have nothing to collect; their items
// remain incomplete.
func (s JobState) Collectible() bool {
	return s == StateSucceeded || s == StatePartiallyFailed
}

// BatchJob tracks one chunk's lifecycle with the provider.
type BatchJob struct {
	ChunkID         string
	ProviderBatchID string
	State           JobState
	SubmittedAt     time.Time
	Deadline        time.Time
	AttemptCount    int
	Counts          Counts
}

// Record converts the job to its checkpoint representation.
func (j *BatchJob) Record() checkpoint.JobRecord {
	return checkpoint.JobRecord{
		ProviderBatchID: j.ProviderBatchID,
		State:           string(j.State),
		AttemptCount:    j.AttemptCount,
		SubmittedAt:     j.SubmittedAt,
		Deadline:        j.Deadline,
	}
}

// jobFromRecord restores a job from its checkpoint representation.
func jobFromRecord(chunkID string, rec checkpoint.JobRecord) *BatchJob {
	return &BatchJob{
		ChunkID:         chunkID,
		ProviderBatchID: rec.ProviderBatchID,
		State:           JobState(rec.State),
		SubmittedAt:     rec.SubmittedAt,
		Deadline:        rec.Deadline,
		AttemptCount:    rec.AttemptCount,
	}
}

// stateForProvider maps a provider-side batch status onto the job state
// machine. Batches the provider failed or cancelled may still carry partial
// output, so they land in PartiallyFailed rather than being dropped.
func stateForProvider(providerStatus string) JobState {
	switch providerStatus {
	case ProviderStatusCompleted:
		return StateSucceeded
	case ProviderStatusExpired:
		return StateExpired
	case ProviderStatusFailed, ProviderStatusCancelled:
		return StatePartiallyFailed
	default:
		return StatePolling
	}
}
