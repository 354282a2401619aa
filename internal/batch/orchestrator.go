// ABOUTME: Batch orchestration: submit chunks, poll to terminal state
// ABOUTME: Single sequential loop; every transition checkpointed before the next step
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/photo-critic/internal/checkpoint"
	"github.com/harper/photo-critic/internal/models"
	"github.com/harper/photo-critic/internal/util"
)

// ProgressSink receives job updates for display. Implementations must not
// block; the orchestrator calls it from its single loop.
type ProgressSink interface {
	JobUpdate(chunkID string, state JobState, counts Counts)
}

// Options configures an Orchestrator. Zero fields take defaults.
type Options struct {
	PollInterval time.Duration
	MaxLifetime  time.Duration
	Policy       util.Policy
	Clock        Clock
	Progress     ProgressSink
	Logger       *slog.Logger
}

// Orchestrator owns all BatchJobs for a run. It is not safe for concurrent
// use; one orchestration flow exists per invocation.
type Orchestrator struct {
	provider     Provider
	store        *checkpoint.Store
	clock        Clock
	policy       util.Policy
	pollInterval time.Duration
	maxLifetime  time.Duration
	progress     ProgressSink
	logger       *slog.Logger
}

// New creates an orchestrator over the given provider and checkpoint store.
func New(provider Provider, store *checkpoint.Store, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = 24 * time.Hour
	}
	if opts.Policy == (util.Policy{}) {
		opts.Policy = util.DefaultPolicy
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		provider:     provider,
		store:        store,
		clock:        opts.Clock,
		policy:       opts.Policy,
		pollInterval: opts.PollInterval,
		maxLifetime:  opts.MaxLifetime,
		progress:     opts.Progress,
		logger:       opts.Logger,
	}
}

// Run drives every chunk to a terminal state and returns the jobs in chunk
// order. On cancellation the checkpoint is flushed and the jobs seen so far
// are returned with ctx's error; a later run resumes from the checkpoint
// without resubmitting.
func (o *Orchestrator) Run(ctx context.Context, chunks []models.Chunk) ([]*BatchJob, error) {
	jobs := make([]*BatchJob, 0, len(chunks))

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			o.flush()
			return jobs, err
		}
		job, err := o.ensureSubmitted(ctx, chunk)
		if err != nil {
			o.flush()
			return jobs, err
		}
		jobs = append(jobs, job)
	}

	if err := o.pollAll(ctx, jobs); err != nil {
		return jobs, err
	}
	return jobs, nil
}

// ensureSubmitted restores the chunk's job from the checkpoint, or submits
// it. A chunk whose provider batch id is already recorded in a non-failed
// state is never resubmitted.
func (o *Orchestrator) ensureSubmitted(ctx context.Context, chunk models.Chunk) (*BatchJob, error) {
	if rec, ok := o.store.Job(chunk.ID); ok {
		if rec.ProviderBatchID != "" && rec.State != string(StateSubmissionFailed) {
			job := jobFromRecord(chunk.ID, rec)
			o.logger.Info("resuming chunk from checkpoint",
				"chunk", chunk.ID, "batch_id", job.ProviderBatchID, "state", job.State)
			o.notify(job)
			return job, nil
		}
	}
	return o.submit(ctx, chunk)
}

// submit drives Pending → Submitting → Submitted (or SubmissionFailed),
// retrying transient failures with the backoff policy. The Submitting
// transition is checkpointed before the first provider call so a crash
// between the call and the Submitted record is detectable.
func (o *Orchestrator) submit(ctx context.Context, chunk models.Chunk) (*BatchJob, error) {
	job := &BatchJob{ChunkID: chunk.ID, State: StateSubmitting}
	if err := o.store.PutJob(chunk.ID, job.Record()); err != nil {
		return nil, err
	}
	o.notify(job)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if o.policy.Exhausted(attempt) {
				break
			}
			if err := o.clock.Sleep(ctx, o.policy.Delay(attempt)); err != nil {
				return job, err
			}
		}
		job.AttemptCount = attempt + 1

		batchID, err := o.provider.Submit(ctx, chunk)
		if err == nil {
			now := o.clock.Now()
			job.ProviderBatchID = batchID
			job.State = StateSubmitted
			job.SubmittedAt = now
			job.Deadline = now.Add(o.maxLifetime)
			if err := o.store.PutJob(chunk.ID, job.Record()); err != nil {
				return nil, err
			}
			o.logger.Info("batch submitted",
				"chunk", chunk.ID, "batch_id", batchID, "items", len(chunk.Items))
			o.notify(job)
			return job, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
		o.logger.Warn("batch submission failed, retrying",
			"chunk", chunk.ID, "attempt", job.AttemptCount, "error", err)
	}

	job.State = StateSubmissionFailed
	if err := o.store.PutJob(chunk.ID, job.Record()); err != nil {
		return nil, err
	}
	o.logger.Error("batch submission failed permanently",
		"chunk", chunk.ID, "attempts", job.AttemptCount, "error", lastErr)
	o.notify(job)
	return job, nil
}

// pollAll repeatedly polls every in-flight job until all are terminal.
// Cancellation is observed at the top of each iteration.
func (o *Orchestrator) pollAll(ctx context.Context, jobs []*BatchJob) error {
	for {
		if err := ctx.Err(); err != nil {
			o.flush()
			return err
		}

		inflight := 0
		for _, job := range jobs {
			if job.State.Terminal() {
				continue
			}
			inflight++
			if err := o.pollJob(ctx, job); err != nil {
				o.flush()
				return err
			}
		}
		if inflight == 0 {
			return nil
		}

		if done := o.allTerminal(jobs); done {
			return nil
		}
		if err := o.clock.Sleep(ctx, o.pollInterval); err != nil {
			o.flush()
			return err
		}
	}
}

// pollJob performs one poll cycle for a job: deadline check, then a status
// query retried with backoff. A cycle whose retries are exhausted is logged
// and retried at the next interval rather than abandoning the job.
func (o *Orchestrator) pollJob(ctx context.Context, job *BatchJob) error {
	if !job.Deadline.IsZero() && o.clock.Now().After(job.Deadline) {
		job.State = StateExpired
		if err := o.store.PutJob(job.ChunkID, job.Record()); err != nil {
			return err
		}
		o.logger.Warn("batch exceeded maximum lifetime",
			"chunk", job.ChunkID, "batch_id", job.ProviderBatchID, "deadline", job.Deadline)
		o.notify(job)
		return nil
	}

	st, err := o.statusWithRetry(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warn("poll cycle failed, will retry at next interval",
			"chunk", job.ChunkID, "batch_id", job.ProviderBatchID, "error", err)
		return nil
	}

	return o.applyStatus(job, st)
}

func (o *Orchestrator) statusWithRetry(ctx context.Context, job *BatchJob) (Status, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if o.policy.Exhausted(attempt) {
				break
			}
			if err := o.clock.Sleep(ctx, o.policy.Delay(attempt)); err != nil {
				return Status{}, err
			}
		}
		st, err := o.provider.Status(ctx, job.ProviderBatchID)
		if err == nil {
			return st, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return Status{}, fmt.Errorf("polling batch %s: %w", job.ProviderBatchID, lastErr)
}

// applyStatus advances the state machine from a provider observation and
// checkpoints any transition.
func (o *Orchestrator) applyStatus(job *BatchJob, st Status) error {
	job.Counts = st.Counts

	next := stateForProvider(st.State)
	if next == job.State {
		o.notify(job)
		return nil
	}

	job.State = next
	if err := o.store.PutJob(job.ChunkID, job.Record()); err != nil {
		return err
	}

	switch {
	case next == StateSucceeded:
		o.logger.Info("batch completed",
			"chunk", job.ChunkID, "batch_id", job.ProviderBatchID,
			"completed", st.Counts.Completed, "failed", st.Counts.Failed)
	case next == StateExpired:
		o.logger.Warn("batch expired at provider",
			"chunk", job.ChunkID, "batch_id", job.ProviderBatchID)
	case next == StatePartiallyFailed:
		o.logger.Warn("batch ended abnormally",
			"chunk", job.ChunkID, "batch_id", job.ProviderBatchID, "provider_state", st.State)
	}
	o.notify(job)
	return nil
}

func (o *Orchestrator) allTerminal(jobs []*BatchJob) bool {
	for _, job := range jobs {
		if !job.State.Terminal() {
			return false
		}
	}
	return true
}

func (o *Orchestrator) notify(job *BatchJob) {
	if o.progress != nil {
		o.progress.JobUpdate(job.ChunkID, job.State, job.Counts)
	}
}

func (o *Orchestrator) flush() {
	if err := o.store.Flush(); err != nil {
		o.logger.Error("checkpoint flush failed", "error", err)
	}
}
