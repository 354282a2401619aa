// ABOUTME: CLI command running the full critique pipeline for a directory
// ABOUTME: Discover, prepare, chunk, submit/poll, collect, report
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/photo-critic/internal/batch"
	"github.com/harper/photo-critic/internal/checkpoint"
	"github.com/harper/photo-critic/internal/chunker"
	"github.com/harper/photo-critic/internal/collector"
	"github.com/harper/photo-critic/internal/config"
	"github.com/harper/photo-critic/internal/discovery"
	"github.com/harper/photo-critic/internal/models"
	"github.com/harper/photo-critic/internal/prepare"
	"github.com/harper/photo-critic/internal/report"
	"github.com/harper/photo-critic/internal/term"
	"github.com/harper/photo-critic/internal/util"
)

var (
	critiqueOutput     string
	critiqueFormat     string
	critiqueMinScore   float64
	critiqueModel      string
	critiqueMaxImages  int
	critiqueRecursive  bool
	critiqueDryRun     bool
	critiqueConfigFile string
	critiqueCheckpoint string
)

// NewCritiqueCmd creates the critique command.
func NewCritiqueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critique <path>",
		Short: "Critique all images in a directory",
		Long: `Critique all images in a directory via the provider's batch API.

Examples:
  photo-critic critique ./photos
  photo-critic critique ./photos --format markdown --output results.md
  photo-critic critique ./photos --min-score 7.0
  photo-critic critique ./photos --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: runCritique,
	}

	cmd.Flags().StringVarP(&critiqueOutput, "output", "o", "./critic-report.json", "Output file path")
	cmd.Flags().StringVarP(&critiqueFormat, "format", "f", "", "Output format (json, markdown, both)")
	cmd.Flags().Float64Var(&critiqueMinScore, "min-score", 0, "Only include images above this score")
	cmd.Flags().StringVar(&critiqueModel, "model", "", "Model to use (default from config)")
	cmd.Flags().IntVar(&critiqueMaxImages, "max-images", 0, "Limit number of images to process")
	cmd.Flags().BoolVarP(&critiqueRecursive, "recursive", "r", false, "Include subdirectories")
	cmd.Flags().BoolVar(&critiqueDryRun, "dry-run", false, "Show what would be processed without calling the API")
	cmd.Flags().StringVar(&critiqueConfigFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&critiqueCheckpoint, "checkpoint", "", "Checkpoint file path")

	return cmd
}

func runCritique(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if critiqueConfigFile != "" {
		if err := cfg.LoadFromYAML(critiqueConfigFile); err != nil {
			return err
		}
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger, cleanup := config.SetupLogger(cfg.LogFile, level)
	defer func() { _ = cleanup() }()

	printer := term.NewPrinter(cmd.OutOrStdout(), quiet)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Discovery
	printer.Stage(1, "Discovering images...")
	images, err := discovery.Discover(args[0], critiqueRecursive, cfg.MaxImages)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		printer.Info("No images found.")
		return nil
	}
	printer.DiscoveryTable(discovery.GetStats(images))

	if critiqueDryRun {
		printer.Info("\nDry run - stopping here.")
		printer.Info("Would process %d images:", len(images))
		for i, img := range images {
			if i == 10 {
				printer.Info("  ... and %d more", len(images)-10)
				break
			}
			printer.Info("  - %s", img.Name)
		}
		return nil
	}

	// 2. Preparation
	printer.Stage(2, "Preparing batch...")
	store, err := checkpoint.Open(cfg.CheckpointPath)
	if err != nil {
		return err
	}
	coll := collector.New(store, logger)

	var items []models.RequestItem
	for i, img := range images {
		item, err := prepare.Prepare(img, i)
		if err != nil {
			if errors.Is(err, prepare.ErrCorruptInput) {
				logger.Warn("skipping corrupt image", "path", img.Path, "error", err)
				coll.Record(models.ResultItem{
					ID:       prepare.RequestID(i, img.Path),
					Path:     img.Path,
					Filename: img.Name,
					Index:    i,
					ErrKind:  models.ErrCorruptInput,
					ErrMsg:   err.Error(),
				})
				continue
			}
			return err
		}
		// An item that alone exceeds the byte ceiling can never be
		// batched; record it and keep the run going.
		if item.Payload.Size > cfg.Limits.MaxBytesPerBatch {
			printer.Error("payload too large: %s (%d bytes)", img.Name, item.Payload.Size)
			coll.Record(models.ErrorResult(item, models.ErrPayloadTooLarge,
				fmt.Sprintf("encoded payload is %d bytes (max %d per batch)", item.Payload.Size, cfg.Limits.MaxBytesPerBatch)))
			continue
		}
		items = append(items, item)
	}
	printer.Success("Prepared %d requests", len(items))

	if len(items) == 0 && len(coll.Results()) == 0 {
		printer.Info("No images could be processed.")
		return nil
	}

	// Chunk ids are positional, so a checkpoint left by a run over other
	// images would otherwise claim these requests without ever submitting
	// them.
	reset, err := store.BindInput(checkpoint.Fingerprint(items))
	if err != nil {
		return err
	}
	if reset {
		printer.Hint("Existing checkpoint was for a different image set; starting fresh.")
	}

	var jobs []*batch.BatchJob
	chunkByID := map[string]models.Chunk{}
	var chunks []models.Chunk

	if len(items) > 0 {
		// 3. Chunking
		printer.Stage(3, "Chunking requests...")
		chunks, err = chunker.Chunk(items, cfg.Limits.MaxRequestsPerBatch, cfg.Limits.MaxBytesPerBatch)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			chunkByID[c.ID] = c
		}
		printer.Info("  %d chunk(s) under %d requests / %d bytes each",
			len(chunks), cfg.Limits.MaxRequestsPerBatch, cfg.Limits.MaxBytesPerBatch)

		// 4. Submission and polling
		printer.Stage(4, "Submitting and polling batches...")
		printer.Hint("This may take a while. You can safely interrupt and re-run to resume.")

		provider, err := batch.NewOpenAIProvider(cfg.OpenAIKey, cfg.Model, cfg.Timeout)
		if err != nil {
			return err
		}
		orch := batch.New(provider, store, batch.Options{
			PollInterval: cfg.PollInterval,
			MaxLifetime:  cfg.MaxBatchLifetime,
			Policy: util.Policy{
				BaseDelay:   cfg.RetryBaseDelay,
				Multiplier:  2,
				MaxAttempts: cfg.RetryMaxAttempt,
			},
			Progress: printer,
			Logger:   logger,
		})

		var runErr error
		jobs, runErr = orch.Run(ctx, chunks)
		if runErr != nil {
			printer.Error("\nInterrupted. Checkpoint saved to %s", store.Path())
			for _, job := range jobs {
				if job.ProviderBatchID != "" {
					printer.Hint("  %s → batch %s (%s)", job.ChunkID, job.ProviderBatchID, job.State)
				}
			}
			printer.Hint("Re-run the same command to resume; submitted batches are not resubmitted.")
			return nil
		}

		// 5. Collection
		printer.Stage(5, "Collecting results...")
		for _, job := range jobs {
			chunk := chunkByID[job.ChunkID]
			if !job.State.Collectible() {
				printer.Error("  chunk %s ended %s; %d item(s) without results",
					job.ChunkID, job.State, len(chunk.Items))
				continue
			}
			if err := coll.Collect(ctx, provider, job, chunk); err != nil {
				logger.Error("collection failed", "chunk", job.ChunkID, "error", err)
				printer.Error("  chunk %s: collection failed: %v", job.ChunkID, err)
			}
		}
	}

	// 6. Report
	printer.Stage(6, "Generating report...")
	incomplete := countIncomplete(jobs, chunkByID, coll.Results())
	rep := report.Aggregate(coll.Results(), incomplete, cfg.MinScore, models.DefaultTiers, time.Now())
	written, err := report.Write(rep, critiqueOutput, cfg.OutputFormat)
	if err != nil {
		return err
	}

	printer.Summary(rep.Statistics)
	for _, path := range written {
		printer.Success("Report saved to: %s", path)
	}

	// Every request resolved: the checkpoint has nothing left to resume and
	// would only shadow a future run.
	if incomplete == 0 {
		if err := store.Remove(); err != nil {
			logger.Warn("could not remove checkpoint", "path", store.Path(), "error", err)
		} else {
			logger.Info("run complete, checkpoint removed", "path", store.Path())
		}
	}
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("format") {
		cfg.OutputFormat = critiqueFormat
	}
	if cmd.Flags().Changed("min-score") {
		cfg.MinScore = critiqueMinScore
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = critiqueModel
	}
	if cmd.Flags().Changed("max-images") {
		cfg.MaxImages = critiqueMaxImages
	}
	if cmd.Flags().Changed("checkpoint") {
		cfg.CheckpointPath = critiqueCheckpoint
	}
}

// countIncomplete counts requests that ended the run with neither a success
// nor an error result: items of expired, submission-failed, or uncollected
// chunks.
func countIncomplete(jobs []*batch.BatchJob, chunkByID map[string]models.Chunk, results map[string]models.ResultItem) int {
	incomplete := 0
	for _, job := range jobs {
		for _, item := range chunkByID[job.ChunkID].Items {
			if _, ok := results[item.ID]; !ok {
				incomplete++
			}
		}
	}
	return incomplete
}
