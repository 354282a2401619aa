// ABOUTME: CLI command printing the checkpoint contents for a run
// ABOUTME: Shows chunk states, provider batch ids, and merged counts
package commands

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/photo-critic/internal/checkpoint"
	"github.com/harper/photo-critic/internal/config"
)

var statusCheckpoint string

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of an interrupted run",
		Long:  `Display the checkpoint of an interrupted run: per-chunk batch state and how many results are already merged.`,
		RunE:  runStatus,
	}

	cmd.Flags().StringVar(&statusCheckpoint, "checkpoint", "", "Checkpoint file path")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if statusCheckpoint != "" {
		cfg.CheckpointPath = statusCheckpoint
	}

	store, err := checkpoint.Open(cfg.CheckpointPath)
	if err != nil {
		return err
	}

	jobs := store.Jobs()
	if len(jobs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No checkpoint at %s\n", cfg.CheckpointPath)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s (%s)\n\n", store.RunID(), cfg.CheckpointPath)

	chunkIDs := make([]string, 0, len(jobs))
	for id := range jobs {
		chunkIDs = append(chunkIDs, id)
	}
	sort.Strings(chunkIDs)

	for _, id := range chunkIDs {
		rec := jobs[id]
		batchID := rec.ProviderBatchID
		if batchID == "" {
			batchID = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-18s  %s\n", id, rec.State, batchID)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d result(s) merged\n", store.MergedCount())
	return nil
}
