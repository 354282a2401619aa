// ABOUTME: Root CLI command wiring subcommands and global flags
// ABOUTME: Entry point for critique, status, and version
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo-critic",
		Short: "AI-powered batch photo criticism",
		Long: `Photo Critic - AI-powered batch photo criticism using vision APIs.

Analyze a folder of images and generate detailed critiques with scores.
Submissions go through the provider's batch API; interrupted runs resume
from a checkpoint without resubmitting.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	cmd.AddCommand(NewCritiqueCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
