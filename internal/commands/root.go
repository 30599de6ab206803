package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankrec/internal/buildinfo"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	repo     string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "bankrec",
		Short:   "Bank reconciliation against ledger candidates",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.repo, "repo", ".", "repository directory")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides bankrec.yaml)")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(opts),
		newMatchCommand(opts),
		newCommitCommand(opts),
		newCommentCommand(opts),
	)

	return rootCmd
}
