// Package cli assembles the pacwatch commands: a one-shot run, the watch
// daemon, and version. Configuration comes from PACWATCH_* environment
// variables; flags override individual values on top.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the pacwatch CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pacwatch",
		Short: "pacwatch announces new independent expenditures",
		Long: `pacwatch polls a campaign-finance disclosure feed for independent
expenditures, keeps a rolling ledger of what it has already seen, and
announces anything new.

Configuration is read from PACWATCH_* environment variables; command
flags override individual values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// version is stamped at build time via -ldflags "-X pacwatch/internal/cli.version=...".
var version = "dev"

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pacwatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pacwatch %s\n", version)
		},
	}
}
