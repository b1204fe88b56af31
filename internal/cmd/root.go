// Package cmd defines the medconv command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for medconv
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medconv",
		Short: "Convert raw operant-box and fiber-photometry data to standardized session archives",
		Long: `medconv converts a raw behavioral-neuroscience dataset into one
standardized, self-describing archive file per experimental session.

It parses raw operant-box log files, decodes per-program variable
dictionaries into named event streams, matches and aligns fiber
photometry recordings, resolves optogenetic stimulation trains, and
writes one aligned archive per session. Known-bad sessions are skipped
and hand-diagnosed corrections are applied automatically.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewConvertCommand())
	cmd.AddCommand(NewBatchCommand())
	cmd.AddCommand(NewInspectCommand())

	return cmd
}
