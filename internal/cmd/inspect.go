package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lernerlab/medconv/internal/events"
	"github.com/lernerlab/medconv/internal/medpc"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <log-file>...",
		Short: "List the sessions recorded in raw log files",
		Long: `List every session block found in the given raw log files without
converting anything. Useful for triaging a fresh dataset drop: the
output shows each session's identity and whether its program name is in
the decoding table.

Examples:
  medconv inspect 95.259
  medconv inspect raw/DPR/*/*`,
		Args: cobra.MinimumNArgs(1),
		RunE: inspectCommand,
	}
	return cmd
}

func inspectCommand(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSUBJECT\tDATE\tTIME\tBOX\tPROGRAM\tDECODABLE")
	for _, path := range args {
		identities, err := medpc.ListSessions(path)
		if err != nil {
			return err
		}
		for _, id := range identities {
			decodable := "yes"
			if !events.KnownProgram(id.MSN) {
				decodable = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				path, id.SubjectID, id.Date, id.StartTime, id.Box, id.MSN, decodable)
		}
	}
	return w.Flush()
}
