package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
)

func newRepairCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "repair [document]",
		Short: "Recover entries from a damaged annotation document",
		Long: `Best-effort recovery of an annotation document damaged by hand editing.

Single quotes are replaced by double quotes and every line that parses on its own as
a "dossier": {...} entry is kept. The input is never modified; the result is written
next to it (or to --output) and must be reviewed before it replaces the original.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := resolvePaths().State
			if len(args) == 1 {
				in = args[0]
			}
			out := output
			if out == "" {
				out = annotations.RepairOutputPath(in)
			}

			report, err := annotations.Repair(in, out)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d entries recovered (%d lines kept, %d dropped) into %s\n", report.Entries, report.Kept, report.Dropped, report.Output)
			if report.Unverified {
				fmt.Fprintln(w, "Review the result before replacing the original document.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <document>_repair.json)")
	return cmd
}
