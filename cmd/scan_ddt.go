package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diagimmo/suiviclientpro/internal/google"
)

func newScanDDTCmd() *cobra.Command {
	var mark bool

	cmd := &cobra.Command{
		Use:   "scan-ddt",
		Short: "Scan the Gmail SENT folder for DDT attachments",
		Long: `Walk the Gmail SENT messages with a PDF attachment (from the configured
email_address, if any) and list the PDF filenames not seen by a previous scan.
The scan history (historique_scan.json) is saved when the scan ends, including
when it is interrupted with Ctrl-C.

With --mark, the dossiers whose identifier appears in a PDF filename of the scan
history, earlier scans included, get their DDT-sent flag set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sc, err := newServerContext(ctx, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			stderr := cmd.ErrOrStderr()
			progress := func(done, total int) {
				fmt.Fprintf(stderr, "\rScanning %d/%d", done, total)
				if done == total {
					fmt.Fprintln(stderr)
				}
			}

			res, err := sc.ScanDDT(ctx, mark, progress)
			switch {
			case errors.Is(err, google.ErrNoCredentials), errors.Is(err, google.ErrNoToken):
				return fmt.Errorf("gmail access is not authorized: %w", err)
			case errors.Is(err, context.Canceled):
				fmt.Fprintln(stderr)
				fmt.Fprintln(stderr, "Scan interrupted, the history was saved.")
			case err != nil:
				return explain(err)
			}

			w := cmd.OutOrStdout()
			r := res.Report
			fmt.Fprintf(w, "%d messages: %d processed, %d already seen, %d failed\n", r.Total, r.Processed, r.Skipped, r.Failed)
			fmt.Fprintf(w, "%d new PDF files\n", len(r.Found))
			for _, name := range r.Found {
				fmt.Fprintf(w, "  %s\n", name)
			}
			if mark {
				fmt.Fprintf(w, "%d dossiers marked as DDT sent\n", len(res.Marked))
				for _, id := range res.Marked {
					fmt.Fprintf(w, "  %s\n", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mark, "mark", false, "Set the DDT-sent flag of the dossiers named by a PDF of the scan history")
	return cmd
}
