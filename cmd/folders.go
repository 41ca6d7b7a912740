package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFoldersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Show the dossiers whose client folder exists on disk",
		Long: `Show the client-folder table: the dossiers whose normalised name matches a folder
found by the last "folders reconcile", with their DDT-sent mark.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			rows, err := sc.ClientFolders(cmd.Context())
			if err != nil {
				return explain(err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			w := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(w, `No client folder cached, run "folders reconcile".`)
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join([]string{"Dossier", "Mission", "Date", "Paiement", "Commentaire", "DDT"}, "\t"))
			for _, r := range rows {
				fmt.Fprintln(tw, strings.Join([]string{r.ID, r.MissionType, r.Date, r.PaymentStatus, r.Comment, r.Mark()}, "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rows as JSON")
	cmd.AddCommand(newFoldersReconcileCmd())
	return cmd
}

func newFoldersReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [parent]",
		Short: "Match the client folders on disk with the dossier database",
		Long: `Look for client folders under <parent>/dossiers_*/ and keep those whose normalised
name is a dossier identifier. The result is cached in the configuration document,
together with the parent folder. Without an argument the configured parent is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := ""
			if len(args) == 1 {
				parent = args[0]
			}

			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			res, err := sc.ReconcileFolders(cmd.Context(), parent)
			if err != nil {
				return explain(err)
			}
			w := cmd.OutOrStdout()
			if res.Message != "" {
				fmt.Fprintln(w, res.Message)
			}
			if !res.Walked {
				fmt.Fprintln(w, "The cached client folders were kept.")
				return nil
			}
			fmt.Fprintf(w, "%d client folders matched\n", len(res.Eligible))
			for _, name := range res.Matched {
				fmt.Fprintf(w, "  %s\n", name)
			}
			return nil
		},
	}
}
