package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/projection"
	"github.com/diagimmo/suiviclientpro/internal/server"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

// explain names the failure for the operator and keeps the cause.
func explain(err error) error {
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		return fmt.Errorf("the dossier database is not configured: %w", err)
	case errors.Is(err, source.ErrSourceUnavailable):
		return fmt.Errorf("the dossier database cannot be opened: %w", err)
	case errors.Is(err, source.ErrNotFound):
		return fmt.Errorf("unknown dossier: %w", err)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListCmd() *cobra.Command {
	var (
		filter     projection.Filter
		sortBy     string
		descending bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the dossier table",
		Long: `Show the dossiers of the database merged with their annotations.

Filters combine: --search keeps identifiers containing the text (case-insensitive),
--type keeps one mission type and --payment one payment status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sort projection.Sort
			if sortBy != "" {
				col, err := projection.ParseColumn(sortBy)
				if err != nil {
					return err
				}
				sort = projection.Sort{Column: col, Enabled: true, Descending: descending}
			}

			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			listing, err := sc.ListDossiers(cmd.Context(), filter, sort)
			if err != nil {
				return explain(err)
			}
			if len(listing.Skipped) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d rows could not be read and were skipped\n", len(listing.Skipped))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), listing.Rows)
			}
			return printRows(cmd.OutOrStdout(), listing)
		},
	}

	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "Keep dossiers whose identifier contains this text")
	cmd.Flags().StringVarP(&filter.Type, "type", "t", "", "Keep one mission type (see `filters`)")
	cmd.Flags().StringVarP(&filter.Payment, "payment", "p", "", fmt.Sprintf("Keep one payment status: %s", strings.Join(projection.PaymentOptions, ", ")))
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column: id, type, date, paiement, assainissement, statut or commentaire")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort in descending order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rows as JSON")

	return cmd
}

func printRows(w io.Writer, listing server.Listing) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	titles := make([]string, 0, len(projection.Columns)+1)
	for _, c := range projection.Columns {
		titles = append(titles, c.Title())
	}
	titles = append(titles, "DDT")
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	for _, row := range listing.Rows {
		cells := row.Cells()
		mark := projection.MarkNotSent
		if row.DDTSent {
			mark = projection.MarkSent
		}
		cells = append(cells, mark)
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d dossiers\n", len(listing.Rows), listing.Total)
	return err
}

func newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "Show the mission types and payment statuses accepted by list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			types, payments, err := sc.FilterOptions(cmd.Context())
			if err != nil {
				return explain(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Types:")
			for _, t := range types {
				fmt.Fprintf(w, "  %s\n", t)
			}
			fmt.Fprintln(w, "Paiements:")
			for _, p := range payments {
				fmt.Fprintf(w, "  %s\n", p)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <dossier>",
		Short: "Show the client card of a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			d, err := sc.GetDossier(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			return printCard(cmd.OutOrStdout(), d)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the card as JSON")
	return cmd
}

func printCard(w io.Writer, d server.Dossier) error {
	c := d.Card
	ddt := projection.MarkNotSent
	if d.Annotations.DDTSent {
		ddt = projection.MarkSent
	}
	lines := [][2]string{
		{"Dossier", c.Name},
		{"Type de mission", c.MissionType},
		{"Date & heure", c.Schedule},
		{"Statut paiement", c.PaymentStatus},
		{"Assainissement", c.Sanitation},
		{"Statut dossier", c.CaseStatus},
		{"Commentaires", c.Comments},
		{"Montant TTC", c.AmountTTC},
		{"Montant payé", c.AmountPaid},
		{"Reste à payer", c.AmountRemaining},
		{"Client", strings.TrimSpace(c.ClientFirstName + " " + c.ClientLastName)},
		{"Adresse client", strings.TrimSpace(strings.Join([]string{c.ClientAddress, c.ClientPostcode, c.ClientCity}, " "))},
		{"E-mail", c.ClientEmail},
		{"Téléphone", c.ClientPhone},
		{"Adresse du bien", strings.TrimSpace(strings.Join([]string{c.PropertyAddress, c.PropertyPostcode, c.PropertyCity}, " "))},
		{"Donneur d'ordre", c.OrderingParty},
		{"Chemin", c.Path},
		{"Photo", c.PhotoPath},
		{"Annotation assainissement", d.Annotations.Sanitation},
		{"Annotation statut", d.Annotations.CaseStatus},
		{"Annotation commentaire", d.Annotations.Comment},
		{"DDT envoyé", ddt},
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range lines {
		fmt.Fprintf(tw, "%s:\t%s\n", l[0], l[1])
	}
	return tw.Flush()
}

func newAnnotateCmd() *cobra.Command {
	var writeBack bool

	cmd := &cobra.Command{
		Use:   "annotate <dossier> <column> [value]",
		Short: "Set an annotation of a dossier",
		Long: `Set an annotation of a dossier and rewrite the annotation document.

Columns: assainissement, statut, commentaire, or ddt for the DDT-sent flag
(oui/non, true/false). A missing value clears the column.

With --write-back (or SUIVI_WRITE_BACK=true) sanitation, case status and comment are
also written to the Dossiers table. A failed write-back is reported but the
annotation is kept.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, name := args[0], args[1]
			value := ""
			if len(args) == 3 {
				value = args[2]
			}

			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), writeBack)
			if err != nil {
				return err
			}
			defer sc.Shutdown()
			w := cmd.OutOrStdout()

			if f, err := annotations.ParseField(name); err == nil && f == annotations.FieldDDTSent {
				sent, err := annotations.ParseFlag(value)
				if err != nil {
					return err
				}
				if _, err := sc.SetDDTSent(cmd.Context(), id, sent); err != nil {
					return err
				}
				fmt.Fprintf(w, "%s: DDT envoyé = %t\n", id, sent)
				return nil
			}

			col, err := projection.ParseColumn(name)
			if err != nil {
				return err
			}
			res, err := sc.Annotate(cmd.Context(), id, col, value)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(w, "%s: %s = %q\n", id, col.Title(), res.Row.Cell(col))
			switch res.WriteBack {
			case server.WriteBackSuccess:
				fmt.Fprintln(w, "Written back to the dossier database.")
			case server.WriteBackFailed:
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: write-back to the dossier database failed: %s\n", res.WriteBackError)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeBack, "write-back", false, "Also write the annotation to the Dossiers table")
	return cmd
}

func newExportPDFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-pdf <dossier>",
		Short: "Export the client card as PDF (not implemented)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "PDF export of %s: not implemented\n", args[0])
			return nil
		},
	}
}
