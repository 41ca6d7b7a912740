package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

func newConfigureCmd() *cobra.Command {
	var (
		accessPath   string
		parentFolder string
		email        string
		driver       string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Show or change the configuration document",
		Long: `Show the configuration, or change it with the flags below. Only the flags given
are changed; the document is rewritten with its known fields.

Run "folders reconcile" after changing the clients parent folder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("source-driver") && driver != "" {
				if _, err := (source.Descriptor{Driver: driver, Path: "x"}).ResolveDriver(); err != nil {
					return err
				}
			}

			sc, err := newServerContext(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			cfg := sc.Config()
			if flags.NFlag() > 0 {
				cfg, err = sc.Configure(func(c *config.Config) {
					if flags.Changed("access-path") {
						c.AccessPath = accessPath
					}
					if flags.Changed("clients-parent-folder") {
						c.ClientsParentFolder = parentFolder
					}
					if flags.Changed("email") {
						c.EmailAddress = email
					}
					if flags.Changed("source-driver") {
						c.SourceDriver = driver
					}
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", sc.Paths().Config)
			}
			printConfig(cmd.OutOrStdout(), cfg, sc.Paths())
			return nil
		},
	}

	cmd.Flags().StringVar(&accessPath, "access-path", "", "Dossier database file (or postgres:// URL with --source-driver pgx)")
	cmd.Flags().StringVar(&parentFolder, "clients-parent-folder", "", "Folder holding the dossiers_* client folder directories")
	cmd.Flags().StringVar(&email, "email", "", "Sender address the DDT scan restricts to")
	cmd.Flags().StringVar(&driver, "source-driver", "", "Database driver: sqlite, duckdb or pgx (default: from the file extension)")

	return cmd
}

func printConfig(w io.Writer, cfg config.Config, paths config.Paths) {
	or := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "(not set)"
		}
		return s
	}
	fmt.Fprintf(w, "access_path:           %s\n", or(cfg.AccessPath))
	fmt.Fprintf(w, "source_driver:         %s\n", or(cfg.SourceDriver))
	fmt.Fprintf(w, "clients_parent_folder: %s\n", or(cfg.ClientsParentFolder))
	fmt.Fprintf(w, "email_address:         %s\n", or(cfg.EmailAddress))
	fmt.Fprintf(w, "all_client_folders:    %d cached\n", len(cfg.AllClientFolders))
	fmt.Fprintf(w, "write_back:            %t\n", cfg.WriteBack)
	fmt.Fprintf(w, "annotations:           %s\n", paths.State)
	fmt.Fprintf(w, "scan history:          %s\n", paths.Checkpoint)
}
