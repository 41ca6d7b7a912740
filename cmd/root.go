package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/logging"
	"github.com/diagimmo/suiviclientpro/internal/server"
)

// rootCmd represents the base command for the suiviclientpro application
var rootCmd = &cobra.Command{
	Use:   "suiviclientpro",
	Short: "Follow up diagnostics dossiers and their annotations",
	Long: `suiviclientpro reads the dossiers of the diagnostics database, merges them with
the annotations kept in manual_states.json (sanitation, case status, comment and
DDT-sent flag) and lets you filter, inspect and annotate them.

It can run as:
  - A command-line tool (default: list the dossiers)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// version will be set by main
var version = "dev"

// rootFlags are the persistent flags shared by every command. Empty path flags fall
// back to the SUIVI_* environment variables, then to the defaults under SUIVI_HOME.
var rootFlags struct {
	config      string
	state       string
	checkpoint  string
	credentials string
	token       string
	envFile     string
	logLevel    string
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "suiviclientpro version %s\n" .Version}}`)

	// If no subcommand is provided, list the dossiers
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "list")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.config, "config", "", "Configuration document (default: config_suiviclientpro.json). Can also use SUIVI_CONFIG env var.")
	pf.StringVar(&rootFlags.state, "state", "", "Annotation document (default: manual_states.json). Can also use SUIVI_STATE env var.")
	pf.StringVar(&rootFlags.checkpoint, "checkpoint", "", "DDT scan history (default: historique_scan.json). Can also use SUIVI_CHECKPOINT env var.")
	pf.StringVar(&rootFlags.credentials, "credentials", "", "Google OAuth client file (default: credentials.json). Can also use SUIVI_CREDENTIALS env var.")
	pf.StringVar(&rootFlags.token, "token", "", "Google OAuth token file (default: token.json). Can also use SUIVI_TOKEN env var.")
	pf.StringVar(&rootFlags.envFile, "env-file", "", "Environment file loaded before the SUIVI_* variables are read (default: .env)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newFiltersCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newAnnotateCmd())
	rootCmd.AddCommand(newConfigureCmd())
	rootCmd.AddCommand(newFoldersCmd())
	rootCmd.AddCommand(newScanDDTCmd())
	rootCmd.AddCommand(newRepairCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newExportPDFCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// setup loads the environment file and installs the logger. Logs go to stderr so
// they never mix with command output or the stdio MCP stream.
func setup(cmd *cobra.Command, _ []string) error {
	var files []string
	if rootFlags.envFile != "" {
		files = append(files, rootFlags.envFile)
	}
	if err := config.LoadDotEnv(files...); err != nil {
		return err
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), rootFlags.logLevel))
	return nil
}

// resolvePaths applies the path flags over the environment and defaults.
func resolvePaths() config.Paths {
	p := config.ResolvePaths()
	override := func(dst *string, flag string) {
		if flag != "" {
			*dst = flag
		}
	}
	override(&p.Config, rootFlags.config)
	override(&p.State, rootFlags.state)
	override(&p.Checkpoint, rootFlags.checkpoint)
	override(&p.Credentials, rootFlags.credentials)
	override(&p.Token, rootFlags.token)
	return p
}

// newServerContext builds the context shared by the command and prints the
// annotation document diagnostic, if any, to w.
func newServerContext(ctx context.Context, w io.Writer, writeBack bool) (*server.ServerContext, error) {
	sc, err := server.NewServerContext(ctx, server.Options{
		Paths:     resolvePaths(),
		Logger:    slog.Default(),
		WriteBack: writeBack,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	if notice := sc.StoreNotice(); notice != nil {
		fmt.Fprintf(w, "Warning: the annotation document could not be read and was reset: %v\n", notice)
		fmt.Fprintf(w, "         The damaged file is kept next to it on the next save; `suiviclientpro repair` may recover entries.\n")
	}
	return sc, nil
}
