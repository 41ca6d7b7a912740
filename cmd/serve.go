package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
	"github.com/diagimmo/suiviclientpro/internal/logging"
	"github.com/diagimmo/suiviclientpro/internal/resources"
	"github.com/diagimmo/suiviclientpro/internal/server"
	"github.com/diagimmo/suiviclientpro/internal/tools/ddt_tools"
	"github.com/diagimmo/suiviclientpro/internal/tools/dossier_tools"
)

// serveOptions holds the flags of the serve command.
type serveOptions struct {
	readOnly    bool
	writeBack   bool
	metricsAddr string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdin/stdout so an AI assistant can list, inspect and
annotate the dossiers and run the DDT scan.

Write tools (annotations, DDT flags, folder reconciliation) are registered unless
--read-only is set. The metrics endpoint listens on --metrics-addr when the
Prometheus exporter is selected (METRICS_EXPORTER=prometheus, the default); set it
to an empty string to disable it. METRICS_ADDR overrides the default address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				if addr, ok := os.LookupEnv("METRICS_ADDR"); ok {
					opts.metricsAddr = addr
				}
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Register the read tools only")
	cmd.Flags().BoolVar(&opts.writeBack, "write-back", false, "Also write annotations to the Dossiers table")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address of the Prometheus metrics endpoint (empty disables it)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	serverContext, err := server.NewServerContext(shutdownCtx, server.Options{
		Paths:     resolvePaths(),
		Logger:    logger,
		WriteBack: opts.writeBack,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()
	if notice := serverContext.StoreNotice(); notice != nil {
		logger.Warn("annotation document could not be read and was reset", logging.Err(notice))
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.SourceDriver = sourceDriver(serverContext.Config())
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		// The serve context is cancelled by now; give the exporters a fresh deadline.
		flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	if opts.metricsAddr != "" && provider.Enabled() && provider.ServesPrometheus() {
		metricsServer, err := startMetricsServer(opts.metricsAddr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		defer func() {
			stopCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}

	mcpSrv := mcpserver.NewMCPServer("suiviclientpro", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if opts.readOnly {
		logger.Info("starting MCP server in read-only mode")
	} else {
		logger.Info("starting MCP server with write tools enabled")
	}
	if err := registerAllTools(mcpSrv, serverContext, opts.readOnly); err != nil {
		return err
	}
	return runStdioServer(shutdownCtx, mcpSrv)
}

// sourceDriver returns the resolved driver of the configured dossier database, or ""
// when none is configured yet.
func sourceDriver(cfg config.Config) string {
	d, err := cfg.Descriptor()
	if err != nil {
		return ""
	}
	driver, err := d.ResolveDriver()
	if err != nil {
		return ""
	}
	return driver
}

// startMetricsServer starts the metrics endpoint and waits until it listens.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	failed := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case <-ready:
		return metricsServer, nil
	case err := <-failed:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}

// registerAllTools registers every MCP tool group and the resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Dossier",
			register: func() error {
				return dossier_tools.RegisterDossierTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "DDT",
			register: func() error {
				return ddt_tools.RegisterDDTTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Resources",
			register: func() error {
				return resources.RegisterResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}
