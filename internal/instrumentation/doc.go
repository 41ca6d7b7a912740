// Package instrumentation provides OpenTelemetry metrics and tracing for suiviclientpro.
//
// # Metrics
//
//   - source_queries_total / source_query_duration_seconds: queries against the dossier
//     database by operation and status
//   - annotation_writes_total: annotation edits by field and status
//   - writeback_total: write-backs of annotation fields to the dossier database by status
//   - ddt_scan_messages_total: messages handled by the DDT scan by outcome
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: MCP tool calls by tool and status
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>), for every query against the
// dossier database (source.<operation>, tracer SourceTracerName) and for the steps of the
// DDT scan (ddt_scan.run, ddt_scan.list, ddt_scan.message, tracer ScanTracerName). The
// resource records the home directory and the database driver of the installation.
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces
//   - SUIVI_HOME: recorded as the suivi.home resource attribute
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: suiviclientpro)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordSourceQuery(ctx, "fetch_all", "success", time.Since(start))
package instrumentation
