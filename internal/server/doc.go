// Package server holds the context shared by the CLI commands and the MCP tools,
// and the HTTP endpoint exposing Prometheus metrics.
//
// # Key Components
//
// ServerContext is built once at startup from the resolved file paths. It loads the
// configuration document and the annotation store, opens the record source per
// operation and creates the Gmail client lazily on the first DDT scan. Its
// operations (ListDossiers, GetDossier, Annotate, ClientFolders, ReconcileFolders,
// ScanDDT) run one at a time.
//
// MetricsServer serves /metrics and /healthz on a dedicated address when the
// instrumentation provider exports through Prometheus.
package server
