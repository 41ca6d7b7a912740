package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrField     = "field"
	attrOutcome   = "outcome"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
// The zero value records nothing.
type Metrics struct {
	// Record source metrics
	sourceQueriesTotal  metric.Int64Counter
	sourceQueryDuration metric.Float64Histogram

	// Annotation metrics
	annotationWritesTotal metric.Int64Counter
	writeBackTotal        metric.Int64Counter

	// DDT scan metrics
	scanMessagesTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.sourceQueriesTotal, err = meter.Int64Counter(
		"source_queries_total",
		metric.WithDescription("Total number of queries against the dossier database"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source_queries_total counter: %w", err)
	}

	m.sourceQueryDuration, err = meter.Float64Histogram(
		"source_query_duration_seconds",
		metric.WithDescription("Dossier database query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source_query_duration_seconds histogram: %w", err)
	}

	m.annotationWritesTotal, err = meter.Int64Counter(
		"annotation_writes_total",
		metric.WithDescription("Total number of annotation edits persisted or rejected"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation_writes_total counter: %w", err)
	}

	m.writeBackTotal, err = meter.Int64Counter(
		"writeback_total",
		metric.WithDescription("Total number of annotation write-backs to the dossier database"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create writeback_total counter: %w", err)
	}

	m.scanMessagesTotal, err = meter.Int64Counter(
		"ddt_scan_messages_total",
		metric.WithDescription("Total number of messages handled by the DDT scan"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ddt_scan_messages_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordSourceQuery records a query against the dossier database.
//
// Parameters:
//   - operation: fetch_all, fetch_one, identifiers, fetch_client_folders or write_back
//   - status: Result status ("success" or "error")
//   - duration: Time taken by the query
func (m *Metrics) RecordSourceQuery(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.sourceQueriesTotal == nil || m.sourceQueryDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.sourceQueriesTotal.Add(ctx, 1, attrs)
	m.sourceQueryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAnnotationWrite records an annotation edit of field.
func (m *Metrics) RecordAnnotationWrite(ctx context.Context, field, status string) {
	if m == nil || m.annotationWritesTotal == nil {
		return
	}

	m.annotationWritesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrField, field),
		attribute.String(attrStatus, status),
	))
}

// RecordWriteBack records a write-back of annotation fields to the dossier database.
func (m *Metrics) RecordWriteBack(ctx context.Context, status string) {
	if m == nil || m.writeBackTotal == nil {
		return
	}

	m.writeBackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordScanMessage records a message handled by the DDT scan.
// Outcome is one of "processed", "skipped" or "failed".
func (m *Metrics) RecordScanMessage(ctx context.Context, outcome string) {
	if m == nil || m.scanMessagesTotal == nil {
		return
	}

	m.scanMessagesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
