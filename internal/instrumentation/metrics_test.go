package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/attribute"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

// counterTotal sums the data points of the named counter whose attributes include want.
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string, want map[string]string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
		points:
			for _, dp := range sum.DataPoints {
				for k, v := range want {
					got, ok := dp.Attributes.Value(attribute.Key(k))
					if !ok || got.AsString() != v {
						continue points
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetrics_RecordSourceQuery(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSourceQuery(ctx, "fetch_all", StatusSuccess, 20*time.Millisecond)
	m.RecordSourceQuery(ctx, "fetch_all", StatusSuccess, 30*time.Millisecond)
	m.RecordSourceQuery(ctx, "fetch_one", StatusError, time.Millisecond)

	if got := counterTotal(t, reader, "source_queries_total", map[string]string{"operation": "fetch_all", "status": StatusSuccess}); got != 2 {
		t.Errorf("expected 2 fetch_all queries, got %d", got)
	}
	if got := counterTotal(t, reader, "source_queries_total", map[string]string{"status": StatusError}); got != 1 {
		t.Errorf("expected 1 failed query, got %d", got)
	}
}

func TestMetrics_AnnotationsAndScan(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnnotationWrite(ctx, "commentaire", StatusSuccess)
	m.RecordAnnotationWrite(ctx, "assainissement", StatusError)
	m.RecordWriteBack(ctx, StatusError)
	m.RecordScanMessage(ctx, "processed")
	m.RecordScanMessage(ctx, "processed")
	m.RecordScanMessage(ctx, "skipped")
	m.RecordToolInvocation(ctx, "dossier_list", StatusSuccess, 5*time.Millisecond)

	if got := counterTotal(t, reader, "annotation_writes_total", map[string]string{"field": "commentaire"}); got != 1 {
		t.Errorf("expected 1 comment write, got %d", got)
	}
	if got := counterTotal(t, reader, "writeback_total", map[string]string{"status": StatusError}); got != 1 {
		t.Errorf("expected 1 failed write-back, got %d", got)
	}
	if got := counterTotal(t, reader, "ddt_scan_messages_total", map[string]string{"outcome": "processed"}); got != 2 {
		t.Errorf("expected 2 processed messages, got %d", got)
	}
	if got := counterTotal(t, reader, "mcp_tool_invocations_total", map[string]string{"tool": "dossier_list"}); got != 1 {
		t.Errorf("expected 1 tool invocation, got %d", got)
	}
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	// Neither a zero value nor a nil recorder may panic.
	var zero Metrics
	zero.RecordSourceQuery(ctx, "fetch_all", StatusSuccess, time.Millisecond)
	zero.RecordScanMessage(ctx, "processed")

	var nilMetrics *Metrics
	nilMetrics.RecordAnnotationWrite(ctx, "commentaire", StatusSuccess)
	nilMetrics.RecordToolInvocation(ctx, "dossier_list", StatusSuccess, time.Millisecond)
	nilMetrics.RecordWriteBack(ctx, StatusSuccess)
}
