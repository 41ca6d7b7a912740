package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, a := range span.Attributes() {
		if string(a.Key) == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestStartToolSpan(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartToolSpan(context.Background(), "dossier_list")
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace ID inside the span")
	}
	SetSpanSuccess(span)
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "tool.dossier_list" {
		t.Errorf("expected span name 'tool.dossier_list', got %q", spans[0].Name())
	}
	if spans[0].InstrumentationScope().Name != TracerName {
		t.Errorf("expected tracer %q, got %q", TracerName, spans[0].InstrumentationScope().Name)
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", spans[0].Status().Code)
	}
	if v, _ := attrValue(spans[0], SpanAttrTool); v != "dossier_list" {
		t.Errorf("expected mcp.tool attribute 'dossier_list', got %q", v)
	}
}

func TestStartSourceSpan(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartSourceSpan(context.Background(), "fetch_one", "duckdb", attribute.String(SpanAttrDossier, "A12"))
	EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != "source.fetch_one" {
		t.Errorf("expected span name 'source.fetch_one', got %q", got.Name())
	}
	if got.InstrumentationScope().Name != SourceTracerName {
		t.Errorf("expected tracer %q, got %q", SourceTracerName, got.InstrumentationScope().Name)
	}
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected a client span, got %v", got.SpanKind())
	}
	for key, want := range map[string]string{
		SpanAttrSourceOperation: "fetch_one",
		SpanAttrSourceDriver:    "duckdb",
		SpanAttrDossier:         "A12",
	} {
		if v, ok := attrValue(got, key); !ok || v != want {
			t.Errorf("attribute %s = %q, want %q", key, v, want)
		}
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", got.Status().Code)
	}
}

func TestStartScanSpan_Nested(t *testing.T) {
	rec := withRecorder(t)

	ctx, run := StartScanSpan(context.Background(), "run")
	_, list := StartScanSpan(ctx, "list", attribute.Int("suivi.scan.listed", 3))
	EndSpan(list, nil)
	EndSpan(run, errors.New("quota exceeded"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	listSpan, runSpan := spans[0], spans[1]
	if listSpan.Name() != "ddt_scan.list" || runSpan.Name() != "ddt_scan.run" {
		t.Fatalf("unexpected span names %q, %q", listSpan.Name(), runSpan.Name())
	}
	if listSpan.Parent().SpanID() != runSpan.SpanContext().SpanID() {
		t.Error("expected the list step to be a child of the run span")
	}
	for _, s := range spans {
		if s.InstrumentationScope().Name != ScanTracerName {
			t.Errorf("expected tracer %q, got %q", ScanTracerName, s.InstrumentationScope().Name)
		}
	}
	if v, _ := attrValue(listSpan, SpanAttrScanStep); v != "list" {
		t.Errorf("expected step attribute 'list', got %q", v)
	}
	if runSpan.Status().Code != codes.Error {
		t.Errorf("expected the failed run to carry status Error, got %v", runSpan.Status().Code)
	}
}

func TestSetSpanError(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartScanSpan(context.Background(), "message")
	SetSpanError(span, nil)
	SetSpanError(span, errors.New("quota exceeded"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected status Error, got %v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(spans[0].Events()))
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if traceID := GetTraceID(context.Background()); traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}
