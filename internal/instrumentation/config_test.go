package instrumentation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_TRACES_SAMPLER_ARG", "SUIVI_HOME"} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	if config.ServiceName != "suiviclientpro" {
		t.Errorf("expected ServiceName 'suiviclientpro', got %q", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected Enabled to be true by default")
	}
	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("expected MetricsExporter 'prometheus', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("expected TracingExporter 'none', got %q", config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("expected TraceSamplingRate 0.1, got %f", config.TraceSamplingRate)
	}
	if config.Home != "." {
		t.Errorf("expected Home '.', got %q", config.Home)
	}
	if config.SourceDriver != "" {
		t.Errorf("expected no SourceDriver before the configuration is read, got %q", config.SourceDriver)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "suivi-test")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("SUIVI_HOME", "/srv/cabinet")

	config := DefaultConfig()

	if config.ServiceName != "suivi-test" {
		t.Errorf("expected ServiceName 'suivi-test', got %q", config.ServiceName)
	}
	if config.Enabled {
		t.Error("expected Enabled to be false")
	}
	if config.MetricsExporter != ExporterStdout || config.TracingExporter != ExporterStdout {
		t.Errorf("unexpected exporters %q/%q", config.MetricsExporter, config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.5 {
		t.Errorf("expected TraceSamplingRate 0.5, got %f", config.TraceSamplingRate)
	}
	if config.Home != "/srv/cabinet" {
		t.Errorf("expected Home '/srv/cabinet', got %q", config.Home)
	}
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestConfig_ResourceAttributes(t *testing.T) {
	config := Config{
		ServiceName:       "suiviclientpro",
		ServiceVersion:    "1.4.0",
		ServiceInstanceID: "poste-accueil",
		Home:              "/srv/cabinet",
		SourceDriver:      "duckdb",
	}

	got := attrMap(config.ResourceAttributes())
	want := map[string]string{
		"service.name":           "suiviclientpro",
		"service.version":        "1.4.0",
		"service.instance.id":    "poste-accueil",
		ResourceAttrHome:         "/srv/cabinet",
		ResourceAttrSourceDriver: "duckdb",
	}
	for key, v := range want {
		if got[key] != v {
			t.Errorf("attribute %s = %q, want %q", key, got[key], v)
		}
	}
}

func TestConfig_ResourceAttributes_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got := attrMap(Config{ServiceName: "suiviclientpro", Home: "."}.ResourceAttributes())

	home, err := filepath.Abs(".")
	if err != nil {
		t.Fatal(err)
	}
	if got[ResourceAttrHome] != home {
		t.Errorf("expected the home directory made absolute (%q), got %q", home, got[ResourceAttrHome])
	}
	if _, ok := got[ResourceAttrSourceDriver]; ok {
		t.Error("expected no driver attribute when the database is not configured")
	}
	if hostname, err := os.Hostname(); err == nil && got["service.instance.id"] != hostname {
		t.Errorf("expected the hostname as instance id, got %q", got["service.instance.id"])
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name:   "prometheus",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
		},
		{
			name:   "otlp traces with endpoint",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
		{
			name:        "negative sampling rate",
			config:      Config{TraceSamplingRate: -0.5},
			errContains: "sampling rate",
		},
		{
			name:        "sampling rate above 1",
			config:      Config{TraceSamplingRate: 1.5},
			errContains: "sampling rate",
		},
		{
			name:        "unknown metrics exporter",
			config:      Config{MetricsExporter: "statsd"},
			errContains: "invalid metrics exporter",
		},
		{
			name:        "unknown tracing exporter",
			config:      Config{TracingExporter: "jaeger"},
			errContains: "invalid tracing exporter",
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{TracingExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
		{
			name:        "otlp metrics are not offered",
			config:      Config{MetricsExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
			errContains: "invalid metrics exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SUIVI_TEST_VAR", "value")
	t.Setenv("SUIVI_TEST_BOOL", "true")
	t.Setenv("SUIVI_TEST_BOOL_INVALID", "peut-etre")
	t.Setenv("SUIVI_TEST_FLOAT", "0.75")
	t.Setenv("SUIVI_TEST_FLOAT_INVALID", "beaucoup")

	if v := getEnvOrDefault("SUIVI_TEST_VAR", "default"); v != "value" {
		t.Errorf("expected 'value', got %q", v)
	}
	if v := getEnvOrDefault("SUIVI_TEST_UNSET", "default"); v != "default" {
		t.Errorf("expected 'default', got %q", v)
	}
	if !getEnvBoolOrDefault("SUIVI_TEST_BOOL", false) {
		t.Error("expected true")
	}
	if !getEnvBoolOrDefault("SUIVI_TEST_BOOL_INVALID", true) {
		t.Error("expected default value true for invalid bool")
	}
	if v := getEnvFloatOrDefault("SUIVI_TEST_FLOAT", 0.5); v != 0.75 {
		t.Errorf("expected 0.75, got %f", v)
	}
	if v := getEnvFloatOrDefault("SUIVI_TEST_FLOAT_INVALID", 0.5); v != 0.5 {
		t.Errorf("expected default 0.5 for invalid float, got %f", v)
	}
}
