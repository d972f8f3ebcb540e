package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testConfig() Config {
	return Config{
		ServiceName:    "storefront-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		SampleRate:     1.0,
	}
}

func shutdown(t *testing.T, tel *Telemetry) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: ErrMissingServiceName},
		{name: "missing version", mutate: func(c *Config) { c.ServiceVersion = "" }, wantErr: ErrMissingServiceVersion},
		{name: "negative rate", mutate: func(c *Config) { c.SampleRate = -0.1 }, wantErr: ErrInvalidSampleRate},
		{name: "rate above one", mutate: func(c *Config) { c.SampleRate = 1.5 }, wantErr: ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitialize_WithoutEndpointUsesDiscardingExporters(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = true

	tel, err := Initialize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	shutdown(t, tel)

	if tel.TracerProvider() == nil || tel.MeterProvider() == nil {
		t.Fatal("expected both providers")
	}

	ctx, span := StartSpan(context.Background(), "use-case")
	defer span.End()
	if TraceID(ctx) == "" {
		t.Error("spans should carry trace ids without an exporter endpoint")
	}
}

func TestInitialize_Disabled(t *testing.T) {
	tel, err := Initialize(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	shutdown(t, tel)

	if tel.TracerProvider() != nil || tel.MeterProvider() != nil {
		t.Error("providers should be nil when disabled")
	}

	counter, err := tel.Meter("test").Int64Counter("noop_total")
	if err != nil {
		t.Fatalf("noop meter: %v", err)
	}
	counter.Add(context.Background(), 1)
}

func TestInitialize_RecordsThroughInjectedReaderAndExporter(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = true

	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewInMemoryExporter()

	tel, err := Initialize(context.Background(), cfg, WithMetricReader(reader), WithTraceExporter(spans))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	shutdown(t, tel)

	counter, err := tel.Meter("test").Int64Counter("orders_placed_total")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(rm.ScopeMetrics) != 1 || rm.ScopeMetrics[0].Metrics[0].Name != "orders_placed_total" {
		t.Fatalf("unexpected metrics: %+v", rm.ScopeMetrics)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	span.End()
	if err := tel.TracerProvider().ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := spans.GetSpans(); len(got) != 1 || got[0].Name != "op" {
		t.Errorf("spans = %v", got)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: 1, want: "AlwaysOnSampler"},
		{rate: 0.5, want: "ParentBased{root:TraceIDRatioBased{0.5},remoteParentSampled:AlwaysOnSampler,remoteParentNotSampled:AlwaysOffSampler,localParentSampled:AlwaysOnSampler,localParentNotSampled:AlwaysOffSampler}"},
	}
	for _, tt := range tests {
		if got := createSampler(tt.rate).Description(); got != tt.want {
			t.Errorf("createSampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}
