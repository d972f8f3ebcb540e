package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/database"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRouter_Probes(t *testing.T) {
	var healthy bool
	opts := Options{
		MetricsPath: "/metrics",
		ReadinessChecks: map[string]database.Pinger{
			"postgres": pingerFunc(func(context.Context) error {
				if healthy {
					return nil
				}
				return errors.New("connection refused")
			}),
		},
	}
	router := NewRouter(opts, discardLogger(), nil)

	tests := []struct {
		name       string
		path       string
		healthy    bool
		wantStatus int
	}{
		{name: "liveness", path: "/healthz", wantStatus: http.StatusOK},
		{name: "ready", path: "/readyz", healthy: true, wantStatus: http.StatusOK},
		{name: "not ready", path: "/readyz", healthy: false, wantStatus: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			healthy = tt.healthy
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	router := NewRouter(Options{}, discardLogger(), nil)
	router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("panic value leaked to client: %s", rec.Body.String())
	}
}

func TestRouter_RecordsRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	router := NewRouter(Options{}, discardLogger(), metrics)
	router.Get("/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/orders/"+id, nil))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			if len(sum.DataPoints) != 1 {
				t.Fatalf("expected one series for the route pattern, got %d", len(sum.DataPoints))
			}
			route, _ := sum.DataPoints[0].Attributes.Value("route")
			if route.AsString() != "/v1/orders/{id}" {
				t.Errorf("route = %q", route.AsString())
			}
			if sum.DataPoints[0].Value != 3 {
				t.Errorf("count = %d, want 3", sum.DataPoints[0].Value)
			}
			return
		}
	}
	t.Fatal("http_requests_total metric not found")
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "insufficient stock keeps metadata",
			err:        apperrors.WithMetadata(apperrors.KindInsufficientStock, "insufficient stock", map[string]string{"product_id": "p1"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "p1",
		},
		{name: "not found", err: apperrors.New(apperrors.KindNotFound, "order not found"), wantStatus: http.StatusNotFound, wantBody: "order not found"},
		{name: "invalid transition", err: apperrors.New(apperrors.KindInvalidTransition, "cannot move"), wantStatus: http.StatusConflict},
		{name: "unavailable hides cause", err: apperrors.Classify(errors.New("dial tcp 10.0.0.1: refused")), wantStatus: http.StatusServiceUnavailable, wantBody: "service temporarily unavailable"},
		{name: "plain error", err: errors.New("secret detail"), wantStatus: http.StatusInternalServerError, wantBody: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), discardLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			raw, _ := json.Marshal(body)
			if tt.wantBody != "" && !strings.Contains(string(raw), tt.wantBody) {
				t.Errorf("body %s does not contain %q", raw, tt.wantBody)
			}
			if strings.Contains(string(raw), "10.0.0.1") || strings.Contains(string(raw), "secret detail") {
				t.Errorf("cause leaked: %s", raw)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"x"}`},
		{name: "empty", body: ``, wantErr: true},
		{name: "unknown field", body: `{"nam":"x"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeJSON(req, &dst)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrValidation) {
					t.Fatalf("DecodeJSON() error = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON() error = %v", err)
			}
		})
	}
}
