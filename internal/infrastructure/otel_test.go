package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviders(t *testing.T, cfg *OTelConfig) *OTelProviders {
	t.Helper()
	providers, err := InitializeOTel(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })
	return providers
}

func TestInitializeOTel(t *testing.T) {
	providers := testProviders(t, nil)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
}

func TestInitializeOTelRejectsUnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin"}, nil)
	assert.ErrorContains(t, err, "unsupported trace exporter")

	_, err = InitializeOTel(&OTelConfig{MetricExporter: "statsd"}, nil)
	assert.ErrorContains(t, err, "unsupported metric exporter")
}

func TestSimulationMetricsExported(t *testing.T) {
	providers := testProviders(t, nil)

	metrics, err := CreateSimulationMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordRun(ctx, "jump", "full_horizon", 1000, 250*time.Millisecond, nil)
	metrics.RecordRun(ctx, "jump", "full_horizon", 1000, time.Millisecond, errors.New("boom"))
	metrics.EstimationHouseholds.Add(ctx, 42)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "simulation_runs_total")
	assert.Contains(t, body, `status="failure"`)
	assert.Contains(t, body, "simulation_trials_total")
	assert.Contains(t, body, "simulation_duration_seconds")
	assert.Contains(t, body, "estimation_households_total")
	assert.Contains(t, body, "system_goroutines")
}

func TestRecordRunNilReceiver(t *testing.T) {
	var metrics *SimulationMetrics
	assert.NotPanics(t, func() {
		metrics.RecordRun(context.Background(), "ar1", "full_horizon", 10, time.Second, nil)
	})
}

func TestSpansCarryTraceID(t *testing.T) {
	providers := testProviders(t, &OTelConfig{TraceExporter: "none", MetricExporter: "none", SampleRatio: 1})

	ctx, span := providers.Tracer.Start(context.Background(), "simulation.run")
	defer span.End()

	assert.Len(t, TraceIDFromContext(ctx), 32)
	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.NotPanics(t, func() { RecordError(ctx, errors.New("failed")) })
}

func TestReadRuntimeStats(t *testing.T) {
	stats := ReadRuntimeStats()
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.NumCPU)
	assert.Positive(t, stats.SysBytes)
}
