package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"householdrisk/internal/services"
)

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(services.NewHealthService("v1.0.0-test", testLogger()), testLogger())

	tests := []struct {
		name          string
		handlerFunc   http.HandlerFunc
		checkResponse func(t *testing.T, body map[string]any)
	}{
		{
			name:        "root",
			handlerFunc: handler.Root,
			checkResponse: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Financial Simulation API", body["message"])
				assert.Equal(t, []any{"/api/calculate", "/api/bankruptcy-risk", "/health", "/metrics"}, body["endpoints"])
			},
		},
		{
			name:        "health",
			handlerFunc: handler.HealthCheck,
			checkResponse: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "healthy", body["status"])
				assert.Equal(t, "v1.0.0-test", body["version"])
				assert.NotEmpty(t, body["timestamp"])
			},
		},
		{
			name:        "liveness",
			handlerFunc: handler.LivenessCheck,
			checkResponse: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "alive", body["status"])
				assert.Contains(t, body, "runtime")
			},
		},
		{
			name:        "version",
			handlerFunc: handler.Version,
			checkResponse: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "v1.0.0-test", body["version"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handlerFunc(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			tt.checkResponse(t, decodeBody(t, rec))
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# HELP up\n"))
	})
	rec = httptest.NewRecorder()
	NewMetricsHandler(exporter).GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP up")
}
