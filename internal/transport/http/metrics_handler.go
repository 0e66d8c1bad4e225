package http

import (
	"net/http"
)

// MetricsHandler serves the Prometheus exposition of the OTel meter provider
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler wraps the exporter's HTTP handler. A nil exporter
// answers 404.
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	if exporter == nil {
		exporter = http.NotFoundHandler()
	}
	return &MetricsHandler{exporter: exporter}
}

// GetMetrics handles GET /metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.exporter.ServeHTTP(w, r)
}
