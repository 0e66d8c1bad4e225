package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"householdrisk/internal/config"
	"householdrisk/internal/infrastructure"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	startTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Uptime    float64                      `json:"uptimeSeconds,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized", slog.String("version", version))

	return &HealthService{
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: hs.now().UTC(),
		Version:   hs.version,
	}

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

// LivenessCheck adds process runtime figures to the health status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.ReadRuntimeStats()

	status := hs.HealthCheck(ctx)
	status.Status = "alive"
	status.Runtime = &stats
	status.Uptime = hs.now().Sub(hs.startTime).Seconds()
	return status
}

// Version reports the application name, version and build platform
func (hs *HealthService) Version() map[string]any {
	return map[string]any{
		"name":       config.AppName,
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}
