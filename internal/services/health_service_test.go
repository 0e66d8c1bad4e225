package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"householdrisk/internal/config"
)

func TestHealthService(t *testing.T) {
	hs := NewHealthService("1.2.3", testLogger())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hs.startTime = fixed.Add(-time.Minute)
	hs.now = func() time.Time { return fixed }

	t.Run("health", func(t *testing.T) {
		status := hs.HealthCheck(context.Background())
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "1.2.3", status.Version)
		assert.Equal(t, fixed, status.Timestamp)
		assert.Nil(t, status.Runtime)
	})

	t.Run("liveness", func(t *testing.T) {
		status := hs.LivenessCheck(context.Background())
		assert.Equal(t, "alive", status.Status)
		require.NotNil(t, status.Runtime)
		assert.Positive(t, status.Runtime.Goroutines)
		assert.Equal(t, 60.0, status.Uptime)
	})

	t.Run("version", func(t *testing.T) {
		v := hs.Version()
		assert.Equal(t, "1.2.3", v["version"])
		assert.Equal(t, config.AppName, v["name"])
		assert.NotEmpty(t, v["go_version"])
	})
}
