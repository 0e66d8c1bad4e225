package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureHandler(t *testing.T) {
	logger, h := NewTestLogger(nil)

	child := logger.With("component", "engine").WithGroup("run")
	child.Info("batch finished", "trials", 10, slog.Group("band", "p5", 1.5))
	logger.Debug("household skipped", "household", "A-11")
	logger.Error("batch failed")

	records := h.Records()
	require.Len(t, records, 3)

	assert.Equal(t, map[string]any{
		"component":   "engine",
		"run.trials":  int64(10),
		"run.band.p5": 1.5,
	}, records[0].Attrs)

	r, ok := h.Find("skipped")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, r.Level)
	assert.Equal(t, "A-11", r.Attrs["household"])

	assert.Equal(t, 1, h.Count(slog.LevelError, "failed"))
	assert.Equal(t, 0, h.Count(slog.LevelInfo, "failed"))

	_, ok = h.Find("missing")
	assert.False(t, ok)
}
