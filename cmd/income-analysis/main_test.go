package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"householdrisk/internal/exporter"
)

// writePanel writes a pu2021.csv with six households over twelve months.
// Every fourth month a household's income jumps up or down.
func writePanel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("SSUID|SHHADID|SPANEL|SWAVE|MONTHCODE|THTOTINC\n")
	for h := 0; h < 6; h++ {
		income := 3000.0 + 500*float64(h)
		for m := 1; m <= 12; m++ {
			switch (m + h) % 4 {
			case 0:
				income *= 1.4
			case 2:
				income *= 0.8
			}
			fmt.Fprintf(&b, "H%d|11|2021|1|%d|%.0f\n", h, m, income)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pu2021.csv"), []byte(b.String()), 0644))
	return dir
}

// quickConfig keeps batches small enough for unit tests
func quickConfig(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"HRISK_LOGGING_LEVEL":                   "error",
		"HRISK_SIMULATION_N_SIMULATIONS":        "200",
		"HRISK_SIMULATION_N_SAMPLE_PATHS":       "5",
		"HRISK_SIMULATION_WORKERS":              "2",
		"HRISK_ANALYSIS_VALIDATION_SIMULATIONS": "50",
		"HRISK_ANALYSIS_VALIDATION_MONTHS":      "12",
		"HRISK_ANALYSIS_RISK_SIMULATIONS":       "100",
		"HRISK_ANALYSIS_RISK_MONTHS":            "12",
	} {
		t.Setenv(k, v)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestEstimateCommand(t *testing.T) {
	quickConfig(t)
	dataDir := writePanel(t)
	outDir := t.TempDir()

	out, err := runCLI(t, "estimate", "--data-dir", dataDir, "--output-dir", outDir, "--years", "2021")
	require.NoError(t, err)

	assert.Contains(t, out, "for 6 households from 1 files")
	assert.Contains(t, out, "households with sufficient data")
	assert.Contains(t, out, "Model: jump")
	assert.Contains(t, out, "Jump parameters (raw")

	for _, name := range []string{exporter.HouseholdStatsFile, exporter.IncomeAnalysisFile, exporter.ParametersFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestEstimateAR1(t *testing.T) {
	quickConfig(t)
	dataDir := writePanel(t)

	out, err := runCLI(t, "estimate", "--data-dir", dataDir, "--output-dir", t.TempDir(),
		"--years", "2021", "--model", "ar1")
	require.NoError(t, err)
	assert.Contains(t, out, "Model: ar1")
	assert.Contains(t, out, "AR(1) parameters")
}

func TestPipeline(t *testing.T) {
	quickConfig(t)
	dataDir := writePanel(t)
	outDir := t.TempDir()

	out, err := runCLI(t, "--data-dir", dataDir, "--output-dir", outDir, "--years", "2021")
	require.NoError(t, err)

	assert.Contains(t, out, "Validation of jump model")
	assert.Contains(t, out, "Risk Assessment Results:")
	assert.Contains(t, out, "Strategy Comparison:")
	for _, level := range []string{"$2,500/month", "$3,000/month", "$3,500/month", "$4,000/month"} {
		assert.Contains(t, out, level)
	}

	for _, name := range []string{
		exporter.HouseholdStatsFile,
		exporter.ValidationFile,
		exporter.StrategiesFile,
		exporter.WorkbookFile,
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestCompareLevels(t *testing.T) {
	quickConfig(t)
	dataDir := writePanel(t)

	out, err := runCLI(t, "compare", "--data-dir", dataDir, "--output-dir", t.TempDir(),
		"--years", "2021", "--levels", "5000,1000", "--simulations", "40")
	require.NoError(t, err)

	first := strings.Index(out, "$1,000/month")
	second := strings.Index(out, "$5,000/month")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "levels are reported in ascending order")
}

func TestRiskIsDeterministic(t *testing.T) {
	quickConfig(t)
	dataDir := writePanel(t)
	args := []string{"risk", "--data-dir", dataDir, "--output-dir", t.TempDir(), "--years", "2021", "--seed", "7"}

	first, err := runCLI(t, args...)
	require.NoError(t, err)
	second, err := runCLI(t, args...)
	require.NoError(t, err)

	assert.Contains(t, first, "Debt probability: ")
	assert.Equal(t, first, second)
}

func TestSimulateWithoutPanel(t *testing.T) {
	quickConfig(t)
	outDir := t.TempDir()

	out, err := runCLI(t, "simulate", "--output-dir", outDir,
		"--simulations", "50", "--months", "12", "--credit", "2000", "--interest-rate", "18")
	require.NoError(t, err)

	assert.Contains(t, out, "Simulated 50 paths over 12 months (jump, full_horizon)")
	for _, name := range []string{exporter.AggregateFile, exporter.SamplePathsFile, exporter.SummaryFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestCommandErrors(t *testing.T) {
	quickConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown model",
			args:    []string{"simulate", "--output-dir", t.TempDir(), "--model", "garch"},
			wantErr: "unknown model",
		},
		{
			name:    "unknown mode",
			args:    []string{"estimate", "--output-dir", t.TempDir(), "--mode", "magic"},
			wantErr: "analysis options",
		},
		{
			name:    "missing data directory",
			args:    []string{"estimate", "--output-dir", t.TempDir(), "--data-dir", filepath.Join(t.TempDir(), "missing")},
			wantErr: "does not exist",
		},
		{
			name:    "unknown policy",
			args:    []string{"simulate", "--output-dir", t.TempDir(), "--simulations", "10", "--policy", "bankrupt"},
			wantErr: "invalid simulation request",
		},
		{
			name:    "positional arguments",
			args:    []string{"estimate", "extra"},
			wantErr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2500, "2,500"},
		{999.4, "999"},
		{1234567.5, "1,234,568"},
		{-12345.6, "-12,346"},
		{0, "0"},
		{math.NaN(), "n/a"},
		{math.Inf(1), "n/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, money(tt.in), "money(%v)", tt.in)
	}
}
