package services

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"householdrisk/internal/config"
	"householdrisk/internal/infrastructure"
	"householdrisk/internal/simulation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallConfig() config.SimulationConfig {
	cfg := config.Default().Simulation
	cfg.NSimulations = 200
	cfg.NSamplePaths = 5
	cfg.Workers = 2
	return cfg
}

func TestNewSimulationServiceRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.SimulationConfig)
	}{
		{"unknown policy", func(c *config.SimulationConfig) { c.BalancePolicy = "bankrupt" }},
		{"bad jump rate", func(c *config.SimulationConfig) { c.Jump.Lambda = 2 }},
		{"unknown model", func(c *config.SimulationConfig) { c.Model = "garch" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(&cfg)
			_, err := NewSimulationService(cfg, testLogger())
			assert.Error(t, err)
		})
	}
}

func TestCalculate(t *testing.T) {
	svc, err := NewSimulationService(smallConfig(), testLogger())
	require.NoError(t, err)
	svc.newID = func() string { return "run-1" }

	in := CalculateInput{
		MonthlyIncome:   5000,
		MonthlyExpenses: 4500,
		CurrentSavings:  2000,
		AvailableCredit: 1000,
		InterestRatePct: 18,
		TimeHorizon:     24,
	}

	res, err := svc.Calculate(context.Background(), in)
	require.NoError(t, err)

	meta := res.Metadata
	assert.Equal(t, "run-1", meta.RunID)
	assert.Equal(t, 200, meta.NSimulations)
	assert.Equal(t, 24, meta.NMonths)
	assert.Equal(t, 5, meta.NSamplePaths)
	assert.Equal(t, int64(42), meta.Seed)
	assert.InDelta(t, 0.18, meta.InterestRate, 1e-12, "percent is converted to a fraction")
	assert.Equal(t, string(simulation.PolicyFullHorizon), meta.BalancePolicy)

	assert.Len(t, res.SamplePaths, 5)
	assert.Len(t, res.TerminalValues, 200)
	assert.Len(t, res.AggregateStats.Months, 25)
	assert.InDelta(t, 500, res.RiskMetrics.MonthlyNetIncome, 1e-9)

	again, err := svc.Calculate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, res, again, "fixed seed makes runs repeatable")
}

func TestCalculateRejectsLongHorizon(t *testing.T) {
	svc, err := NewSimulationService(smallConfig(), testLogger())
	require.NoError(t, err)

	_, err = svc.Calculate(context.Background(), CalculateInput{MonthlyIncome: 5000, TimeHorizon: 241})
	assert.ErrorIs(t, err, simulation.ErrInvalidRequest)

	_, err = svc.BankruptcyRisk(context.Background(), BankruptcyInput{MonthlyIncome: 5000, TimeHorizon: 241})
	assert.ErrorIs(t, err, simulation.ErrInvalidRequest)
}

func TestBankruptcyRisk(t *testing.T) {
	svc, err := NewSimulationService(smallConfig(), testLogger())
	require.NoError(t, err)

	tests := []struct {
		name     string
		in       BankruptcyInput
		wantRisk float64
	}{
		{
			name:     "expenses far above income",
			in:       BankruptcyInput{MonthlyIncome: 1000, MonthlyExpenses: 5000, CurrentSavings: 100, TimeHorizon: 12},
			wantRisk: 100,
		},
		{
			name:     "large cushion and no expenses",
			in:       BankruptcyInput{MonthlyIncome: 5000, MonthlyExpenses: 0, CurrentSavings: 1000, TimeHorizon: 12},
			wantRisk: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.BankruptcyRisk(context.Background(), tt.in)
			require.NoError(t, err)

			assert.Equal(t, tt.wantRisk, got.BankruptcyRisk)
			assert.Equal(t, 200, got.Iterations)
			assert.Equal(t, tt.in.MonthlyIncome, got.MonthlyIncome)
			assert.Equal(t, tt.in.TimeHorizon, got.TimeHorizon)
			assert.NotEmpty(t, got.RunID)
		})
	}
}

func TestCalculateRecordsMetrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	metrics, err := infrastructure.CreateSimulationMetrics(providers.Meter)
	require.NoError(t, err)

	svc, err := NewSimulationService(smallConfig(), testLogger(),
		WithTracer(providers.Tracer), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = svc.Calculate(context.Background(), CalculateInput{MonthlyIncome: 4000, MonthlyExpenses: 3000, TimeHorizon: 6})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "simulation_runs_total")
	assert.Contains(t, body, `status="success"`)
	assert.Contains(t, body, "simulation_trials_total")
}

func TestCalculateCanceled(t *testing.T) {
	svc, err := NewSimulationService(smallConfig(), testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.Calculate(ctx, CalculateInput{MonthlyIncome: 4000, TimeHorizon: 12})
	assert.ErrorIs(t, err, context.Canceled)
}
