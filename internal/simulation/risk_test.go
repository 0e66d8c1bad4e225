package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"householdrisk/internal/income"
)

func flatModel() income.Model {
	p := income.DefaultJumpParams()
	p.Lambda = 0
	return income.NewJumpModel(p)
}

func TestRunDebtRisk(t *testing.T) {
	tests := []struct {
		name        string
		income      float64
		household   Household
		probability float64
		minBalance  float64
		final       float64
	}{
		{
			name:        "income covers spending",
			income:      5000,
			household:   Household{InitialFund: 1000, MonthlyExpenses: 2000},
			probability: 0,
			minBalance:  1000,
			final:       1000 + 3000*12,
		},
		{
			name:        "spending always wins",
			income:      1000,
			household:   Household{InitialFund: 500, MonthlyExpenses: 2000},
			probability: 1,
			minBalance:  -500,
			final:       -500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk, err := testEngine(4).RunDebtRisk(context.Background(), DebtRiskRequest{
				Model:         flatModel(),
				Household:     tt.household,
				InitialIncome: tt.income,
				NMonths:       12,
				NSimulations:  50,
				Seed:          7,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.probability, risk.DebtProbability)
			assert.Equal(t, tt.minBalance, risk.MeanMinBalance)
			assert.Equal(t, tt.minBalance, risk.MedianMinBalance)
			assert.Equal(t, tt.final, risk.MeanFinalBalance)
			assert.Equal(t, tt.final, risk.MedianFinalBalance)
			assert.Equal(t, 50, risk.NSimulations)
		})
	}
}

func TestRunDebtRiskDrawsIncomeFromDistribution(t *testing.T) {
	req := DebtRiskRequest{
		Model:        income.NewJumpModel(income.DefaultJumpParams()),
		Household:    Household{InitialFund: 2000, MonthlyExpenses: 3500},
		Distribution: IncomeDistribution{Median: 4000, LogStd: 0.5},
		NMonths:      24,
		NSimulations: 400,
		Seed:         42,
	}

	first, err := testEngine(1).RunDebtRisk(context.Background(), req)
	require.NoError(t, err)
	second, err := testEngine(6).RunDebtRisk(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Greater(t, first.DebtProbability, 0.0)
	assert.Less(t, first.DebtProbability, 1.0)
	assert.LessOrEqual(t, first.MeanMinBalance, 2000.0)
}

func TestRunDebtRiskRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  DebtRiskRequest
	}{
		{"no income source", DebtRiskRequest{Model: flatModel(), NMonths: 12, NSimulations: 10}},
		{"zero months", DebtRiskRequest{Model: flatModel(), InitialIncome: 1000, NSimulations: 10}},
		{"zero simulations", DebtRiskRequest{Model: flatModel(), InitialIncome: 1000, NMonths: 12}},
		{"missing model", DebtRiskRequest{InitialIncome: 1000, NMonths: 12, NSimulations: 10}},
		{"negative credit", DebtRiskRequest{
			Model: flatModel(), InitialIncome: 1000, NMonths: 12, NSimulations: 10,
			Household: Household{AvailableCredit: -1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testEngine(1).RunDebtRisk(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestCompareStrategies(t *testing.T) {
	base := DebtRiskRequest{
		Model:        income.NewJumpModel(income.DefaultJumpParams()),
		Household:    Household{InitialFund: 3000},
		Distribution: IncomeDistribution{Median: 3500, LogStd: 0.4},
		NMonths:      24,
		NSimulations: 300,
		Seed:         42,
	}

	results, err := testEngine(4).CompareStrategies(context.Background(), base, []float64{4000, 2500, 3500, 3000})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, level := range DefaultExpenseLevels {
		assert.Equal(t, level, results[i].MonthlyExpenses)
		assert.Equal(t, 300, results[i].NSimulations)
		if i > 0 {
			// Shared seeds mean every trial sees the same incomes at each level.
			assert.GreaterOrEqual(t, results[i].DebtProbability, results[i-1].DebtProbability)
			assert.LessOrEqual(t, results[i].MedianFinalBalance, results[i-1].MedianFinalBalance)
		}
	}

	_, err = testEngine(4).CompareStrategies(context.Background(), base, []float64{-100})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTrajectories(t *testing.T) {
	model := income.NewJumpModel(income.DefaultJumpParams())
	dist := IncomeDistribution{Median: 5000, LogStd: 0.5}

	paths, err := testEngine(4).Trajectories(context.Background(), model, dist, 48, 100, 42)
	require.NoError(t, err)
	require.Len(t, paths, 100)
	for _, p := range paths {
		require.Len(t, p, 48)
		for _, v := range p {
			assert.Greater(t, v, 0.0)
		}
	}

	again, err := testEngine(1).Trajectories(context.Background(), model, dist, 48, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, paths, again)

	_, err = testEngine(1).Trajectories(context.Background(), model, IncomeDistribution{}, 48, 100, 42)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = testEngine(1).Trajectories(context.Background(), income.Model{}, dist, 48, 100, 42)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestParallelForRecoversPanics(t *testing.T) {
	err := parallelFor(context.Background(), 10, 3, func(i int) error {
		if i == 7 {
			panic("boom")
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrSimulationFailed)

	visited := make([]int, 25)
	require.NoError(t, parallelFor(context.Background(), 25, 4, func(i int) error {
		visited[i]++
		return nil
	}))
	for i, v := range visited {
		assert.Equal(t, 1, v, "index %d", i)
	}
}
