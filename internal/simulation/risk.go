package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"householdrisk/internal/income"
	"householdrisk/internal/stats"
)

// IncomeDistribution seeds synthetic households lognormally around Median
type IncomeDistribution struct {
	Median float64 `json:"median"`
	LogStd float64 `json:"log_std"`
}

// DebtRiskRequest asks how often a household runs out of savings when each
// trial stops at the first negative month.
type DebtRiskRequest struct {
	Model     income.Model
	Household Household
	// InitialIncome is used when positive; otherwise each trial draws its
	// starting income from Distribution.
	InitialIncome float64
	Distribution  IncomeDistribution
	NMonths       int
	NSimulations  int
	Seed          int64
}

func (r DebtRiskRequest) validate() error {
	switch {
	case r.NMonths < 1:
		return fmt.Errorf("%w: n_months must be at least 1", ErrInvalidRequest)
	case r.NSimulations < 1:
		return fmt.Errorf("%w: n_simulations must be at least 1", ErrInvalidRequest)
	case !(r.InitialIncome > 0) && !(r.Distribution.Median > 0):
		return fmt.Errorf("%w: initial income or an income distribution is required", ErrInvalidRequest)
	}
	if err := r.Household.Validate(); err != nil {
		return err
	}
	if err := r.Model.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// DebtRisk summarizes a stop-on-negative batch
type DebtRisk struct {
	DebtProbability    float64 `json:"debt_probability"`
	MeanMinBalance     float64 `json:"mean_min_balance"`
	MedianMinBalance   float64 `json:"median_min_balance"`
	MeanFinalBalance   float64 `json:"mean_final_balance"`
	MedianFinalBalance float64 `json:"median_final_balance"`
	NSimulations       int     `json:"n_simulations"`
}

// RunDebtRisk estimates the probability of going into debt within the horizon
func (e *Engine) RunDebtRisk(ctx context.Context, req DebtRiskRequest) (*DebtRisk, error) {
	start := time.Now()

	if err := req.validate(); err != nil {
		return nil, err
	}

	minBalances := make([]float64, req.NSimulations)
	finals := make([]float64, req.NSimulations)
	debt := make([]bool, req.NSimulations)

	err := parallelFor(ctx, req.NSimulations, e.workers, func(i int) error {
		rng := income.NewTrialRand(req.Seed, i)
		initial := req.InitialIncome
		if !(initial > 0) {
			initial = income.DrawInitialIncome(rng, req.Distribution.Median, req.Distribution.LogStd)
		}

		res := SimulateBalance(req.Model.Simulate(initial, req.NMonths, rng), req.Household, PolicyStopOnNegative)
		if math.IsNaN(res.TerminalBalance) {
			return fmt.Errorf("%w: trial %d produced a non-finite balance", ErrSimulationFailed, i)
		}
		minBalances[i] = res.MinBalance
		finals[i] = res.TerminalBalance
		debt[i] = res.WentNegative()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("run debt risk trials: %w", err)
	}

	debtTrials := 0
	for _, d := range debt {
		if d {
			debtTrials++
		}
	}

	risk := &DebtRisk{
		DebtProbability:    float64(debtTrials) / float64(req.NSimulations),
		MeanMinBalance:     stats.Mean(minBalances),
		MedianMinBalance:   stats.Median(minBalances),
		MeanFinalBalance:   stats.Mean(finals),
		MedianFinalBalance: stats.Median(finals),
		NSimulations:       req.NSimulations,
	}

	e.logger.InfoContext(ctx, "debt risk assessment completed",
		"n_simulations", req.NSimulations,
		"n_months", req.NMonths,
		"monthly_expenses", req.Household.MonthlyExpenses,
		"debt_probability", risk.DebtProbability,
		"duration", time.Since(start),
	)
	return risk, nil
}

// StrategyResult is the debt risk for one spending level
type StrategyResult struct {
	MonthlyExpenses float64 `json:"monthly_expenses"`
	DebtRisk
}

// DefaultExpenseLevels are the monthly spending levels compared by default
var DefaultExpenseLevels = []float64{2500, 3000, 3500, 4000}

// CompareStrategies runs the same debt-risk batch at each expense level and
// returns results in ascending expense order. Every level reuses the base
// seed so differences come from spending alone.
func (e *Engine) CompareStrategies(ctx context.Context, base DebtRiskRequest, expenseLevels []float64) ([]StrategyResult, error) {
	levels := stats.Sorted(expenseLevels)
	results := make([]StrategyResult, 0, len(levels))

	for _, level := range levels {
		req := base
		req.Household.MonthlyExpenses = level

		risk, err := e.RunDebtRisk(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("compare strategy at %.2f: %w", level, err)
		}
		results = append(results, StrategyResult{MonthlyExpenses: level, DebtRisk: *risk})
	}

	return results, nil
}

// Trajectories simulates an ensemble of income paths whose starting incomes
// are drawn from dist. Path i uses stream (seed, i).
func (e *Engine) Trajectories(ctx context.Context, model income.Model, dist IncomeDistribution, nMonths, n int, seed int64) ([][]float64, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if nMonths < 1 || n < 1 || !(dist.Median > 0) {
		return nil, fmt.Errorf("%w: ensemble needs positive months, count and median income", ErrInvalidRequest)
	}

	paths := make([][]float64, n)
	err := parallelFor(ctx, n, e.workers, func(i int) error {
		rng := income.NewTrialRand(seed, i)
		initial := income.DrawInitialIncome(rng, dist.Median, dist.LogStd)
		paths[i] = model.Simulate(initial, nMonths, rng)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("simulate ensemble: %w", err)
	}

	return paths, nil
}
