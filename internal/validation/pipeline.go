package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"householdrisk/internal/estimation"
	"householdrisk/internal/income"
	"householdrisk/internal/simulation"
)

// ErrNoObservedHouseholds means no household in the panel qualifies for the
// observed side of the comparison.
var ErrNoObservedHouseholds = errors.New("no household qualifies for validation")

// Config controls one validation run
type Config struct {
	Kind         income.ModelKind `json:"model" validate:"required"`
	NSimulations int              `json:"n_simulations" validate:"min=1"`
	NMonths      int              `json:"n_months" validate:"min=2"`
	Seed         int64            `json:"seed"`
}

// DefaultConfig simulates 1000 jump-model paths of 48 months
func DefaultConfig() Config {
	return Config{Kind: income.KindJump, NSimulations: 1000, NMonths: 48, Seed: 42}
}

// Report is the outcome of ValidateModel
type Report struct {
	Estimate     *estimation.Estimate `json:"estimate"`
	Observed     []TrajectoryStats    `json:"-"`
	Simulated    []TrajectoryStats    `json:"-"`
	Comparisons  []Comparison         `json:"comparisons"`
	FitScore     float64              `json:"fit_score"`
	Trajectories [][]float64          `json:"-"`
}

// Validator runs the estimate, simulate and compare pipeline
type Validator struct {
	estimator *estimation.Estimator
	engine    *simulation.Engine
	logger    *slog.Logger
}

// NewValidator wires a validator; a nil logger falls back to slog.Default()
func NewValidator(estimator *estimation.Estimator, engine *simulation.Engine, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{estimator: estimator, engine: engine, logger: logger}
}

// ValidateModel calibrates cfg.Kind on the panel, simulates an ensemble from
// the calibrated model and compares it with the observed households that
// make it into the household statistics table.
func (v *Validator) ValidateModel(ctx context.Context, panel estimation.Panel, cfg Config) (*Report, error) {
	start := time.Now()

	if cfg.NSimulations < 1 || cfg.NMonths < 2 {
		return nil, fmt.Errorf("%w: validation needs at least one path of two months", simulation.ErrInvalidRequest)
	}

	est, err := v.estimator.Estimate(ctx, panel, cfg.Kind)
	if err != nil {
		return nil, fmt.Errorf("estimate %s model: %w", cfg.Kind, err)
	}

	var observed []TrajectoryStats
	for _, row := range estimation.ComputeHouseholdStats(panel, v.estimator.Options()) {
		if s, ok := ComputeTrajectoryStats(panel[row.Household]); ok {
			observed = append(observed, s)
		}
	}
	if len(observed) == 0 {
		return nil, ErrNoObservedHouseholds
	}

	dist := simulation.IncomeDistribution{Median: est.InitialIncome.Median, LogStd: est.InitialIncome.LogStd}
	paths, err := v.engine.Trajectories(ctx, est.Model, dist, cfg.NMonths, cfg.NSimulations, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("simulate validation ensemble: %w", err)
	}
	simulated := ComputeEnsembleStats(paths)

	comparisons := Compare(observed, simulated)
	report := &Report{
		Estimate:     est,
		Observed:     observed,
		Simulated:    simulated,
		Comparisons:  comparisons,
		FitScore:     FitScore(comparisons),
		Trajectories: paths,
	}

	v.logger.InfoContext(ctx, "model validation completed",
		"model", cfg.Kind.String(),
		"observed_households", len(observed),
		"simulated_paths", len(simulated),
		"fit_score", report.FitScore,
		"duration", time.Since(start),
	)
	return report, nil
}
