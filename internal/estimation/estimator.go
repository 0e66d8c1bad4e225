package estimation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"householdrisk/internal/income"
)

// EstimationMode selects how jump parameters are derived from the panel
type EstimationMode string

const (
	// ModeAggregate matches quantiles of per-household summary statistics
	ModeAggregate EstimationMode = "aggregate"
	// ModeRaw pools every month-to-month change across households
	ModeRaw EstimationMode = "raw"
)

// IsValid reports whether m is a known estimation mode
func (m EstimationMode) IsValid() bool {
	return m == ModeAggregate || m == ModeRaw
}

// Options tunes household filtering and jump classification
type Options struct {
	Mode                 EstimationMode `json:"mode" yaml:"mode"`
	MinMonths            int            `json:"min_months" yaml:"min_months"`
	LargeJumpThreshold   float64        `json:"large_jump_threshold" yaml:"large_jump_threshold"`
	SmallChangeThreshold float64        `json:"small_change_threshold" yaml:"small_change_threshold"`
	WinsorPercentile     float64        `json:"winsor_percentile" yaml:"winsor_percentile"`
}

// DefaultOptions returns the thresholds used for the survey analysis
func DefaultOptions() Options {
	return Options{
		Mode:                 ModeRaw,
		MinMonths:            6,
		LargeJumpThreshold:   0.30,
		SmallChangeThreshold: 0.05,
		WinsorPercentile:     0.99,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	switch {
	case !o.Mode.IsValid():
		return fmt.Errorf("unknown estimation mode %q", o.Mode)
	case o.MinMonths < 2:
		return fmt.Errorf("min months must be at least 2, got %d", o.MinMonths)
	case o.LargeJumpThreshold <= 0:
		return fmt.Errorf("large jump threshold must be positive")
	case o.SmallChangeThreshold < 0:
		return fmt.Errorf("small change threshold must be non-negative")
	case o.WinsorPercentile <= 0 || o.WinsorPercentile > 1:
		return fmt.Errorf("winsor percentile must be within (0, 1]")
	}
	return nil
}

// Estimate is a calibrated model plus the distribution used to seed
// synthetic starting incomes.
type Estimate struct {
	Model         income.Model  `json:"model"`
	InitialIncome InitialIncome `json:"initial_income"`
	Jump          *JumpEstimate `json:"jump,omitempty"`
	AR1           *AR1Estimate  `json:"ar1,omitempty"`
}

// Estimator calibrates income models from panel data
type Estimator struct {
	opts   Options
	logger *slog.Logger
}

// NewEstimator creates an estimator; a nil logger falls back to slog.Default()
func NewEstimator(opts Options, logger *slog.Logger) (*Estimator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate estimation options: %w", err)
	}
	return &Estimator{opts: opts, logger: logger}, nil
}

// Options returns the estimator's configuration
func (e *Estimator) Options() Options {
	return e.opts
}

// Estimate calibrates the requested model kind
func (e *Estimator) Estimate(ctx context.Context, panel Panel, kind income.ModelKind) (*Estimate, error) {
	start := time.Now()

	if len(panel) == 0 {
		return nil, ErrEmptyPanel
	}

	e.logger.InfoContext(ctx, "starting parameter estimation",
		"model", kind.String(),
		"mode", string(e.opts.Mode),
		"households", len(panel),
		"observations", panel.NumObservations(),
	)

	var est *Estimate
	switch kind {
	case income.KindJump, income.KindJumpHouseholdLambda:
		jump := e.EstimateJump(ctx, panel)
		model := income.NewJumpModel(jump.Params)
		if kind == income.KindJumpHouseholdLambda {
			model = income.NewHouseholdLambdaModel(jump.Params)
		}
		est = &Estimate{Model: model, InitialIncome: jump.InitialIncome, Jump: jump}
	case income.KindAR1:
		ar1 := e.EstimateAR1(ctx, panel)
		est = &Estimate{Model: income.NewAR1Model(ar1.Params), InitialIncome: ar1.InitialIncome, AR1: ar1}
	default:
		return nil, fmt.Errorf("estimate %q: %w", kind, income.ErrInvalidParameters)
	}

	if err := est.Model.Validate(); err != nil {
		return nil, fmt.Errorf("validate estimated model: %w", err)
	}

	e.logger.InfoContext(ctx, "parameter estimation completed",
		"model", kind.String(),
		"duration", time.Since(start),
	)
	return est, nil
}
