package income

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameters is wrapped by every parameter validation failure
var ErrInvalidParameters = errors.New("invalid income model parameters")

// ParameterError names the offending field of a rejected model
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameters
}

// ModelKind selects the income process used for a trajectory
type ModelKind string

const (
	// KindJump is the compound-jump model with a fixed monthly jump probability
	KindJump ModelKind = "jump"
	// KindJumpHouseholdLambda draws each trajectory's jump probability from Beta(2, 20)
	KindJumpHouseholdLambda ModelKind = "jump_household_lambda"
	// KindAR1 is mean reversion in log income around the starting level
	KindAR1 ModelKind = "ar1"
)

// IsValid reports whether k is a known model kind
func (k ModelKind) IsValid() bool {
	switch k {
	case KindJump, KindJumpHouseholdLambda, KindAR1:
		return true
	default:
		return false
	}
}

func (k ModelKind) String() string {
	return string(k)
}

// Model process constants
const (
	// IncomeFloor is the lowest monthly income a simulated month can reach
	IncomeFloor = 100.0
	// MaxJumpSize caps a single jump at a 200% change
	MaxJumpSize = 2.0
	// MinDownMultiplier keeps a downward jump from wiping out income entirely
	MinDownMultiplier = 0.01

	// HouseholdLambdaAlpha and HouseholdLambdaBeta parameterize the Beta
	// distribution of per-household jump probabilities (mean about 0.09).
	HouseholdLambdaAlpha = 2.0
	HouseholdLambdaBeta  = 20.0

	// iqrToSigma converts the log interquartile ratio of a lognormal into sigma
	iqrToSigma      = 1.35
	minJumpSigma    = 0.1
	maxJumpSigma    = 1.0
	fallbackIQRatio = 2.0

	// MaxRho bounds AR(1) persistence below a unit root
	MaxRho = 0.99
)

// JumpParams configures the compound-jump model
type JumpParams struct {
	Lambda        float64 `json:"lambda" yaml:"lambda"`
	JumpMedianPct float64 `json:"jump_median_pct" yaml:"jump_median_pct"`
	JumpQ25       float64 `json:"jump_q25" yaml:"jump_q25"`
	JumpQ75       float64 `json:"jump_q75" yaml:"jump_q75"`
	ProbUpward    float64 `json:"prob_upward" yaml:"prob_upward"`
}

// Validate checks ranges; q25 <= 0 is tolerated and handled by the sigma fallback
func (p JumpParams) Validate() error {
	switch {
	case !inUnit(p.Lambda):
		return &ParameterError{Field: "lambda", Reason: "must be within [0, 1]"}
	case !(p.JumpMedianPct > 0) || math.IsInf(p.JumpMedianPct, 0):
		return &ParameterError{Field: "jump_median_pct", Reason: "must be positive"}
	case !(p.JumpQ75 > 0) || math.IsInf(p.JumpQ75, 0):
		return &ParameterError{Field: "jump_q75", Reason: "must be positive"}
	case math.IsNaN(p.JumpQ25) || math.IsInf(p.JumpQ25, 0):
		return &ParameterError{Field: "jump_q25", Reason: "must be finite"}
	case !inUnit(p.ProbUpward):
		return &ParameterError{Field: "prob_upward", Reason: "must be within [0, 1]"}
	}
	return nil
}

// JumpSizeMu is the log-scale location of the jump size distribution
func (p JumpParams) JumpSizeMu() float64 {
	return math.Log(p.JumpMedianPct)
}

// JumpSizeSigma derives the lognormal scale from the quartile ratio, bounded to [0.1, 1.0]
func (p JumpParams) JumpSizeSigma() float64 {
	ratio := fallbackIQRatio
	if p.JumpQ25 > 0 {
		ratio = p.JumpQ75 / p.JumpQ25
	}
	sigma := math.Log(ratio) / iqrToSigma
	return math.Max(minJumpSigma, math.Min(sigma, maxJumpSigma))
}

// AR1Params configures the log-income AR(1) model. Mu is the estimated
// population equilibrium; trajectories revert to their own starting level.
type AR1Params struct {
	Rho   float64 `json:"rho" yaml:"rho"`
	Mu    float64 `json:"mu" yaml:"mu"`
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

// Validate checks that the shock scale is usable
func (p AR1Params) Validate() error {
	switch {
	case math.IsNaN(p.Rho) || math.IsInf(p.Rho, 0):
		return &ParameterError{Field: "rho", Reason: "must be finite"}
	case !(p.Sigma >= 0) || math.IsInf(p.Sigma, 0):
		return &ParameterError{Field: "sigma", Reason: "must be non-negative"}
	case math.IsNaN(p.Mu) || math.IsInf(p.Mu, 0):
		return &ParameterError{Field: "mu", Reason: "must be finite"}
	}
	return nil
}

// Normalize clamps rho into [0, MaxRho]
func (p AR1Params) Normalize() AR1Params {
	p.Rho = math.Max(0, math.Min(p.Rho, MaxRho))
	return p
}

// Model is a tagged income model: Kind selects which payload is read.
type Model struct {
	Kind ModelKind   `json:"kind"`
	Jump *JumpParams `json:"jump,omitempty"`
	AR1  *AR1Params  `json:"ar1,omitempty"`
}

// NewJumpModel returns a fixed-lambda jump model
func NewJumpModel(p JumpParams) Model {
	return Model{Kind: KindJump, Jump: &p}
}

// NewHouseholdLambdaModel returns a jump model whose lambda is drawn per trajectory
func NewHouseholdLambdaModel(p JumpParams) Model {
	return Model{Kind: KindJumpHouseholdLambda, Jump: &p}
}

// NewAR1Model returns an AR(1) model with rho clamped into range
func NewAR1Model(p AR1Params) Model {
	p = p.Normalize()
	return Model{Kind: KindAR1, AR1: &p}
}

// Validate checks the kind and its payload
func (m Model) Validate() error {
	switch m.Kind {
	case KindJump, KindJumpHouseholdLambda:
		if m.Jump == nil {
			return &ParameterError{Field: "jump", Reason: "parameters required for " + m.Kind.String()}
		}
		return m.Jump.Validate()
	case KindAR1:
		if m.AR1 == nil {
			return &ParameterError{Field: "ar1", Reason: "parameters required for ar1"}
		}
		return m.AR1.Validate()
	default:
		return &ParameterError{Field: "kind", Reason: fmt.Sprintf("unknown model kind %q", m.Kind)}
	}
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// DefaultJumpParams are the jump parameters calibrated on the survey panel
// and used when no estimate is supplied.
func DefaultJumpParams() JumpParams {
	return JumpParams{
		Lambda:        0.273,
		JumpMedianPct: 0.232,
		JumpQ25:       0.115,
		JumpQ75:       0.545,
		ProbUpward:    0.5,
	}
}

// DefaultAR1Params is the AR(1) fallback when no household qualifies for estimation
func DefaultAR1Params() AR1Params {
	return AR1Params{Rho: 0.7, Mu: 8.5, Sigma: 0.15}
}
