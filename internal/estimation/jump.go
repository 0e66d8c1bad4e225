package estimation

import (
	"context"
	"math"

	"householdrisk/internal/income"
	"householdrisk/internal/stats"
)

// JumpEstimate holds jump-model parameters with the sample they came from
type JumpEstimate struct {
	Params        income.JumpParams `json:"params"`
	InitialIncome InitialIncome     `json:"initial_income"`
	Mode          EstimationMode    `json:"mode"`
	NHouseholds   int               `json:"n_households"`
	NChanges      int               `json:"n_changes"`
	Fallback      bool              `json:"fallback"`
}

// EstimateJump derives jump parameters using the configured mode. Parameters
// that cannot be identified from the panel keep their calibrated defaults.
func (e *Estimator) EstimateJump(ctx context.Context, panel Panel) *JumpEstimate {
	var est *JumpEstimate
	if e.opts.Mode == ModeAggregate {
		est = e.estimateJumpAggregate(panel)
	} else {
		est = e.estimateJumpRaw(panel)
	}

	if est.Fallback {
		e.logger.WarnContext(ctx, "jump parameters partly fall back to defaults",
			"mode", string(est.Mode),
			"households", est.NHouseholds,
			"changes", est.NChanges,
		)
	}

	e.logger.InfoContext(ctx, "jump parameters estimated",
		"mode", string(est.Mode),
		"lambda", est.Params.Lambda,
		"jump_median_pct", est.Params.JumpMedianPct,
		"jump_q25", est.Params.JumpQ25,
		"jump_q75", est.Params.JumpQ75,
		"prob_upward", est.Params.ProbUpward,
		"households", est.NHouseholds,
	)
	return est
}

// estimateJumpAggregate matches the median and quartiles of per-household
// summaries. Direction is assumed symmetric.
func (e *Estimator) estimateJumpAggregate(panel Panel) *JumpEstimate {
	rows := ComputeHouseholdStats(panel, e.opts)
	est := &JumpEstimate{
		Params:        income.DefaultJumpParams(),
		InitialIncome: aggregateInitialIncome(ComputeIncomeAnalysis(panel)),
		Mode:          ModeAggregate,
		NHouseholds:   len(rows),
	}
	est.Params.ProbUpward = 0.5

	if len(rows) == 0 {
		est.Fallback = true
		return est
	}

	zeroFrac := make([]float64, len(rows))
	sizes := make([]float64, len(rows))
	for i, r := range rows {
		zeroFrac[i] = r.FracZeroChange
		sizes[i] = r.MeanNonzeroPctChange
	}

	est.Params.Lambda = 1 - stats.Median(zeroFrac)
	est.setJumpSizes(stats.Quantiles(sizes, []float64{0.25, 0.5, 0.75}))
	return est
}

// estimateJumpRaw pools every change in the panel. Jump magnitudes are
// winsorized at the configured percentile before taking quantiles.
func (e *Estimator) estimateJumpRaw(panel Panel) *JumpEstimate {
	est := &JumpEstimate{
		Params:        income.DefaultJumpParams(),
		InitialIncome: EstimateInitialIncome(panel),
		Mode:          ModeRaw,
	}

	var zero, upward int
	var magnitudes []float64
	for _, key := range panel.Keys() {
		positive := stats.Positive(panel[key])
		if len(positive) < 2 {
			continue
		}
		est.NHouseholds++

		changes := stats.Diff(positive)
		pct := stats.PctChanges(positive)
		for i, c := range changes {
			est.NChanges++
			switch {
			case c == 0:
				zero++
			case c > 0:
				upward++
				magnitudes = append(magnitudes, math.Abs(pct[i]))
			default:
				magnitudes = append(magnitudes, math.Abs(pct[i]))
			}
		}
	}

	if est.NChanges == 0 {
		est.Fallback = true
		return est
	}
	est.Params.Lambda = 1 - float64(zero)/float64(est.NChanges)

	if len(magnitudes) == 0 {
		est.Fallback = true
		return est
	}
	est.Params.ProbUpward = float64(upward) / float64(len(magnitudes))

	winsorized := stats.ClipUpper(magnitudes, e.opts.WinsorPercentile)
	est.setJumpSizes(stats.Quantiles(winsorized, []float64{0.25, 0.5, 0.75}))
	return est
}

// setJumpSizes applies quartiles q25, median, q75 unless the median is not
// positive, in which case the lognormal location is undefined.
func (est *JumpEstimate) setJumpSizes(q []float64) {
	if !(q[1] > 0) {
		est.Fallback = true
		return
	}
	est.Params.JumpQ25 = q[0]
	est.Params.JumpMedianPct = q[1]
	est.Params.JumpQ75 = q[2]
}
