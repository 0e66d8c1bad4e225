// Package validation compares simulated income trajectories with observed
// household incomes through a shared vector of per-trajectory statistics.
package validation

import (
	"math"

	"householdrisk/internal/stats"
)

// Thresholds for the large-change fractions
const (
	ModerateChange = 0.25
	LargeChange    = 0.50
)

// Metric names one entry of the statistics vector
type Metric string

const (
	MetricCV                   Metric = "cv"
	MetricFracZeroChange       Metric = "frac_zero_change"
	MetricMeanNonzeroPctChange Metric = "mean_nonzero_pct_change"
	MetricJumpFreq             Metric = "jump_freq"
	MetricSkewness             Metric = "skewness"
	MetricKurtosis             Metric = "kurtosis"
	MetricACFLag1              Metric = "acf_lag1"
	MetricFracAbove25          Metric = "frac_change_gt_25"
	MetricFracAbove50          Metric = "frac_change_gt_50"
)

// Metrics lists every metric in report order
var Metrics = []Metric{
	MetricCV,
	MetricFracZeroChange,
	MetricMeanNonzeroPctChange,
	MetricJumpFreq,
	MetricSkewness,
	MetricKurtosis,
	MetricACFLag1,
	MetricFracAbove25,
	MetricFracAbove50,
}

// TrajectoryStats is the statistics vector for one income path. Pointer
// fields are nil when the path is too short or too flat to define them.
type TrajectoryStats struct {
	CV                   float64  `json:"cv"`
	FracZeroChange       float64  `json:"frac_zero_change"`
	MeanNonzeroPctChange float64  `json:"mean_nonzero_pct_change"`
	JumpFreq             float64  `json:"jump_freq"`
	Skewness             *float64 `json:"skewness"`
	Kurtosis             *float64 `json:"kurtosis"`
	ACFLag1              *float64 `json:"acf_lag1"`
	FracAbove25          float64  `json:"frac_change_gt_25"`
	FracAbove50          float64  `json:"frac_change_gt_50"`
}

// ComputeTrajectoryStats summarizes one trajectory. Non-positive months are
// dropped first; fewer than two positive months yields ok == false.
func ComputeTrajectoryStats(trajectory []float64) (TrajectoryStats, bool) {
	positive := stats.Positive(trajectory)
	if len(positive) < 2 {
		return TrajectoryStats{}, false
	}

	changes := stats.Diff(positive)
	pct := stats.PctChanges(positive)

	var zero, above25, above50 int
	var nonzero, nonzeroAbs []float64
	for i, c := range changes {
		a := math.Abs(pct[i])
		if c == 0 {
			zero++
		} else {
			nonzero = append(nonzero, pct[i])
			nonzeroAbs = append(nonzeroAbs, a)
		}
		if a > ModerateChange {
			above25++
		}
		if a > LargeChange {
			above50++
		}
	}

	n := float64(len(changes))
	s := TrajectoryStats{
		CV:             stats.CoefficientOfVariation(positive),
		FracZeroChange: float64(zero) / n,
		JumpFreq:       float64(len(nonzero)) / n,
		FracAbove25:    float64(above25) / n,
		FracAbove50:    float64(above50) / n,
	}
	if len(nonzeroAbs) > 0 {
		s.MeanNonzeroPctChange = stats.Mean(nonzeroAbs)
	}
	if v, ok := stats.Skewness(nonzero); ok {
		s.Skewness = &v
	}
	if v, ok := stats.ExcessKurtosis(nonzero); ok {
		s.Kurtosis = &v
	}
	if acf := stats.Lag1Autocorrelation(positive); !math.IsNaN(acf) {
		s.ACFLag1 = &acf
	}

	return s, true
}

// Value returns one metric, NaN when it is undefined
func (s TrajectoryStats) Value(m Metric) float64 {
	switch m {
	case MetricCV:
		return s.CV
	case MetricFracZeroChange:
		return s.FracZeroChange
	case MetricMeanNonzeroPctChange:
		return s.MeanNonzeroPctChange
	case MetricJumpFreq:
		return s.JumpFreq
	case MetricSkewness:
		return deref(s.Skewness)
	case MetricKurtosis:
		return deref(s.Kurtosis)
	case MetricACFLag1:
		return deref(s.ACFLag1)
	case MetricFracAbove25:
		return s.FracAbove25
	case MetricFracAbove50:
		return s.FracAbove50
	}
	return math.NaN()
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ComputeEnsembleStats summarizes every trajectory that has enough data.
// Skipped trajectories leave no row.
func ComputeEnsembleStats(trajectories [][]float64) []TrajectoryStats {
	rows := make([]TrajectoryStats, 0, len(trajectories))
	for _, tr := range trajectories {
		if s, ok := ComputeTrajectoryStats(tr); ok {
			rows = append(rows, s)
		}
	}
	return rows
}
