package estimation

import (
	"math"

	"householdrisk/internal/stats"
)

// HouseholdStats is one row of the per-household volatility table
type HouseholdStats struct {
	Household string `json:"household"`
	NMonths   int    `json:"n_months"`

	Variance float64 `json:"variance"`
	CV       float64 `json:"cv"`
	JumpFreq float64 `json:"jump_freq"`

	TrendComponent  float64 `json:"trend_component"`
	MedianAbsChange float64 `json:"median_abs_change"`
	MaxAbsChange    float64 `json:"max_abs_change"`
	ACFLag1         float64 `json:"acf_lag1"`

	FracZeroChange       float64 `json:"frac_zero_change"`
	FracSmallChange      float64 `json:"frac_small_change"`
	FracLargeChange      float64 `json:"frac_large_change"`
	MeanNonzeroPctChange float64 `json:"mean_nonzero_pct_change"`
}

// ComputeHouseholdStats builds the volatility table for households with at
// least opts.MinMonths records. Only complete rows are returned: households
// need three positive incomes and a defined lag-1 autocorrelation.
func ComputeHouseholdStats(panel Panel, opts Options) []HouseholdStats {
	var rows []HouseholdStats

	for _, key := range panel.Keys() {
		incomes := panel[key]
		if len(incomes) < opts.MinMonths {
			continue
		}

		row, ok := householdRow(key, incomes, opts)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	return rows
}

func householdRow(key string, incomes []float64, opts Options) (HouseholdStats, bool) {
	positive := stats.Positive(incomes)
	if len(positive) < 3 {
		return HouseholdStats{}, false
	}

	changes := stats.Diff(positive)
	pct := stats.PctChanges(positive)

	row := HouseholdStats{
		Household: key,
		NMonths:   len(incomes),
		Variance:  stats.PopVariance(positive),
		CV:        stats.CoefficientOfVariation(positive),
	}

	var large, small, zero int
	absPct := make([]float64, len(pct))
	var nonzeroAbs []float64
	for i, c := range pct {
		a := math.Abs(c)
		absPct[i] = a
		if a >= opts.LargeJumpThreshold {
			large++
		}
		if a < opts.SmallChangeThreshold {
			small++
		}
		if changes[i] == 0 {
			zero++
		} else {
			nonzeroAbs = append(nonzeroAbs, a)
		}
	}

	n := float64(len(pct))
	row.JumpFreq = float64(large) / n
	row.FracLargeChange = row.JumpFreq
	row.FracSmallChange = float64(small) / n
	row.FracZeroChange = float64(zero) / n
	if len(nonzeroAbs) > 0 {
		row.MeanNonzeroPctChange = stats.Mean(nonzeroAbs)
	}

	mean := stats.Mean(positive)
	row.TrendComponent = math.Abs(stats.TrendSlope(positive)) * float64(len(positive)) / mean
	row.MedianAbsChange = stats.Median(absPct)
	row.MaxAbsChange = stats.Sorted(absPct)[len(absPct)-1]
	row.ACFLag1 = stats.Lag1Autocorrelation(positive)

	if math.IsNaN(row.ACFLag1) || math.IsNaN(row.MedianAbsChange) {
		return HouseholdStats{}, false
	}
	return row, true
}

// IncomeAnalysis describes jump behaviour against a household's income level
type IncomeAnalysis struct {
	Household        string  `json:"household"`
	MeanIncome       float64 `json:"mean_income"`
	JumpFreq         float64 `json:"jump_freq"`
	MeanJumpSizePct  float64 `json:"mean_jump_size_pct"`
	MeanUpwardJump   float64 `json:"mean_upward_jump"`
	MeanDownwardJump float64 `json:"mean_downward_jump"`
	IncomeQuintile   string  `json:"income_quintile"`
}

// QuintileLabels name the equal-frequency income bins from lowest to highest
var QuintileLabels = []string{"Q1", "Q2", "Q3", "Q4", "Q5"}

// ComputeIncomeAnalysis summarizes every household with two or more positive
// incomes and assigns each to an income quintile.
func ComputeIncomeAnalysis(panel Panel) []IncomeAnalysis {
	var rows []IncomeAnalysis

	for _, key := range panel.Keys() {
		positive := stats.Positive(panel[key])
		if len(positive) < 2 {
			continue
		}

		changes := stats.Diff(positive)
		pct := stats.PctChanges(positive)

		var sizes, ups, downs []float64
		for i, c := range changes {
			if c == 0 {
				continue
			}
			sizes = append(sizes, math.Abs(pct[i]))
			if c > 0 {
				ups = append(ups, pct[i])
			} else {
				downs = append(downs, math.Abs(pct[i]))
			}
		}

		rows = append(rows, IncomeAnalysis{
			Household:        key,
			MeanIncome:       stats.Mean(positive),
			JumpFreq:         float64(len(sizes)) / float64(len(changes)),
			MeanJumpSizePct:  meanOrZero(sizes),
			MeanUpwardJump:   meanOrZero(ups),
			MeanDownwardJump: meanOrZero(downs),
		})
	}

	assignQuintiles(rows)
	return rows
}

// assignQuintiles bins mean income at the 20/40/60/80% quantiles. Bins are
// right-closed and the lowest bin includes the minimum.
func assignQuintiles(rows []IncomeAnalysis) {
	if len(rows) == 0 {
		return
	}

	means := make([]float64, len(rows))
	for i, r := range rows {
		means[i] = r.MeanIncome
	}
	edges := stats.Quantiles(means, []float64{0.2, 0.4, 0.6, 0.8})

	for i := range rows {
		bin := len(edges)
		for j, edge := range edges {
			if rows[i].MeanIncome <= edge {
				bin = j
				break
			}
		}
		rows[i].IncomeQuintile = QuintileLabels[bin]
	}
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stats.Mean(values)
}
