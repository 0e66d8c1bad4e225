package estimation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHouseholdStats(t *testing.T) {
	panel := samplePanel()
	panel["short"] = []float64{1000, 2000, 3000}
	panel["flat"] = []float64{900, 900, 900, 900, 900, 900}
	panel["zeros"] = []float64{0, 0, 0, 0, 1000, 1000}

	rows := ComputeHouseholdStats(panel, DefaultOptions())

	require.Len(t, rows, 3, "short, constant and sparse households are excluded")
	assert.Equal(t, "A", rows[0].Household)
	assert.Equal(t, "B", rows[1].Household)
	assert.Equal(t, "C", rows[2].Household)

	b := rows[1]
	assert.Equal(t, 6, b.NMonths)
	assert.InDelta(t, 0.8, b.FracZeroChange, 1e-12)
	assert.InDelta(t, 0.5, b.MeanNonzeroPctChange, 1e-12)
	assert.InDelta(t, 0.2, b.JumpFreq, 1e-12)
	assert.InDelta(t, 0.2, b.FracLargeChange, 1e-12)
	assert.InDelta(t, 0.8, b.FracSmallChange, 1e-12)
	assert.InDelta(t, 0.5, b.MaxAbsChange, 1e-12)
	assert.Equal(t, 0.0, b.MedianAbsChange)
	assert.False(t, math.IsNaN(b.ACFLag1))
	assert.Greater(t, b.TrendComponent, 0.0)

	a := rows[0]
	assert.InDelta(t, 0.0, a.JumpFreq, 1e-12, "a 20% change is below the large threshold")
	assert.InDelta(t, 1.0, a.FracSmallChange+a.FracLargeChange+1.0/6.0, 1e-12)
}

func TestComputeHouseholdStatsUndefinedAutocorrelation(t *testing.T) {
	panel := Panel{
		"late-jump": {500, 500, 500, 500, 500, 500, 500, 1000},
		"mid-jump":  {500, 500, 500, 500, 1000, 1000, 1000, 1000},
	}

	rows := ComputeHouseholdStats(panel, DefaultOptions())

	require.Len(t, rows, 1, "a constant lag series has no autocorrelation")
	assert.Equal(t, "mid-jump", rows[0].Household)
	assert.False(t, math.IsNaN(rows[0].ACFLag1))
}

func TestComputeIncomeAnalysis(t *testing.T) {
	panel := Panel{
		"q1": {1000, 1000},
		"q2": {2000, 2000},
		"q3": {3000, 3000},
		"q4": {4000, 4000},
		"q5": {4000, 6000},
		"no": {0, 2500},
	}

	rows := ComputeIncomeAnalysis(panel)

	require.Len(t, rows, 5)
	labels := map[string]string{}
	for _, r := range rows {
		labels[r.Household] = r.IncomeQuintile
	}
	assert.Equal(t, map[string]string{"q1": "Q1", "q2": "Q2", "q3": "Q3", "q4": "Q4", "q5": "Q5"}, labels)

	q5 := rows[4]
	assert.Equal(t, 5000.0, q5.MeanIncome)
	assert.Equal(t, 1.0, q5.JumpFreq)
	assert.InDelta(t, 0.5, q5.MeanJumpSizePct, 1e-12)
	assert.InDelta(t, 0.5, q5.MeanUpwardJump, 1e-12)
	assert.Equal(t, 0.0, q5.MeanDownwardJump)

	assert.Equal(t, 0.0, rows[0].JumpFreq)
	assert.Equal(t, 0.0, rows[0].MeanJumpSizePct)
}

func TestPanelHelpers(t *testing.T) {
	p := Panel{"b": {0, 10}, "a": {5, 0, 7}}

	assert.Equal(t, []string{"a", "b"}, p.Keys())
	assert.Equal(t, 5, p.NumObservations())
	assert.Equal(t, []float64{5, 7, 10}, p.PositiveIncomes())
}
