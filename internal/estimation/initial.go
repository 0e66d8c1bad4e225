package estimation

import (
	"math"

	"householdrisk/internal/stats"
)

// Fallbacks for panels without positive incomes
const (
	DefaultInitialIncomeMedian = 5000.0
	DefaultInitialLogStd       = 0.5
)

// InitialIncome describes where synthetic households start
type InitialIncome struct {
	Median float64 `json:"median"`
	LogStd float64 `json:"log_std"`
	IQR    float64 `json:"iqr"`
}

// EstimateInitialIncome uses the median and log-scale spread of every
// positive income in the panel.
func EstimateInitialIncome(panel Panel) InitialIncome {
	incomes := panel.PositiveIncomes()
	if len(incomes) == 0 {
		return InitialIncome{Median: DefaultInitialIncomeMedian, LogStd: DefaultInitialLogStd}
	}

	logs := make([]float64, len(incomes))
	for i, v := range incomes {
		logs[i] = math.Log(v)
	}

	q := stats.Quantiles(incomes, []float64{0.25, 0.5, 0.75})
	return InitialIncome{
		Median: q[1],
		LogStd: stats.PopStdDev(logs),
		IQR:    q[2] - q[0],
	}
}

// aggregateInitialIncome centres on the median household mean income
func aggregateInitialIncome(rows []IncomeAnalysis) InitialIncome {
	if len(rows) == 0 {
		return InitialIncome{Median: DefaultInitialIncomeMedian, LogStd: DefaultInitialLogStd}
	}

	means := make([]float64, len(rows))
	for i, r := range rows {
		means[i] = r.MeanIncome
	}
	q := stats.Quantiles(means, []float64{0.25, 0.5, 0.75})
	return InitialIncome{Median: q[1], LogStd: DefaultInitialLogStd, IQR: q[2] - q[0]}
}
