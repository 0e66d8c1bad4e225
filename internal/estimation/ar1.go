package estimation

import (
	"context"
	"math"

	"householdrisk/internal/income"
	"householdrisk/internal/stats"
)

const (
	// minAR1Observations is the number of positive incomes a household needs
	// before its own lag-1 regression is attempted.
	minAR1Observations = 6
	minAR1Pairs        = 3
	minLagVariance     = 1e-6
)

// AR1Estimate holds within-household AR(1) parameters and diagnostics
type AR1Estimate struct {
	Params        income.AR1Params `json:"params"`
	InitialIncome InitialIncome    `json:"initial_income"`
	NHouseholds   int              `json:"n_households"`
	NResiduals    int              `json:"n_residuals"`
	// HalfLife in months; nil when rho is zero
	HalfLife *float64 `json:"half_life,omitempty"`
	// UnconditionalVariance of log income; +Inf at the rho ceiling
	UnconditionalVariance float64 `json:"-"`
}

// EstimateAR1 fits log income per household after removing the household
// mean, then takes the median of household coefficients.
func (e *Estimator) EstimateAR1(ctx context.Context, panel Panel) *AR1Estimate {
	var rhos, sigmas, means []float64
	residualCount := 0

	for _, key := range panel.Keys() {
		positive := stats.Positive(panel[key])
		if len(positive) < minAR1Observations {
			e.logger.DebugContext(ctx, "household skipped for AR(1)",
				"household", key,
				"positive_observations", len(positive),
			)
			continue
		}

		logIncome := make([]float64, len(positive))
		for i, v := range positive {
			logIncome[i] = math.Log(v)
		}
		mu := stats.Mean(logIncome)
		means = append(means, mu)

		demeaned := make([]float64, len(logIncome))
		for i, v := range logIncome {
			demeaned[i] = v - mu
		}
		y := demeaned[1:]
		lag := demeaned[:len(demeaned)-1]

		lagVar := stats.PopVariance(lag)
		if len(y) < minAR1Pairs || !(lagVar > minLagVariance) {
			continue
		}

		// Sample covariance over population variance, as in the reference fit.
		rho := stats.SampleCovariance(y, lag) / lagVar
		rho = math.Max(0, math.Min(rho, income.MaxRho))
		rhos = append(rhos, rho)

		residuals := make([]float64, len(y))
		for i := range y {
			residuals[i] = y[i] - rho*lag[i]
		}
		sigmas = append(sigmas, stats.PopStdDev(residuals))
		residualCount += len(residuals)
	}

	fallback := income.DefaultAR1Params()
	params := fallback
	if len(rhos) > 0 {
		params.Rho = stats.Median(rhos)
		params.Sigma = stats.Median(sigmas)
	}
	if len(means) > 0 {
		params.Mu = stats.Median(means)
	}

	est := &AR1Estimate{
		Params:        params,
		InitialIncome: EstimateInitialIncome(panel),
		NHouseholds:   len(rhos),
		NResiduals:    residualCount,
	}
	if params.Rho > 0 {
		halfLife := -math.Ln2 / math.Log(params.Rho)
		est.HalfLife = &halfLife
	}
	if params.Rho < income.MaxRho {
		est.UnconditionalVariance = params.Sigma * params.Sigma / (1 - params.Rho*params.Rho)
	} else {
		est.UnconditionalVariance = math.Inf(1)
	}

	if len(rhos) == 0 {
		e.logger.WarnContext(ctx, "no household qualified for AR(1), using fallback parameters",
			"rho", fallback.Rho,
			"sigma", fallback.Sigma,
			"mu", fallback.Mu,
		)
	}

	e.logger.InfoContext(ctx, "AR(1) parameters estimated",
		"rho", params.Rho,
		"sigma", params.Sigma,
		"mu", params.Mu,
		"households", est.NHouseholds,
		"residuals", est.NResiduals,
	)
	return est
}
