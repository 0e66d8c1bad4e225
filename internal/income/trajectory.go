package income

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewTrialRand returns the random stream owned by one trial. Streams for
// different trial indexes under the same base seed do not overlap, so trials
// can run on any goroutine without changing results.
func NewTrialRand(seed int64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(trial)))
}

// Simulate produces nMonths of monthly income starting at initial. The model
// must have passed Validate. Every draw comes from rng.
func (m Model) Simulate(initial float64, nMonths int, rng *rand.Rand) []float64 {
	if nMonths < 1 {
		return nil
	}

	switch m.Kind {
	case KindJump:
		return simulateJump(*m.Jump, m.Jump.Lambda, initial, nMonths, rng)
	case KindJumpHouseholdLambda:
		lambda := distuv.Beta{Alpha: HouseholdLambdaAlpha, Beta: HouseholdLambdaBeta, Src: rng}.Rand()
		return simulateJump(*m.Jump, lambda, initial, nMonths, rng)
	case KindAR1:
		return simulateAR1(m.AR1.Normalize(), initial, nMonths, rng)
	default:
		return nil
	}
}

func simulateJump(p JumpParams, lambda, initial float64, nMonths int, rng *rand.Rand) []float64 {
	path := make([]float64, nMonths)
	path[0] = initial

	size := distuv.LogNormal{Mu: p.JumpSizeMu(), Sigma: p.JumpSizeSigma(), Src: rng}

	for t := 1; t < nMonths; t++ {
		if rng.Float64() >= lambda {
			path[t] = path[t-1]
			continue
		}

		jump := math.Min(size.Rand(), MaxJumpSize)
		var next float64
		if rng.Float64() < p.ProbUpward {
			next = path[t-1] * (1 + jump)
		} else {
			next = path[t-1] * math.Max(MinDownMultiplier, 1-jump)
		}
		path[t] = math.Max(IncomeFloor, next)
	}

	return path
}

func simulateAR1(p AR1Params, initial float64, nMonths int, rng *rand.Rand) []float64 {
	path := make([]float64, nMonths)
	path[0] = math.Max(IncomeFloor, initial)

	level := math.Log(initial)
	prev := level
	shock := distuv.Normal{Mu: 0, Sigma: p.Sigma, Src: rng}

	for t := 1; t < nMonths; t++ {
		next := level + p.Rho*(prev-level) + shock.Rand()
		path[t] = math.Max(IncomeFloor, math.Exp(next))
		prev = next
	}

	return path
}

// DrawInitialIncome samples a starting income lognormally around median
func DrawInitialIncome(rng *rand.Rand, median, logStd float64) float64 {
	if logStd <= 0 {
		return median
	}
	return median * math.Exp(distuv.Normal{Mu: 0, Sigma: logStd, Src: rng}.Rand())
}
