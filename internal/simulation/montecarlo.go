package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"householdrisk/internal/income"
	"householdrisk/internal/stats"
)

var (
	// ErrInvalidRequest wraps every rejected simulation input
	ErrInvalidRequest = errors.New("invalid simulation request")
	// ErrSimulationFailed reports a numerical failure inside a batch. No
	// partial result accompanies it.
	ErrSimulationFailed = errors.New("simulation failed")
)

// Request describes one Monte Carlo batch
type Request struct {
	Model         income.Model
	Household     Household
	InitialIncome float64
	NMonths       int
	NSimulations  int
	NSamplePaths  int
	Seed          int64
	Policy        BalancePolicy
}

// Validate checks the request before any trial runs
func (r Request) Validate() error {
	switch {
	case r.NMonths < 1:
		return fmt.Errorf("%w: n_months must be at least 1", ErrInvalidRequest)
	case r.NSimulations < 1:
		return fmt.Errorf("%w: n_simulations must be at least 1", ErrInvalidRequest)
	case r.NSamplePaths < 0:
		return fmt.Errorf("%w: n_sample_paths must be non-negative", ErrInvalidRequest)
	case !(r.InitialIncome > 0) || math.IsInf(r.InitialIncome, 0):
		return fmt.Errorf("%w: initial income must be positive", ErrInvalidRequest)
	case !r.Policy.IsValid():
		return fmt.Errorf("%w: unknown balance policy %q", ErrInvalidRequest, r.Policy)
	}
	if err := r.Household.Validate(); err != nil {
		return err
	}
	if err := r.Model.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// AggregateStats are cross-trial balance statistics at each month 0..n
type AggregateStats struct {
	Months []int     `json:"months"`
	Mean   []float64 `json:"mean"`
	P5     []float64 `json:"p5"`
	P10    []float64 `json:"p10"`
	P25    []float64 `json:"p25"`
	P50    []float64 `json:"p50"`
	P75    []float64 `json:"p75"`
	P90    []float64 `json:"p90"`
	P95    []float64 `json:"p95"`
}

// TerminalStats describe the distribution of final balances
type TerminalStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	P5     float64 `json:"p5"`
	P10    float64 `json:"p10"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
}

// Statistics are scalar outcome measures across trials. Percentages are 0..100.
type Statistics struct {
	TerminalStats          TerminalStats `json:"terminalStats"`
	NegativeTerminalPct    float64       `json:"negativeTerminalPct"`
	EverNegativePct        float64       `json:"everNegativePct"`
	CreditExhaustionPct    float64       `json:"creditExhaustionPct"`
	MedianMinBalance       float64       `json:"medianMinBalance"`
	MeanMinBalance         float64       `json:"meanMinBalance"`
	MedianInterestPaid     float64       `json:"medianInterestPaid"`
	MeanInterestPaid       float64       `json:"meanInterestPaid"`
	MedianMonthsToNegative *float64      `json:"medianMonthsToNegative"`
}

// RiskMetrics are survival curves and household-level ratios
type RiskMetrics struct {
	ProbabilityPositiveByMonth    []float64 `json:"probabilityPositiveByMonth"`
	ProbabilityAboveCreditByMonth []float64 `json:"probabilityAboveCreditByMonth"`
	// EmergencyFundMonths is +Inf when there are no expenses
	EmergencyFundMonths float64 `json:"emergencyFundMonths"`
	MonthlyNetIncome    float64 `json:"monthlyNetIncome"`
}

// MarshalJSON writes an infinite emergency fund as the string "Infinity",
// since JSON numbers cannot represent it.
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	type plain RiskMetrics
	var months any = m.EmergencyFundMonths
	if math.IsInf(m.EmergencyFundMonths, 1) {
		months = "Infinity"
	}
	return json.Marshal(struct {
		plain
		EmergencyFundMonths any `json:"emergencyFundMonths"`
	}{plain: plain(m), EmergencyFundMonths: months})
}

// Metadata echoes the inputs a result was produced from
type Metadata struct {
	NSimulations    int     `json:"nSimulations"`
	NMonths         int     `json:"nMonths"`
	NSamplePaths    int     `json:"nSamplePaths"`
	InitialFund     float64 `json:"initialFund"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	InitialIncome   float64 `json:"initialIncome"`
	AvailableCredit float64 `json:"availableCredit"`
	InterestRate    float64 `json:"interestRate"`
	Seed            int64   `json:"seed"`
	Model           string  `json:"model"`
	BalancePolicy   string  `json:"balancePolicy"`
	RunID           string  `json:"runId,omitempty"`
}

// Result is the immutable outcome of one batch
type Result struct {
	SamplePaths    [][]float64    `json:"samplePaths"`
	TerminalValues []float64      `json:"terminalValues"`
	AggregateStats AggregateStats `json:"aggregateStats"`
	Statistics     Statistics     `json:"statistics"`
	RiskMetrics    RiskMetrics    `json:"riskMetrics"`
	Metadata       Metadata       `json:"metadata"`
}

// Engine runs Monte Carlo batches on a bounded worker pool
type Engine struct {
	workers int
	logger  *slog.Logger
}

// NewEngine creates an engine. workers <= 0 uses GOMAXPROCS; a nil logger
// falls back to slog.Default().
func NewEngine(workers int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{workers: workers, logger: logger}
}

// Run simulates req.NSimulations independent trials and aggregates them.
// Trial i draws only from the stream (Seed, i), so the result does not
// depend on how trials are scheduled.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "starting monte carlo simulation",
		"n_simulations", req.NSimulations,
		"n_months", req.NMonths,
		"model", req.Model.Kind.String(),
		"policy", req.Policy.String(),
		"seed", req.Seed,
	)

	trials := make([]TrialResult, req.NSimulations)
	err := parallelFor(ctx, req.NSimulations, e.workers, func(i int) error {
		rng := income.NewTrialRand(req.Seed, i)
		path := req.Model.Simulate(req.InitialIncome, req.NMonths, rng)
		res := SimulateBalance(path, req.Household, req.Policy)
		if math.IsNaN(res.TerminalBalance) || math.IsInf(res.TerminalBalance, 0) {
			return fmt.Errorf("%w: trial %d produced a non-finite balance", ErrSimulationFailed, i)
		}
		trials[i] = res
		return nil
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "monte carlo simulation failed", "error", err)
		return nil, fmt.Errorf("run trials: %w", err)
	}

	result, err := e.aggregate(ctx, req, trials)
	if err != nil {
		return nil, fmt.Errorf("aggregate trials: %w", err)
	}

	e.logger.InfoContext(ctx, "monte carlo simulation completed",
		"n_simulations", req.NSimulations,
		"n_months", req.NMonths,
		"duration", time.Since(start),
		"ever_negative_pct", result.Statistics.EverNegativePct,
	)
	return result, nil
}

func (e *Engine) aggregate(ctx context.Context, req Request, trials []TrialResult) (*Result, error) {
	n := len(trials)
	months := req.NMonths + 1

	agg := AggregateStats{
		Months: make([]int, months),
		Mean:   make([]float64, months),
		P5:     make([]float64, months),
		P10:    make([]float64, months),
		P25:    make([]float64, months),
		P50:    make([]float64, months),
		P75:    make([]float64, months),
		P90:    make([]float64, months),
		P95:    make([]float64, months),
	}
	positive := make([]float64, months)
	aboveCredit := make([]float64, months)

	// Months are independent; each worker fills only its own column.
	err := parallelFor(ctx, months, e.workers, func(t int) error {
		column := make([]float64, n)
		var pos, above int
		for i := range trials {
			b := balanceAt(trials[i], t)
			column[i] = b
			if b >= 0 {
				pos++
			}
			if !trials[i].ExhaustedAt(t) {
				above++
			}
		}

		sort.Float64s(column)
		bands := bandValues(column)
		agg.Months[t] = t
		agg.Mean[t] = stats.Mean(column)
		agg.P5[t], agg.P10[t], agg.P25[t], agg.P50[t] = bands[0], bands[1], bands[2], bands[3]
		agg.P75[t], agg.P90[t], agg.P95[t] = bands[4], bands[5], bands[6]
		positive[t] = percent(pos, n)
		aboveCredit[t] = percent(above, n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	terminal := make([]float64, n)
	minBalances := make([]float64, n)
	interest := make([]float64, n)
	var toNegative []float64
	var negTerminal, everNegative, exhausted int
	for i, tr := range trials {
		terminal[i] = tr.TerminalBalance
		minBalances[i] = tr.MinBalance
		interest[i] = tr.InterestPaid
		if tr.TerminalBalance < 0 {
			negTerminal++
		}
		if tr.MinBalance < 0 {
			everNegative++
		}
		if tr.WentNegative() {
			toNegative = append(toNegative, float64(tr.FirstNegativeMonth))
		}
		if tr.CreditExhausted() {
			exhausted++
		}
	}

	sortedTerminal := stats.Sorted(terminal)
	bands := bandValues(sortedTerminal)
	statistics := Statistics{
		TerminalStats: TerminalStats{
			Mean:   stats.Mean(terminal),
			Median: stats.QuantileSorted(sortedTerminal, 0.5),
			Std:    stats.PopStdDev(terminal),
			P5:     bands[0],
			P10:    bands[1],
			P25:    bands[2],
			P50:    bands[3],
			P75:    bands[4],
			P90:    bands[5],
			P95:    bands[6],
		},
		NegativeTerminalPct: percent(negTerminal, n),
		EverNegativePct:     percent(everNegative, n),
		CreditExhaustionPct: percent(exhausted, n),
		MedianMinBalance:    stats.Median(minBalances),
		MeanMinBalance:      stats.Mean(minBalances),
		MedianInterestPaid:  stats.Median(interest),
		MeanInterestPaid:    stats.Mean(interest),
	}
	if len(toNegative) > 0 {
		m := stats.Median(toNegative)
		statistics.MedianMonthsToNegative = &m
	}

	emergency := math.Inf(1)
	if req.Household.MonthlyExpenses > 0 {
		emergency = req.Household.InitialFund / req.Household.MonthlyExpenses
	}

	samples := sampleIndices(req.Seed, n, req.NSamplePaths)
	samplePaths := make([][]float64, len(samples))
	for j, idx := range samples {
		samplePaths[j] = trials[idx].Balances
	}

	return &Result{
		SamplePaths:    samplePaths,
		TerminalValues: terminal,
		AggregateStats: agg,
		Statistics:     statistics,
		RiskMetrics: RiskMetrics{
			ProbabilityPositiveByMonth:    positive,
			ProbabilityAboveCreditByMonth: aboveCredit,
			EmergencyFundMonths:           emergency,
			MonthlyNetIncome:              req.InitialIncome - req.Household.MonthlyExpenses,
		},
		Metadata: Metadata{
			NSimulations:    n,
			NMonths:         req.NMonths,
			NSamplePaths:    len(samplePaths),
			InitialFund:     req.Household.InitialFund,
			MonthlyExpenses: req.Household.MonthlyExpenses,
			InitialIncome:   req.InitialIncome,
			AvailableCredit: req.Household.AvailableCredit,
			InterestRate:    req.Household.AnnualRate,
			Seed:            req.Seed,
			Model:           req.Model.Kind.String(),
			BalancePolicy:   req.Policy.String(),
		},
	}, nil
}

// balanceAt reads month t of a path. A path halted early holds its last
// balance for the remaining months.
func balanceAt(tr TrialResult, t int) float64 {
	if t < len(tr.Balances) {
		return tr.Balances[t]
	}
	return tr.Balances[len(tr.Balances)-1]
}

func bandValues(sorted []float64) []float64 {
	out := make([]float64, len(stats.BandPercentiles))
	for i, q := range stats.BandPercentiles {
		out[i] = stats.QuantileSorted(sorted, q)
	}
	return out
}

// sampleIndices picks k of n trials without replacement from a stream
// separate from every trial stream, returned in ascending order.
func sampleIndices(seed int64, n, k int) []int {
	k = min(k, n)
	if k <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(n)))

	// Partial Fisher-Yates: only the first k slots are shuffled.
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	picked := pool[:k:k]
	sort.Ints(picked)
	return picked
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
