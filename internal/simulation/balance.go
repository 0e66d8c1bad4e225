package simulation

import (
	"fmt"
	"math"
)

// BalancePolicy decides what happens once a household's balance turns negative
type BalancePolicy string

const (
	// PolicyStopOnNegative ends the path at the first negative month
	PolicyStopOnNegative BalancePolicy = "stop_on_negative"
	// PolicyFullHorizon keeps simulating every month, charging interest on
	// debt and tracking when the credit line is exhausted.
	PolicyFullHorizon BalancePolicy = "full_horizon"
)

// IsValid reports whether p is a known policy
func (p BalancePolicy) IsValid() bool {
	return p == PolicyStopOnNegative || p == PolicyFullHorizon
}

func (p BalancePolicy) String() string {
	return string(p)
}

// Household holds the fixed balance-sheet inputs of a simulation
type Household struct {
	InitialFund     float64 `json:"initialFund"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	AvailableCredit float64 `json:"availableCredit"`
	// AnnualRate is a decimal fraction (0.18 for 18%)
	AnnualRate float64 `json:"interestRate"`
}

// Validate rejects inputs the balance recursion cannot use
func (h Household) Validate() error {
	switch {
	case math.IsNaN(h.InitialFund) || math.IsInf(h.InitialFund, 0):
		return fmt.Errorf("%w: initial fund must be finite", ErrInvalidRequest)
	case !(h.MonthlyExpenses >= 0) || math.IsInf(h.MonthlyExpenses, 0):
		return fmt.Errorf("%w: monthly expenses must be non-negative", ErrInvalidRequest)
	case !(h.AvailableCredit >= 0) || math.IsInf(h.AvailableCredit, 0):
		return fmt.Errorf("%w: available credit must be non-negative", ErrInvalidRequest)
	case !(h.AnnualRate >= 0) || math.IsInf(h.AnnualRate, 0):
		return fmt.Errorf("%w: interest rate must be non-negative", ErrInvalidRequest)
	}
	return nil
}

// TrialResult summarizes one balance path
type TrialResult struct {
	// Balances starts with the initial fund. Full-horizon paths have one entry
	// per month plus the start; stop-on-negative paths end at the first
	// negative month.
	Balances        []float64
	TerminalBalance float64
	MinBalance      float64
	// FirstNegativeMonth is 1-based; zero means the balance never went negative
	FirstNegativeMonth int
	// ExhaustedMonth is the first month the balance fell below the credit
	// line; zero means never. Exhaustion is permanent for the rest of the path.
	ExhaustedMonth int
	InterestPaid   float64
}

// WentNegative reports whether the path ever had a negative month
func (r TrialResult) WentNegative() bool {
	return r.FirstNegativeMonth > 0
}

// CreditExhausted reports whether the credit line was ever exceeded
func (r TrialResult) CreditExhausted() bool {
	return r.ExhaustedMonth > 0
}

// ExhaustedAt reports whether the credit line had been exceeded by month t
func (r TrialResult) ExhaustedAt(t int) bool {
	return r.ExhaustedMonth > 0 && t >= r.ExhaustedMonth
}

// SimulateBalance evolves the household balance over the income trajectory
func SimulateBalance(incomes []float64, h Household, policy BalancePolicy) TrialResult {
	balances := make([]float64, 1, len(incomes)+1)
	balances[0] = h.InitialFund

	res := TrialResult{}
	balance := h.InitialFund
	monthlyRate := h.AnnualRate / 12

	for i, inc := range incomes {
		month := i + 1
		balance += inc - h.MonthlyExpenses

		if balance < 0 {
			if res.FirstNegativeMonth == 0 {
				res.FirstNegativeMonth = month
			}
			if policy == PolicyStopOnNegative {
				if balance < -h.AvailableCredit {
					res.ExhaustedMonth = month
				}
				balances = append(balances, balance)
				break
			}

			interest := balance * monthlyRate
			balance += interest
			res.InterestPaid += math.Abs(interest)
		}

		if res.ExhaustedMonth == 0 && balance < -h.AvailableCredit {
			res.ExhaustedMonth = month
		}
		balances = append(balances, balance)
	}

	res.Balances = balances
	res.TerminalBalance = balance
	res.MinBalance = balances[0]
	for _, b := range balances[1:] {
		res.MinBalance = math.Min(res.MinBalance, b)
	}
	return res
}
