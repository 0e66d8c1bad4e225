package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateBalanceFullHorizon(t *testing.T) {
	tests := []struct {
		name           string
		incomes        []float64
		household      Household
		expectedPath   []float64
		firstNegative  int
		exhaustedMonth int
		interestPaid   float64
	}{
		{
			name:         "single surplus month",
			incomes:      []float64{6000},
			household:    Household{InitialFund: 1000, MonthlyExpenses: 3000},
			expectedPath: []float64{1000, 4000},
		},
		{
			name:          "interest compounds on debt",
			incomes:       []float64{1000, 1000, 5000},
			household:     Household{MonthlyExpenses: 2000, AvailableCredit: 5000, AnnualRate: 0.12},
			expectedPath:  []float64{0, -1010, -2030.1, 969.9},
			firstNegative: 1,
			interestPaid:  30.1,
		},
		{
			name:           "zero credit exhausts on first negative month",
			incomes:        []float64{1000, 1000},
			household:      Household{MonthlyExpenses: 1500},
			expectedPath:   []float64{0, -500, -1000},
			firstNegative:  1,
			exhaustedMonth: 1,
		},
		{
			name:           "exhaustion persists after recovery",
			incomes:        []float64{100, 5000, 100},
			household:      Household{MonthlyExpenses: 1000, AvailableCredit: 500},
			expectedPath:   []float64{0, -900, 3100, 2200},
			firstNegative:  1,
			exhaustedMonth: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := SimulateBalance(tt.incomes, tt.household, PolicyFullHorizon)

			require.Len(t, res.Balances, len(tt.incomes)+1)
			assert.InDeltaSlice(t, tt.expectedPath, res.Balances, 1e-9)
			assert.InDelta(t, tt.expectedPath[len(tt.expectedPath)-1], res.TerminalBalance, 1e-9)
			assert.Equal(t, tt.firstNegative, res.FirstNegativeMonth)
			assert.Equal(t, tt.exhaustedMonth, res.ExhaustedMonth)
			assert.InDelta(t, tt.interestPaid, res.InterestPaid, 1e-9)
		})
	}
}

func TestSimulateBalanceMinAndExhaustion(t *testing.T) {
	res := SimulateBalance([]float64{100, 5000, 100}, Household{MonthlyExpenses: 1000, AvailableCredit: 500}, PolicyFullHorizon)

	assert.Equal(t, -900.0, res.MinBalance)
	assert.True(t, res.WentNegative())
	assert.True(t, res.CreditExhausted())
	assert.False(t, res.ExhaustedAt(0))
	for month := 1; month <= 3; month++ {
		assert.True(t, res.ExhaustedAt(month), "month %d", month)
	}
}

func TestSimulateBalanceStopOnNegative(t *testing.T) {
	h := Household{InitialFund: 500, MonthlyExpenses: 1000, AvailableCredit: 10000, AnnualRate: 0.2}

	res := SimulateBalance([]float64{1000, 100, 5000}, h, PolicyStopOnNegative)

	assert.Equal(t, []float64{500, 500, -400}, res.Balances)
	assert.Equal(t, 2, res.FirstNegativeMonth)
	assert.Len(t, res.Balances, res.FirstNegativeMonth+1)
	assert.Equal(t, -400.0, res.TerminalBalance)
	assert.Equal(t, -400.0, res.MinBalance)
	assert.Zero(t, res.InterestPaid)
	assert.False(t, res.CreditExhausted())

	safe := SimulateBalance([]float64{2000, 2000}, h, PolicyStopOnNegative)
	assert.Len(t, safe.Balances, 3)
	assert.False(t, safe.WentNegative())
}

func TestHouseholdValidate(t *testing.T) {
	assert.NoError(t, Household{MonthlyExpenses: 0}.Validate())
	assert.ErrorIs(t, Household{MonthlyExpenses: -1}.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Household{AvailableCredit: -1}.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Household{AnnualRate: -0.1}.Validate(), ErrInvalidRequest)
}

func TestBalancePolicy(t *testing.T) {
	assert.True(t, PolicyFullHorizon.IsValid())
	assert.True(t, PolicyStopOnNegative.IsValid())
	assert.False(t, BalancePolicy("bankrupt").IsValid())
}
