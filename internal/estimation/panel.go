package estimation

import (
	"errors"
	"sort"
)

// ErrEmptyPanel is returned when estimation is asked to work on no households
var ErrEmptyPanel = errors.New("panel contains no households")

// Panel maps a household key to its monthly incomes in chronological order.
// Records are assumed deduplicated to one per household-month.
type Panel map[string][]float64

// Keys returns household keys in ascending order so every pass over the
// panel sees households in the same sequence.
func (p Panel) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NumObservations counts all monthly records
func (p Panel) NumObservations() int {
	n := 0
	for _, incomes := range p {
		n += len(incomes)
	}
	return n
}

// PositiveIncomes pools every strictly positive income, in key order
func (p Panel) PositiveIncomes() []float64 {
	var out []float64
	for _, k := range p.Keys() {
		for _, v := range p[k] {
			if v > 0 {
				out = append(out, v)
			}
		}
	}
	return out
}
