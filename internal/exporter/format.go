package exporter

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// formatFloat writes the shortest representation that round-trips
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatOptional leaves undefined statistics blank
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatCurrency rounds a balance to cents, half away from zero
func formatCurrency(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return currency(f).StringFixed(2)
}

// currency converts through the shortest decimal string so binary noise
// like 0.1+0.2 does not leak into rounding.
func currency(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// formatPercent renders a 0..1 fraction as a percentage with two decimals
func formatPercent(fraction float64) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return ""
	}
	return decimal.NewFromFloat(fraction).Shift(2).Round(2).StringFixed(2)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
