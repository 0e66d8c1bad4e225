package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.25, "0.25"},
		{-1234.5, "-1234.5"},
		{1e6, "1000000"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFloat(tt.in))
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"whole", 5000, "5000.00"},
		{"rounds half away from zero", 2.675, "2.68"},
		{"negative", -1234.565, "-1234.57"},
		{"binary noise", 0.1 + 0.2, "0.30"},
		{"nan", math.NaN(), ""},
		{"infinite", math.Inf(-1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCurrency(tt.in))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12.35", formatPercent(0.12345))
	assert.Equal(t, "100.00", formatPercent(1))
	assert.Equal(t, "0.00", formatPercent(0))
	assert.Equal(t, "", formatPercent(math.NaN()))
}

func TestFormatOptional(t *testing.T) {
	v := 7.5
	assert.Equal(t, "7.5", formatOptional(&v))
	assert.Equal(t, "", formatOptional(nil))
}
