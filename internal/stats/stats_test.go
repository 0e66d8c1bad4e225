package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileSorted(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name     string
		q        float64
		expected float64
	}{
		{"minimum", 0, 1},
		{"maximum", 1, 5},
		{"median on rank", 0.5, 3},
		{"interpolated quartile", 0.1, 1.4},
		{"upper interpolation", 0.95, 4.8},
		{"below range clamps", -0.5, 1},
		{"above range clamps", 1.5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, QuantileSorted(sorted, tt.q), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(QuantileSorted(nil, 0.5)))
}

func TestQuantilesDoNotMutateInput(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	got := Quantiles(values, BandPercentiles)

	require.Len(t, got, len(BandPercentiles))
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1], got[i])
	}
}

func TestMedianAndMean(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 2.5, Mean([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestDispersion(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 2.0, PopStdDev(values), 1e-12)
	assert.InDelta(t, 4.0, PopVariance(values), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), SampleStdDev(values), 1e-12)
	assert.InDelta(t, 0.4, CoefficientOfVariation(values), 1e-12)
	assert.True(t, math.IsNaN(SampleStdDev([]float64{1})))
	assert.True(t, math.IsNaN(CoefficientOfVariation([]float64{0, 0})))
}

func TestChangesAndFilters(t *testing.T) {
	assert.Equal(t, []float64{100, 200}, Positive([]float64{0, 100, -5, 200}))
	assert.Equal(t, []float64{50, -75}, Diff([]float64{100, 150, 75}))
	assert.Equal(t, []float64{0.5, -0.5}, PctChanges([]float64{100, 150, 75}))
	assert.Nil(t, PctChanges([]float64{100}))
}

func TestClipUpper(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i)
	}
	values[100] = 10000

	clipped := ClipUpper(values, 0.99)
	bound := Quantile(values, 0.99)

	assert.Equal(t, 99.0, bound)
	assert.Equal(t, 99.0, clipped[100])
	assert.Equal(t, 50.0, clipped[50])
	assert.Equal(t, 10000.0, values[100], "input must not be modified")
}

func TestCorrelationHelpers(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Correlation(x, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1.0, Correlation(x, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Correlation(x, []float64{1, 1, 1, 1, 1})))
	assert.InDelta(t, 2.5, SampleCovariance(x, x), 1e-12)
	assert.InDelta(t, 1.0, Lag1Autocorrelation(x), 1e-12)
	assert.InDelta(t, 2.0, TrendSlope([]float64{1, 3, 5, 7}), 1e-12)
}

func TestHigherMoments(t *testing.T) {
	_, ok := Skewness([]float64{1, 2})
	assert.False(t, ok)

	skew, ok := Skewness([]float64{1, 2, 3})
	require.True(t, ok)
	assert.InDelta(t, 0.0, skew, 1e-12)

	skew, ok = Skewness([]float64{1, 1, 1, 10})
	require.True(t, ok)
	assert.Greater(t, skew, 0.0)

	_, ok = ExcessKurtosis([]float64{1, 2, 3})
	assert.False(t, ok)

	_, ok = ExcessKurtosis([]float64{1, 2, 3, 4})
	assert.True(t, ok)

	_, ok = ExcessKurtosis([]float64{2, 2, 2, 2})
	assert.False(t, ok, "constant series has no defined kurtosis")
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{1, 2, math.NaN(), 3, 4})

	assert.Equal(t, 4, d.Count)
	assert.Equal(t, 2.5, d.Mean)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 4.0, d.Max)
	assert.Equal(t, 1.75, d.Q25)
	assert.Equal(t, 2.5, d.Q50)
	assert.Equal(t, 3.25, d.Q75)

	empty := Describe(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}
