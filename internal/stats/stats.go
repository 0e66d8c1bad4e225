package stats

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// BandPercentiles is the percentile set reported for balance distributions.
var BandPercentiles = []float64{0.05, 0.10, 0.25, 0.50, 0.75, 0.90, 0.95}

// Sorted returns an ascending copy of values
func Sorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// QuantileSorted calculates the value at quantile q (0..1) of an ascending slice
// using linear interpolation between the two closest ranks.
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	index := q * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Quantile sorts a copy of values and returns the q-th quantile
func Quantile(values []float64, q float64) float64 {
	return QuantileSorted(Sorted(values), q)
}

// Quantiles evaluates several quantiles with a single sort
func Quantiles(values []float64, qs []float64) []float64 {
	sorted := Sorted(values)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = QuantileSorted(sorted, q)
	}
	return out
}

// Median computes the median of values. NaN for an empty slice.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Mean computes the arithmetic mean. NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// PopStdDev is the population (ddof=0) standard deviation
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// PopVariance is the population (ddof=0) variance
func PopVariance(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	_, variance := stat.PopMeanVariance(values, nil)
	return variance
}

// SampleStdDev is the ddof=1 standard deviation, NaN below two values
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}

// CoefficientOfVariation is the population std divided by the mean
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 || math.IsNaN(mean) {
		return math.NaN()
	}
	return PopStdDev(values) / mean
}

// Positive keeps the strictly positive entries in order
func Positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Diff returns the first differences values[i+1]-values[i]
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// PctChanges returns month-over-month relative changes (v[i+1]-v[i])/v[i].
// Callers pass strictly positive series.
func PctChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = (values[i] - values[i-1]) / values[i-1]
	}
	return out
}

// ClipUpper winsorizes the upper tail: every value above the q-th quantile is
// replaced by that quantile.
func ClipUpper(values []float64, q float64) []float64 {
	if len(values) == 0 {
		return values
	}
	bound := Quantile(values, q)
	out := make([]float64, len(values))
	for i, v := range values {
		if v > bound {
			out[i] = bound
		} else {
			out[i] = v
		}
	}
	return out
}

// SampleCovariance uses the n-1 denominator
func SampleCovariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	return stat.Covariance(x, y, nil)
}

// Correlation is the Pearson correlation of x and y. NaN when either side is
// constant.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if PopVariance(x) == 0 || PopVariance(y) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Lag1Autocorrelation correlates the series with itself shifted by one step
func Lag1Autocorrelation(values []float64) float64 {
	if len(values) < 3 {
		return math.NaN()
	}
	return Correlation(values[:len(values)-1], values[1:])
}

// Skewness is the bias-corrected sample skewness; needs at least 3 values
func Skewness(values []float64) (float64, bool) {
	if len(values) < 3 || PopVariance(values) == 0 {
		return 0, false
	}
	return stat.Skew(values, nil), true
}

// ExcessKurtosis is the bias-corrected sample excess kurtosis; needs at least 4 values
func ExcessKurtosis(values []float64) (float64, bool) {
	if len(values) < 4 || PopVariance(values) == 0 {
		return 0, false
	}
	return stat.ExKurtosis(values, nil), true
}

// TrendSlope fits values against their index by least squares and returns the slope
func TrendSlope(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	x := make([]float64, len(values))
	for i := range x {
		x[i] = float64(i)
	}
	_, beta := stat.LinearRegression(x, values, nil, false)
	return beta
}

// Description is a count/mean/std/min/quartiles/max summary of one column.
type Description struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"q25"`
	Q50   float64 `json:"q50"`
	Q75   float64 `json:"q75"`
	Max   float64 `json:"max"`
}

// Describe summarizes values, ignoring NaN entries
func Describe(values []float64) Description {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		nan := math.NaN()
		return Description{Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	}

	sorted := Sorted(clean)
	return Description{
		Count: len(sorted),
		Mean:  Mean(sorted),
		Std:   SampleStdDev(sorted),
		Min:   sorted[0],
		Q25:   QuantileSorted(sorted, 0.25),
		Q50:   QuantileSorted(sorted, 0.50),
		Q75:   QuantileSorted(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
}

// MarshalJSON writes undefined fields as null; encoding/json rejects NaN.
func (d Description) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int      `json:"count"`
		Mean  *float64 `json:"mean"`
		Std   *float64 `json:"std"`
		Min   *float64 `json:"min"`
		Q25   *float64 `json:"q25"`
		Q50   *float64 `json:"q50"`
		Q75   *float64 `json:"q75"`
		Max   *float64 `json:"max"`
	}{d.Count, finite(d.Mean), finite(d.Std), finite(d.Min), finite(d.Q25), finite(d.Q50), finite(d.Q75), finite(d.Max)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
