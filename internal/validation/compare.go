package validation

import "householdrisk/internal/stats"

// MetricSummary is the describe() row for one metric
type MetricSummary struct {
	Metric  Metric            `json:"metric"`
	Summary stats.Description `json:"summary"`
}

// Describe summarizes each metric across rows. Undefined entries are left out
// of the count.
func Describe(rows []TrajectoryStats) []MetricSummary {
	out := make([]MetricSummary, 0, len(Metrics))
	for _, m := range Metrics {
		out = append(out, MetricSummary{Metric: m, Summary: stats.Describe(column(rows, m))})
	}
	return out
}

func column(rows []TrajectoryStats, m Metric) []float64 {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value(m)
	}
	return values
}

// Comparison overlays the observed and simulated distributions of a metric
type Comparison struct {
	Metric    Metric            `json:"metric"`
	Observed  stats.Description `json:"observed"`
	Simulated stats.Description `json:"simulated"`
	// MedianGap is simulated median minus observed median; zero unless
	// both sides are defined.
	MedianGap float64 `json:"median_gap"`
	// WithinRange is true when the simulated median falls inside the
	// observed min..max range.
	WithinRange bool `json:"within_range"`
}

// Compare describes both ensembles metric by metric
func Compare(observed, simulated []TrajectoryStats) []Comparison {
	out := make([]Comparison, 0, len(Metrics))
	for _, m := range Metrics {
		r := stats.Describe(column(observed, m))
		s := stats.Describe(column(simulated, m))
		c := Comparison{Metric: m, Observed: r, Simulated: s}
		if r.Count > 0 && s.Count > 0 {
			c.MedianGap = s.Q50 - r.Q50
			c.WithinRange = s.Q50 >= r.Min && s.Q50 <= r.Max
		}
		out = append(out, c)
	}
	return out
}

// FitScore is the share of metrics, among those defined on both sides, whose
// simulated median lies inside the observed range.
func FitScore(comparisons []Comparison) float64 {
	var defined, within int
	for _, c := range comparisons {
		if c.Observed.Count == 0 || c.Simulated.Count == 0 {
			continue
		}
		defined++
		if c.WithinRange {
			within++
		}
	}
	if defined == 0 {
		return 0
	}
	return float64(within) / float64(defined)
}
