package exporter

import (
	"fmt"
	"log/slog"
	"strconv"

	"householdrisk/internal/config"
	"householdrisk/internal/estimation"
	"householdrisk/internal/simulation"
	"householdrisk/internal/validation"
)

// Default report file names
const (
	HouseholdStatsFile = "household_stats.csv"
	IncomeAnalysisFile = "income_analysis.csv"
	StrategiesFile     = "strategy_comparison.csv"
	ValidationFile     = "validation_comparison.csv"
	AggregateFile      = "balance_percentiles.csv"
	SamplePathsFile    = "sample_paths.csv"
	SummaryFile        = "run_summary.csv"
	WorkbookFile       = "income_analysis.xlsx"
)

// ReportExporter writes analysis outputs as CSV files and a workbook
type ReportExporter struct {
	csvWriter *CSVWriter
	paths     *config.Paths
	logger    *slog.Logger
}

// NewReportExporter creates an exporter writing under paths.ReportsDir
func NewReportExporter(paths *config.Paths, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{csvWriter: NewCSVWriter(paths, logger), paths: paths, logger: logger}
}

var householdStatsHeaders = []string{
	"Household", "NMonths", "Variance", "CV", "JumpFreq", "TrendComponent",
	"MedianAbsChange", "MaxAbsChange", "ACFLag1", "FracZeroChange",
	"FracSmallChange", "FracLargeChange", "MeanNonzeroPctChange",
}

func householdStatsRow(r estimation.HouseholdStats) []string {
	return []string{
		r.Household,
		formatInt(r.NMonths),
		formatFloat(r.Variance),
		formatFloat(r.CV),
		formatFloat(r.JumpFreq),
		formatFloat(r.TrendComponent),
		formatFloat(r.MedianAbsChange),
		formatFloat(r.MaxAbsChange),
		formatFloat(r.ACFLag1),
		formatFloat(r.FracZeroChange),
		formatFloat(r.FracSmallChange),
		formatFloat(r.FracLargeChange),
		formatFloat(r.MeanNonzeroPctChange),
	}
}

// ExportHouseholdStats writes the per-household volatility table
func (e *ReportExporter) ExportHouseholdStats(rows []estimation.HouseholdStats, filePath string) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = householdStatsRow(r)
	}
	if err := e.csvWriter.WriteCSV(filePath, householdStatsHeaders, records); err != nil {
		return fmt.Errorf("failed to export household stats: %w", err)
	}
	return nil
}

var incomeAnalysisHeaders = []string{
	"Household", "MeanIncome", "JumpFreq", "MeanJumpSizePct",
	"MeanUpwardJump", "MeanDownwardJump", "IncomeQuintile",
}

// ExportIncomeAnalysis writes jump behaviour by household with its income
// quintile.
func (e *ReportExporter) ExportIncomeAnalysis(rows []estimation.IncomeAnalysis, filePath string) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.Household,
			formatCurrency(r.MeanIncome),
			formatFloat(r.JumpFreq),
			formatFloat(r.MeanJumpSizePct),
			formatFloat(r.MeanUpwardJump),
			formatFloat(r.MeanDownwardJump),
			r.IncomeQuintile,
		}
	}
	if err := e.csvWriter.WriteCSV(filePath, incomeAnalysisHeaders, records); err != nil {
		return fmt.Errorf("failed to export income analysis: %w", err)
	}
	return nil
}

var strategyHeaders = []string{
	"MonthlyExpenses", "DebtProbabilityPct", "MeanMinBalance", "MedianMinBalance",
	"MeanFinalBalance", "MedianFinalBalance", "NSimulations",
}

func strategyRow(r simulation.StrategyResult) []string {
	return []string{
		formatCurrency(r.MonthlyExpenses),
		formatPercent(r.DebtProbability),
		formatCurrency(r.MeanMinBalance),
		formatCurrency(r.MedianMinBalance),
		formatCurrency(r.MeanFinalBalance),
		formatCurrency(r.MedianFinalBalance),
		formatInt(r.NSimulations),
	}
}

// ExportStrategies writes one row per expense level
func (e *ReportExporter) ExportStrategies(results []simulation.StrategyResult, filePath string) error {
	records := make([][]string, len(results))
	for i, r := range results {
		records[i] = strategyRow(r)
	}
	if err := e.csvWriter.WriteCSV(filePath, strategyHeaders, records); err != nil {
		return fmt.Errorf("failed to export strategies: %w", err)
	}
	return nil
}

var validationHeaders = []string{
	"Metric", "Source", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max",
}

// ExportValidation writes the observed and simulated describe() rows of
// every metric, one after the other.
func (e *ReportExporter) ExportValidation(comparisons []validation.Comparison, filePath string) error {
	records := make([][]string, 0, 2*len(comparisons))
	for _, c := range comparisons {
		for _, side := range []struct {
			name string
			row  []string
		}{
			{"observed", describeRow(c.Observed)},
			{"simulated", describeRow(c.Simulated)},
		} {
			records = append(records, append([]string{string(c.Metric), side.name}, side.row...))
		}
	}
	if err := e.csvWriter.WriteCSV(filePath, validationHeaders, records); err != nil {
		return fmt.Errorf("failed to export validation: %w", err)
	}
	return nil
}

// ExportAggregateStats writes the per-month balance percentiles and survival
// curves of a Monte Carlo run.
func (e *ReportExporter) ExportAggregateStats(res *simulation.Result, filePath string) error {
	agg := res.AggregateStats
	headers := []string{"Month", "Mean", "P5", "P10", "P25", "P50", "P75", "P90", "P95", "PositivePct", "AboveCreditPct"}

	records := make([][]string, len(agg.Months))
	for t, month := range agg.Months {
		records[t] = []string{
			formatInt(month),
			formatCurrency(agg.Mean[t]),
			formatCurrency(agg.P5[t]),
			formatCurrency(agg.P10[t]),
			formatCurrency(agg.P25[t]),
			formatCurrency(agg.P50[t]),
			formatCurrency(agg.P75[t]),
			formatCurrency(agg.P90[t]),
			formatCurrency(agg.P95[t]),
			formatFloat(res.RiskMetrics.ProbabilityPositiveByMonth[t]),
			formatFloat(res.RiskMetrics.ProbabilityAboveCreditByMonth[t]),
		}
	}
	if err := e.csvWriter.WriteCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("failed to export aggregate stats: %w", err)
	}
	return nil
}

// ExportSamplePaths streams the sampled balance paths in long format. Paths
// halted early simply have fewer rows.
func (e *ReportExporter) ExportSamplePaths(res *simulation.Result, filePath string) error {
	sw, err := e.csvWriter.CreateStreamWriter(filePath, []string{"Path", "Month", "Balance"})
	if err != nil {
		return fmt.Errorf("failed to export sample paths: %w", err)
	}

	for i, path := range res.SamplePaths {
		for month, balance := range path {
			if err := sw.WriteRecord([]string{strconv.Itoa(i), strconv.Itoa(month), formatCurrency(balance)}); err != nil {
				sw.Abort()
				return fmt.Errorf("failed to write sample path %d: %w", i, err)
			}
		}
	}

	return sw.Close()
}

// ExportSummary writes the scalar outcome statistics of a run as
// metric/value pairs.
func (e *ReportExporter) ExportSummary(res *simulation.Result, filePath string) error {
	s := res.Statistics
	records := [][]string{
		{"n_simulations", formatInt(res.Metadata.NSimulations)},
		{"n_months", formatInt(res.Metadata.NMonths)},
		{"model", res.Metadata.Model},
		{"terminal_mean", formatCurrency(s.TerminalStats.Mean)},
		{"terminal_median", formatCurrency(s.TerminalStats.Median)},
		{"terminal_std", formatCurrency(s.TerminalStats.Std)},
		{"negative_terminal_pct", formatFloat(s.NegativeTerminalPct)},
		{"ever_negative_pct", formatFloat(s.EverNegativePct)},
		{"credit_exhaustion_pct", formatFloat(s.CreditExhaustionPct)},
		{"median_min_balance", formatCurrency(s.MedianMinBalance)},
		{"mean_min_balance", formatCurrency(s.MeanMinBalance)},
		{"median_interest_paid", formatCurrency(s.MedianInterestPaid)},
		{"mean_interest_paid", formatCurrency(s.MeanInterestPaid)},
		{"median_months_to_negative", formatOptional(s.MedianMonthsToNegative)},
		{"emergency_fund_months", formatFloat(res.RiskMetrics.EmergencyFundMonths)},
		{"monthly_net_income", formatCurrency(res.RiskMetrics.MonthlyNetIncome)},
	}
	if err := e.csvWriter.WriteCSV(filePath, []string{"Metric", "Value"}, records); err != nil {
		return fmt.Errorf("failed to export summary: %w", err)
	}
	e.logger.Debug("summary exported", "path", filePath, "run_id", res.Metadata.RunID)
	return nil
}
