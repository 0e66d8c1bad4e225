package exporter

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"householdrisk/internal/estimation"
	"householdrisk/internal/simulation"
	"householdrisk/internal/stats"
	"householdrisk/internal/validation"
)

// Workbook sheet names
const (
	SheetParameters     = "Parameters"
	SheetHouseholdStats = "HouseholdStats"
	SheetValidation     = "Validation"
	SheetStrategies     = "Strategies"
)

// AnalysisReport is everything the analysis workbook presents. Nil or empty
// sections produce a sheet with headers only.
type AnalysisReport struct {
	Estimate       *estimation.Estimate
	HouseholdStats []estimation.HouseholdStats
	Comparisons    []validation.Comparison
	Strategies     []simulation.StrategyResult
	GeneratedAt    time.Time
}

// WriteWorkbook saves the analysis as a four-sheet .xlsx file
func (e *ReportExporter) WriteWorkbook(filePath string, report AnalysisReport) error {
	fullPath := e.csvWriter.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetParameters); err != nil {
		return fmt.Errorf("failed to name parameters sheet: %w", err)
	}
	for _, name := range []string{SheetHouseholdStats, SheetValidation, SheetStrategies} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetParameters, parameterRows(report)},
		{SheetHouseholdStats, householdStatsRows(report.HouseholdStats)},
		{SheetValidation, validationRows(report.Comparisons)},
		{SheetStrategies, strategyRows(report.Strategies)},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows, header); err != nil {
			return err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("analysis workbook written",
		"path", fullPath,
		"households", len(report.HouseholdStats),
		"strategies", len(report.Strategies))
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func parameterRows(report AnalysisReport) [][]any {
	rows := [][]any{{"Parameter", "Value"}}
	if !report.GeneratedAt.IsZero() {
		rows = append(rows, []any{"generated_at", report.GeneratedAt.UTC().Format(time.RFC3339)})
	}

	est := report.Estimate
	if est == nil {
		return rows
	}

	rows = append(rows,
		[]any{"model", est.Model.Kind.String()},
		[]any{"initial_income_median", currency(est.InitialIncome.Median).InexactFloat64()},
		[]any{"initial_income_log_std", cellFloat(est.InitialIncome.LogStd)},
		[]any{"initial_income_iqr", currency(est.InitialIncome.IQR).InexactFloat64()},
	)
	if j := est.Jump; j != nil {
		rows = append(rows,
			[]any{"lambda", cellFloat(j.Params.Lambda)},
			[]any{"jump_median_pct", cellFloat(j.Params.JumpMedianPct)},
			[]any{"jump_q25", cellFloat(j.Params.JumpQ25)},
			[]any{"jump_q75", cellFloat(j.Params.JumpQ75)},
			[]any{"prob_upward", cellFloat(j.Params.ProbUpward)},
			[]any{"estimation_mode", string(j.Mode)},
			[]any{"n_households", j.NHouseholds},
			[]any{"n_changes", j.NChanges},
			[]any{"fallback", j.Fallback},
		)
	}
	if a := est.AR1; a != nil {
		rows = append(rows,
			[]any{"rho", cellFloat(a.Params.Rho)},
			[]any{"mu", cellFloat(a.Params.Mu)},
			[]any{"sigma", cellFloat(a.Params.Sigma)},
			[]any{"n_households", a.NHouseholds},
			[]any{"n_residuals", a.NResiduals},
		)
		if a.HalfLife != nil {
			rows = append(rows, []any{"half_life_months", cellFloat(*a.HalfLife)})
		}
	}
	return rows
}

func householdStatsRows(stats []estimation.HouseholdStats) [][]any {
	rows := make([][]any, 0, len(stats)+1)
	rows = append(rows, toAny(householdStatsHeaders))
	for _, r := range stats {
		rows = append(rows, []any{
			r.Household, r.NMonths,
			cellFloat(r.Variance), cellFloat(r.CV), cellFloat(r.JumpFreq), cellFloat(r.TrendComponent),
			cellFloat(r.MedianAbsChange), cellFloat(r.MaxAbsChange), cellFloat(r.ACFLag1),
			cellFloat(r.FracZeroChange), cellFloat(r.FracSmallChange), cellFloat(r.FracLargeChange),
			cellFloat(r.MeanNonzeroPctChange),
		})
	}
	return rows
}

func validationRows(comparisons []validation.Comparison) [][]any {
	rows := [][]any{toAny(slices.Concat(validationHeaders, []string{"MedianGap", "WithinRange"}))}
	for _, c := range comparisons {
		rows = append(rows,
			append([]any{string(c.Metric), "observed"}, describeCells(c.Observed)...),
			append(append([]any{string(c.Metric), "simulated"}, describeCells(c.Simulated)...),
				cellFloat(c.MedianGap), c.WithinRange),
		)
	}
	return rows
}

func strategyRows(results []simulation.StrategyResult) [][]any {
	rows := [][]any{toAny(strategyHeaders)}
	for _, r := range results {
		rows = append(rows, []any{
			currency(r.MonthlyExpenses).InexactFloat64(),
			cellFloat(r.DebtProbability * 100),
			currency(r.MeanMinBalance).InexactFloat64(),
			currency(r.MedianMinBalance).InexactFloat64(),
			currency(r.MeanFinalBalance).InexactFloat64(),
			currency(r.MedianFinalBalance).InexactFloat64(),
			r.NSimulations,
		})
	}
	return rows
}

func describeRow(d stats.Description) []string {
	return []string{
		formatInt(d.Count), formatFloat(d.Mean), formatFloat(d.Std), formatFloat(d.Min),
		formatFloat(d.Q25), formatFloat(d.Q50), formatFloat(d.Q75), formatFloat(d.Max),
	}
}

func describeCells(d stats.Description) []any {
	return []any{
		d.Count, cellFloat(d.Mean), cellFloat(d.Std), cellFloat(d.Min),
		cellFloat(d.Q25), cellFloat(d.Q50), cellFloat(d.Q75), cellFloat(d.Max),
	}
}

// cellFloat leaves undefined values as empty cells
func cellFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
