// Package exporter writes analysis and simulation outputs to disk.
//
// CSVWriter is the low-level writer. It prefixes files with a UTF-8 BOM so
// spreadsheet tools detect the encoding, and resolves relative names into
// the configured reports directory. StreamWriter appends one row at a time.
//
// ReportExporter builds the project reports on top of it:
//
//   - household volatility statistics
//   - strategy comparisons across expense levels
//   - model validation (observed vs simulated summaries)
//   - per-month balance percentiles, scalar run summaries and sample paths
//   - an .xlsx workbook combining parameters, household stats, validation
//     and strategies
//
// Money columns are rounded to cents with shopspring/decimal; undefined
// statistics (NaN) are left blank.
//
// Example usage:
//
//	exp := exporter.NewReportExporter(paths, logger)
//	err := exp.ExportStrategies(results, exporter.StrategiesFile)
package exporter
