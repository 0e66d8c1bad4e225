// Package dataprocessing loads household income survey extracts into an
// estimation panel.
//
// # Input
//
// Each survey year lives in a pipe-separated file named pu<year>.csv with at
// least the columns SSUID, SHHADID, SPANEL, SWAVE, MONTHCODE and THTOTINC.
// Workbooks exported to .xlsx with the same header are also accepted.
//
// # Cleaning
//
// Rows are person-level, so the same household month can appear several
// times, and a household can show up in more than one survey panel. The
// cleaner keeps the panel with the most rows for each household and then
// keeps the earliest-wave row of every household month.
//
// Usage:
//
//	loader := dataprocessing.NewLoader("data", 0, logger)
//	panel, stats, err := loader.LoadYears(ctx, []int{2021, 2022, 2023})
package dataprocessing
