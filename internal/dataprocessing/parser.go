package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Survey extract column names
const (
	ColSSUID     = "SSUID"
	ColSHHADID   = "SHHADID"
	ColSPanel    = "SPANEL"
	ColSWave     = "SWAVE"
	ColMonthCode = "MONTHCODE"
	ColIncome    = "THTOTINC"
)

// RequiredColumns must all appear in a panel file header
var RequiredColumns = []string{ColSSUID, ColSHHADID, ColSPanel, ColSWave, ColMonthCode, ColIncome}

// Delimiter separates fields in the yearly CSV extracts
const Delimiter = '|'

var (
	// ErrMissingColumn means the header lacks a required column
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoYear means the file name does not carry a survey year
	ErrNoYear = errors.New("cannot infer survey year from file name")
)

var yearPattern = regexp.MustCompile(`pu(\d{4})`)

// YearFromPath extracts the survey year from names like pu2022.csv
func YearFromPath(path string) (int, error) {
	m := yearPattern.FindStringSubmatch(strings.ToLower(filepath.Base(path)))
	if m == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoYear, path)
	}
	return strconv.Atoi(m[1])
}

// ParseStats counts what a parse kept and skipped
type ParseStats struct {
	Rows    int `json:"rows"`
	Kept    int `json:"kept"`
	Skipped int `json:"skipped"`
}

// Parser reads person-month survey records
type Parser struct {
	logger *slog.Logger
	// MaxRows stops after this many data rows per file; zero reads everything
	MaxRows int
}

// NewParser creates a parser; a nil logger falls back to slog.Default()
func NewParser(logger *slog.Logger, maxRows int) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger, MaxRows: maxRows}
}

// ParseFile reads one yearly extract. CSV files are pipe separated; .xlsx
// workbooks are read from the first sheet carrying the survey header.
func (p *Parser) ParseFile(path string) ([]Record, ParseStats, error) {
	year, err := YearFromPath(path)
	if err != nil {
		return nil, ParseStats{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return p.parseWorkbook(path, year)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, ParseStats{}, fmt.Errorf("open panel file: %w", err)
		}
		defer f.Close()

		records, stats, err := p.ParseCSV(f, year)
		if err != nil {
			return nil, stats, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return records, stats, nil
	}
}

// ParseCSV reads pipe-separated records, stamping each with year
func (p *Parser) ParseCSV(r io.Reader, year int) ([]Record, ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("read header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, ParseStats{}, err
	}

	var records []Record
	var stats ParseStats
	for p.MaxRows <= 0 || stats.Rows < p.MaxRows {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		rec, ok := columns.record(row, year)
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
		stats.Kept++
	}

	p.logger.Debug("parsed panel rows",
		slog.Int("year", year),
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped))
	return records, stats, nil
}

func (p *Parser) parseWorkbook(path string, year int) ([]Record, ParseStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		columns, err := mapColumns(rows[0])
		if err != nil {
			continue
		}

		p.logger.Info("found panel data in sheet", slog.String("sheet_name", sheet))

		var records []Record
		var stats ParseStats
		for _, row := range rows[1:] {
			if p.MaxRows > 0 && stats.Rows >= p.MaxRows {
				break
			}
			stats.Rows++
			rec, ok := columns.record(row, year)
			if !ok {
				stats.Skipped++
				continue
			}
			records = append(records, rec)
			stats.Kept++
		}
		return records, stats, nil
	}

	return nil, ParseStats{}, fmt.Errorf("%w: no sheet in %s has a survey header", ErrMissingColumn, filepath.Base(path))
}

type columnMap map[string]int

func mapColumns(header []string) (columnMap, error) {
	columns := make(columnMap, len(RequiredColumns))
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return columns, nil
}

// record converts one row. Rows with a blank household id or an unreadable
// number are rejected.
func (c columnMap) record(row []string, year int) (Record, bool) {
	get := func(col string) string {
		if idx := c[col]; idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	rec := Record{SSUID: get(ColSSUID), SHHADID: get(ColSHHADID), Year: year}
	if rec.SSUID == "" || rec.SHHADID == "" {
		return Record{}, false
	}

	var err error
	if rec.SPanel, err = strconv.Atoi(get(ColSPanel)); err != nil {
		return Record{}, false
	}
	if rec.SWave, err = strconv.Atoi(get(ColSWave)); err != nil {
		return Record{}, false
	}
	if rec.MonthCode, err = strconv.Atoi(get(ColMonthCode)); err != nil || rec.MonthCode < 1 || rec.MonthCode > 12 {
		return Record{}, false
	}
	if rec.Income, err = strconv.ParseFloat(strings.ReplaceAll(get(ColIncome), ",", ""), 64); err != nil {
		return Record{}, false
	}
	return rec, true
}
