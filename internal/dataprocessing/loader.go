package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"householdrisk/internal/estimation"
)

// maxParallelFiles bounds how many yearly extracts are parsed at once
const maxParallelFiles = 4

// LoadStats describes a completed load
type LoadStats struct {
	Files    int                `json:"files"`
	Parse    ParseStats         `json:"parse"`
	Cleaning CleaningStatistics `json:"cleaning"`
}

// Loader reads yearly extracts from a data directory into a panel
type Loader struct {
	dataDir string
	parser  *Parser
	cleaner *PanelCleaner
	logger  *slog.Logger
}

// NewLoader creates a loader over dataDir. maxRows caps rows read per file
// and is meant for quick runs on samples.
func NewLoader(dataDir string, maxRows int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dataDir: dataDir,
		parser:  NewParser(logger, maxRows),
		cleaner: NewPanelCleaner(),
		logger:  logger,
	}
}

// YearFiles maps survey years to their pu<year>.csv paths
func (l *Loader) YearFiles(years []int) []string {
	files := make([]string, len(years))
	for i, y := range years {
		files[i] = filepath.Join(l.dataDir, fmt.Sprintf("pu%d.csv", y))
	}
	return files
}

// LoadYears reads the given years and returns the cleaned panel
func (l *Loader) LoadYears(ctx context.Context, years []int) (estimation.Panel, LoadStats, error) {
	return l.LoadFiles(ctx, l.YearFiles(years))
}

// LoadFiles parses every file, then cleans and groups the combined rows.
// Files are read concurrently but combined in argument order.
func (l *Loader) LoadFiles(ctx context.Context, files []string) (estimation.Panel, LoadStats, error) {
	start := time.Now()

	parsed := make([][]Record, len(files))
	parseStats := make([]ParseStats, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, ps, err := l.parser.ParseFile(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			parsed[i], parseStats[i] = records, ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Files: len(files)}
	var all []Record
	for i := range parsed {
		all = append(all, parsed[i]...)
		stats.Parse.Rows += parseStats[i].Rows
		stats.Parse.Kept += parseStats[i].Kept
		stats.Parse.Skipped += parseStats[i].Skipped
	}

	cleaned, cs := l.cleaner.Clean(all)
	stats.Cleaning = cs
	panel := l.cleaner.BuildPanel(cleaned)

	l.logger.InfoContext(ctx, "panel loaded",
		slog.Int("files", stats.Files),
		slog.Int("rows", stats.Parse.Rows),
		slog.Int("dropped_other_panels", cs.DroppedOtherPanels),
		slog.Int("dropped_duplicates", cs.DroppedDuplicates),
		slog.Int("households", cs.Households),
		slog.Duration("duration", time.Since(start)))

	return panel, stats, nil
}
