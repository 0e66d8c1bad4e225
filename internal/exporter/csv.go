package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"householdrisk/internal/config"
)

// utf8BOM helps Excel recognize UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes report tables. Every file starts with a BOM and is
// written under a temporary name first, so a failed export never leaves a
// truncated report where an earlier complete one stood.
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a writer resolving relative names against
// paths.ReportsDir. Both arguments may be nil.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteCSV replaces filePath with headers followed by records. Empty
// headers are skipped.
func (w *CSVWriter) WriteCSV(filePath string, headers []string, records [][]string) error {
	sw, err := w.CreateStreamWriter(filePath, headers)
	if err != nil {
		return err
	}
	for i, record := range records {
		if err := sw.WriteRecord(record); err != nil {
			sw.Abort()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := sw.Close(); err != nil {
		return err
	}

	w.logger.Debug("CSV file written",
		slog.String("path", sw.path),
		slog.Int("record_count", len(records)))
	return nil
}

// StreamWriter writes rows one at a time, for sample-path dumps too large
// to build in memory first. The file appears at its final path on Close.
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
	path   string
}

// CreateStreamWriter opens a temporary file next to filePath and writes the
// BOM and headers.
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	sw := &StreamWriter{file: file, writer: csv.NewWriter(file), path: fullPath}

	if _, err := file.Write(utf8BOM); err != nil {
		sw.Abort()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}
	if len(headers) > 0 {
		if err := sw.writer.Write(headers); err != nil {
			sw.Abort()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return sw, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream and moves it into place
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.Abort()
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.file.Name())
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	if err := os.Rename(s.file.Name(), s.path); err != nil {
		os.Remove(s.file.Name())
		return fmt.Errorf("failed to move %s into place: %w", s.path, err)
	}
	return nil
}

// Abort discards the partially written file
func (s *StreamWriter) Abort() {
	s.file.Close()
	os.Remove(s.file.Name())
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}
