package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// PanelFilePattern matches the yearly survey extracts
const PanelFilePattern = "pu*.csv"

// PathValidator checks the directories the analysis CLI reads and writes
type PathValidator struct {
	logger *slog.Logger
}

// NewPathValidator creates a path validator
func NewPathValidator(logger *slog.Logger) *PathValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PathValidator{logger: logger}
}

// ValidateDataDirectory confirms dir exists and holds at least one panel
// file. It returns the matching files in lexical order.
func (v *PathValidator) ValidateDataDirectory(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("data directory %s does not exist", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat data directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, PanelFilePattern))
	if err != nil {
		return nil, fmt.Errorf("list panel files: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s", PanelFilePattern, dir)
	}

	v.logger.Info("data directory validated",
		slog.String("directory", dir),
		slog.Int("files_found", len(files)))
	return files, nil
}

// ValidateOutputDirectory creates dir when needed and checks it is writable
func (v *PathValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}
