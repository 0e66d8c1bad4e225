package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"householdrisk/internal/estimation"
)

// ParametersFile holds the calibrated model written by ExportParameters
const ParametersFile = "model_parameters.json"

// ExportParameters writes the calibrated estimate as indented JSON so later
// runs can reuse it without re-reading the panel.
func (e *ReportExporter) ExportParameters(est *estimation.Estimate, filePath string) error {
	if est == nil {
		return fmt.Errorf("failed to export parameters: no estimate")
	}

	data, err := json.MarshalIndent(est, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	fullPath := e.csvWriter.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write parameters: %w", err)
	}

	e.logger.Info("model parameters written", "path", fullPath, "model", est.Model.Kind.String())
	return nil
}
