package formatter

import (
	"encoding/json"
	"fmt"

	"github.com/thread-dump-analysis/pkg/model"
)

// JSONFormatter renders reports as indented JSON.
type JSONFormatter struct{}

// ReportFormat returns FormatJSON.
func (f *JSONFormatter) ReportFormat() ReportFormat { return FormatJSON }

// Format renders the report.
func (f *JSONFormatter) Format(report *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format report as JSON: %w", err)
	}
	return data, nil
}
