package formatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/thread-dump-analysis/pkg/model"
)

// YAMLFormatter renders reports as YAML.
type YAMLFormatter struct{}

// ReportFormat returns FormatYAML.
func (f *YAMLFormatter) ReportFormat() ReportFormat { return FormatYAML }

// Format renders the report.
func (f *YAMLFormatter) Format(report *model.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newYAMLDocument(report)); err != nil {
		return nil, fmt.Errorf("failed to format report as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to format report as YAML: %w", err)
	}
	return buf.Bytes(), nil
}
