package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/thread-dump-analysis/pkg/model"
)

const (
	sarifToolName = "thread-dump-analyzer"
	sarifToolURI  = "https://github.com/thread-dump-analysis"
)

// SARIFFormatter renders findings as a SARIF 2.1.0 log, one result per finding.
type SARIFFormatter struct {
	toolName string
	toolURI  string
}

// NewSARIFFormatter creates a SARIF formatter with the default tool identity.
func NewSARIFFormatter() *SARIFFormatter {
	return &SARIFFormatter{toolName: sarifToolName, toolURI: sarifToolURI}
}

// ReportFormat returns FormatSARIF.
func (f *SARIFFormatter) ReportFormat() ReportFormat { return FormatSARIF }

// Format renders the report.
func (f *SARIFFormatter) Format(report *model.Report) ([]byte, error) {
	sarifLog, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(f.toolName, f.toolURI)
	for _, finding := range report.Findings {
		level := sarifLevel(finding.Severity)
		rule := run.AddRule(string(finding.Type)).
			WithDescription(finding.Recommendation).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: level,
			})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(report.Source)),
		)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(sarifMessage(finding))).
			WithLevel(level).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}
	sarifLog.AddRun(run)

	var buf bytes.Buffer
	if err := sarifLog.PrettyWrite(&buf); err != nil {
		return nil, fmt.Errorf("failed to format report as SARIF: %w", err)
	}
	return buf.Bytes(), nil
}

func sarifMessage(f model.Finding) string {
	if len(f.AffectedThreads) == 0 {
		return f.Description
	}
	return fmt.Sprintf("%s (threads: %s)", f.Description, strings.Join(f.AffectedThreads, ", "))
}

func sarifLevel(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	case model.SeverityLow:
		return "note"
	default:
		return "none"
	}
}
