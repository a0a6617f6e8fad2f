package model

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus represents the outcome of an analysis.
type ReportStatus string

const (
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusError     ReportStatus = "ERROR"
)

// ErrorFix is the single suggested fix carried by an ERROR report.
const ErrorFix = "Review thread dump format and content"

// Report is the diagnostic report produced for one analysis invocation.
// Reports are immutable after construction and identified by ID.
type Report struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Source         string       `json:"source"`
	Statistics     *Statistics  `json:"statistics,omitempty"`
	Findings       []Finding    `json:"findings"`
	SuggestedFixes []string     `json:"suggestedFixes"`
	Status         ReportStatus `json:"status"`
	Summary        string       `json:"summary"`
}

// NewReportID returns a new opaque report identifier.
func NewReportID() string {
	return uuid.NewString()
}

// NewErrorReport builds the ERROR report returned when the pipeline fails.
func NewErrorReport(id, source string, cause error) *Report {
	if id == "" {
		id = NewReportID()
	}
	summary := "Analysis failed"
	if cause != nil {
		summary = "Analysis failed: " + cause.Error()
	}
	return &Report{
		ID:             id,
		Timestamp:      time.Now(),
		Source:         source,
		Statistics:     nil,
		Findings:       []Finding{},
		SuggestedFixes: []string{ErrorFix},
		Status:         ReportStatusError,
		Summary:        summary,
	}
}

// IsError reports whether the report represents a failed analysis.
func (r *Report) IsError() bool {
	return r.Status == ReportStatusError
}

// CountBySeverity returns how many findings carry the given severity.
func (r *Report) CountBySeverity(sev Severity) int {
	n := 0
	for i := range r.Findings {
		if r.Findings[i].Severity == sev {
			n++
		}
	}
	return n
}

// HighestSeverity returns the most severe finding level, or "" when there are no findings.
func (r *Report) HighestSeverity() Severity {
	var top Severity
	for i := range r.Findings {
		if r.Findings[i].Severity.Rank() > top.Rank() {
			top = r.Findings[i].Severity
		}
	}
	return top
}

// ReportSummary is a lightweight listing entry for stored reports.
type ReportSummary struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	Source       string       `json:"source"`
	Status       ReportStatus `json:"status"`
	Summary      string       `json:"summary"`
	FindingCount int          `json:"findingCount"`
}

// Brief returns the listing entry for the report.
func (r *Report) Brief() ReportSummary {
	return ReportSummary{
		ID:           r.ID,
		Timestamp:    r.Timestamp,
		Source:       r.Source,
		Status:       r.Status,
		Summary:      r.Summary,
		FindingCount: len(r.Findings),
	}
}
