package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thread-dump-analysis/pkg/model"
)

var (
	colorCritical = lipgloss.Color("#FF0000")
	colorHigh     = lipgloss.Color("#FF8800")
	colorMedium   = lipgloss.Color("#FFFF00")
	colorLow      = lipgloss.Color("#00FF00")
	colorMuted    = lipgloss.Color("#888888")
	colorAccent   = lipgloss.Color("#7B68EE")

	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleMuted  = lipgloss.NewStyle().Foreground(colorMuted)
	styleOK     = lipgloss.NewStyle().Foreground(colorLow).Bold(true)
	styleFailed = lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
)

// severityStyle returns the lipgloss style for a severity level.
func severityStyle(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityCritical:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	case model.SeverityHigh:
		return lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	case model.SeverityMedium:
		return lipgloss.NewStyle().Foreground(colorMedium)
	case model.SeverityLow:
		return lipgloss.NewStyle().Foreground(colorLow)
	default:
		return lipgloss.NewStyle()
	}
}

// renderSummary renders a short terminal view of a report: status line,
// summary and one line per finding.
func renderSummary(report *model.Report) string {
	var b strings.Builder

	status := styleOK.Render(string(report.Status))
	if report.IsError() {
		status = styleFailed.Render(string(report.Status))
	}
	fmt.Fprintf(&b, "%s %s %s\n", styleTitle.Render(report.Source), status, styleMuted.Render(report.ID))
	fmt.Fprintf(&b, "  %s\n", report.Summary)

	for _, f := range report.Findings {
		sev := severityStyle(f.Severity).Render(fmt.Sprintf("%-8s", f.Severity))
		fmt.Fprintf(&b, "  %s %s %s\n", sev, f.Type, styleMuted.Render(f.Description))
	}
	return b.String()
}
