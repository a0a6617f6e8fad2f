package formatter

import (
	"fmt"
	"strings"

	"github.com/thread-dump-analysis/pkg/model"
)

// TimestampLayout is the timestamp format of the text report.
const TimestampLayout = "2006-01-02 15:04:05"

// TextFormatter renders the plain-text report.
type TextFormatter struct{}

// ReportFormat returns FormatText.
func (f *TextFormatter) ReportFormat() ReportFormat { return FormatText }

// Format renders the report.
func (f *TextFormatter) Format(report *model.Report) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("THREAD DUMP DIAGNOSTIC REPORT\n")
	sb.WriteString("============================\n\n")

	fmt.Fprintf(&sb, "Report ID: %s\n", report.ID)
	fmt.Fprintf(&sb, "Timestamp: %s\n", report.Timestamp.Format(TimestampLayout))
	fmt.Fprintf(&sb, "Source: %s\n", report.Source)
	fmt.Fprintf(&sb, "Status: %s\n\n", report.Status)

	sb.WriteString("SUMMARY\n")
	sb.WriteString("-------\n")
	sb.WriteString(report.Summary)
	sb.WriteString("\n\n")

	if stats := report.Statistics; stats != nil {
		writeStatistics(&sb, stats)
	}

	if len(report.Findings) > 0 {
		sb.WriteString("DIAGNOSTIC FINDINGS\n")
		sb.WriteString("-------------------\n")
		for i, finding := range report.Findings {
			fmt.Fprintf(&sb, "%d. %s [%s]\n", i+1, finding.Type, finding.Severity)
			fmt.Fprintf(&sb, "   Description: %s\n", finding.Description)
			if len(finding.AffectedThreads) > 0 {
				fmt.Fprintf(&sb, "   Affected Threads: %s\n", strings.Join(finding.AffectedThreads, ", "))
			}
			if finding.Recommendation != "" {
				fmt.Fprintf(&sb, "   Recommendation: %s\n", finding.Recommendation)
			}
			sb.WriteString("\n")
		}
	}

	if len(report.SuggestedFixes) > 0 {
		sb.WriteString("SUGGESTED FIXES\n")
		sb.WriteString("---------------\n")
		for i, fix := range report.SuggestedFixes {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, fix)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("End of Report\n")
	return []byte(sb.String()), nil
}

func writeStatistics(sb *strings.Builder, stats *model.Statistics) {
	sb.WriteString("THREAD STATISTICS\n")
	sb.WriteString("-----------------\n")
	fmt.Fprintf(sb, "Total Threads: %d\n", stats.TotalThreads)
	fmt.Fprintf(sb, "Daemon Threads: %d\n", stats.DaemonThreads)
	fmt.Fprintf(sb, "Runnable Threads: %d\n", stats.RunnableThreads)
	fmt.Fprintf(sb, "Blocked Threads: %d\n", stats.BlockedThreads)
	fmt.Fprintf(sb, "Waiting Threads: %d\n\n", stats.WaitingThreads)

	if len(stats.ThreadsByState) == 0 {
		return
	}
	sb.WriteString("Threads by State:\n")
	for _, state := range model.AllThreadStates() {
		if n, ok := stats.ThreadsByState[state]; ok {
			fmt.Fprintf(sb, "  %s: %d\n", state, n)
		}
	}
	sb.WriteString("\n")
}
