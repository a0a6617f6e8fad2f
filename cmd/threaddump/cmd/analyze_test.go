package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thread-dump-analysis/internal/analyzer"
	"github.com/thread-dump-analysis/internal/testutil"
	"github.com/thread-dump-analysis/pkg/model"
	"github.com/thread-dump-analysis/pkg/utils"
)

// executeCommand runs the root command with args and returns what it wrote as report output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	prevOut, prevLog := reportOutput, logOutput
	reportOutput, logOutput = &out, io.Discard
	t.Cleanup(func() {
		reportOutput, logOutput = prevOut, prevLog
		inputFiles, formatName, outputDir, sourceName = nil, "", "", ""
		workers, compressName, failOn, quiet = 0, "none", "", false
	})

	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeFiles(t *testing.T) {
	jstackPath := testutil.GetTestDataPath(t, "jstack_sample.txt")
	actuatorPath := testutil.GetTestDataPath(t, "actuator_sample.json")
	ana := analyzer.New(analyzer.WithLogger(&utils.NullLogger{}))

	t.Run("InputOrder", func(t *testing.T) {
		reports, err := analyzeFiles(context.Background(), ana, []string{actuatorPath, jstackPath, actuatorPath}, "ignored", 2)
		require.NoError(t, err)
		require.Len(t, reports, 3)

		assert.Equal(t, "actuator_sample.json", reports[0].Source)
		assert.Equal(t, "jstack_sample.txt", reports[1].Source)
		assert.Equal(t, 5, reports[1].Statistics.TotalThreads)
		assert.Equal(t, reports[0].Summary, reports[2].Summary)
		assert.NotEqual(t, reports[0].ID, reports[2].ID)
	})

	t.Run("SingleInputUsesSource", func(t *testing.T) {
		reports, err := analyzeFiles(context.Background(), ana, []string{jstackPath}, "prod-node-1", 0)
		require.NoError(t, err)
		assert.Equal(t, "prod-node-1", reports[0].Source)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := analyzeFiles(context.Background(), ana, []string{jstackPath, "/no/such/dump.txt"}, "", 4)
		assert.Error(t, err)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		empty := testutil.WriteFile(t, t.TempDir(), "empty.txt", []byte("\n\n"))
		_, err := analyzeFiles(context.Background(), ana, []string{empty}, "", 1)
		assert.ErrorIs(t, err, analyzer.ErrEmptyData)
	})
}

func TestRenderSummary(t *testing.T) {
	report := &model.Report{
		ID:      "r-1",
		Source:  "dump.txt",
		Status:  model.ReportStatusCompleted,
		Summary: "Analyzed 3 threads.",
		Findings: []model.Finding{
			{Type: model.FindingPotentialDeadlock, Severity: model.SeverityCritical, Description: "Potential deadlock"},
		},
	}

	out := renderSummary(report)
	assert.Contains(t, out, "dump.txt")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "Analyzed 3 threads.")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "POTENTIAL_DEADLOCK")

	failed := model.NewErrorReport("r-2", "bad.txt", nil)
	assert.Contains(t, renderSummary(failed), "ERROR")
}

func TestHighestSeverity(t *testing.T) {
	low := &model.Report{Findings: []model.Finding{{Severity: model.SeverityLow}}}
	high := &model.Report{Findings: []model.Finding{{Severity: model.SeverityMedium}, {Severity: model.SeverityHigh}}}

	assert.Equal(t, model.Severity(""), highestSeverity([]*model.Report{{}}))
	assert.Equal(t, model.SeverityHigh, highestSeverity([]*model.Report{low, high}))
}

func TestAnalyzeCommand(t *testing.T) {
	jstackPath := testutil.GetTestDataPath(t, "jstack_sample.txt")
	actuatorPath := testutil.GetTestDataPath(t, "actuator_sample.json")

	t.Run("TextToStdout", func(t *testing.T) {
		out, err := executeCommand(t, "analyze", "-i", jstackPath, "-f", "text", "-q")
		require.NoError(t, err)
		assert.Contains(t, out, "Analyzed 5 threads.")
		assert.Contains(t, out, "End of Report")
	})

	t.Run("OutputDirectory", func(t *testing.T) {
		dir := t.TempDir()
		out, err := executeCommand(t, "analyze", jstackPath, "-f", "yaml", "-o", dir, "--compress", "zstd", "-q")
		require.NoError(t, err)
		assert.Empty(t, out)

		matches, err := filepath.Glob(filepath.Join(dir, "*", "report.yaml.zst"))
		require.NoError(t, err)
		require.Len(t, matches, 1)

		info, err := os.Stat(matches[0])
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("FailOn", func(t *testing.T) {
		_, err := executeCommand(t, "analyze", "-i", actuatorPath, "--fail-on", "high", "-q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CRITICAL")

		_, err = executeCommand(t, "analyze", "-i", jstackPath, "--fail-on", "low", "-q")
		assert.NoError(t, err)
	})

	t.Run("BadFlags", func(t *testing.T) {
		_, err := executeCommand(t, "analyze", "-i", jstackPath, "-f", "pdf")
		assert.Error(t, err)

		_, err = executeCommand(t, "analyze", "-i", jstackPath, "--fail-on", "urgent")
		assert.Error(t, err)

		_, err = executeCommand(t, "analyze")
		assert.Error(t, err)
	})
}

func TestFormatsCommand(t *testing.T) {
	out, err := executeCommand(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "SARIF")
	assert.Contains(t, out, "application/sarif+json")
}
