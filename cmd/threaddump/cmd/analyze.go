package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thread-dump-analysis/internal/analyzer"
	"github.com/thread-dump-analysis/internal/formatter"
	"github.com/thread-dump-analysis/internal/storage"
	"github.com/thread-dump-analysis/pkg/compression"
	"github.com/thread-dump-analysis/pkg/model"
)

const stdinPath = "-"

var (
	// Analyze command flags
	inputFiles   []string
	formatName   string
	outputDir    string
	sourceName   string
	workers      int
	compressName string
	failOn       string
	quiet        bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Analyze thread dump files",
	Long: `Analyze one or more thread dumps and render a diagnostic report for each.

Inputs may be jstack text, Spring Boot actuator /threaddump JSON, or either
of those compressed with gzip or zstd. Use "-" to read from stdin.

Reports are written to stdout, or with --output into <dir>/<report-id>/
using the same layout as exports from the HTTP API. A short colored summary
of every report is printed to stderr.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	binName := BinName()
	analyzeCmd.Example = `  # Print a JSON report
  ` + binName + ` analyze -i ./dump.txt

  # Text report from stdin
  jstack 12345 | ` + binName + ` analyze -f text -

  # Batch analysis, gzip-compressed SARIF reports in ./reports
  ` + binName + ` analyze -i a.txt -i b.txt -f sarif -o ./reports --compress gzip

  # Fail a CI step when any HIGH or CRITICAL finding is reported
  ` + binName + ` analyze -i ./dump.txt --fail-on high -q`

	analyzeCmd.Flags().StringSliceVarP(&inputFiles, "input", "i", nil, "Thread dump file (repeatable)")
	analyzeCmd.Flags().StringVarP(&formatName, "format", "f", "", "Report format: json, xml, text, yaml, sarif (default from config)")
	analyzeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Write reports under this directory instead of stdout")
	analyzeCmd.Flags().StringVar(&sourceName, "source", "", "Source label for a single input (default: file name)")
	analyzeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent analyses (default from config)")
	analyzeCmd.Flags().StringVar(&compressName, "compress", "none", "Compression for reports written with --output: none, gzip, zstd")
	analyzeCmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when a finding reaches this severity")
	analyzeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print report summaries")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	files := append(append([]string{}, inputFiles...), args...)
	if len(files) == 0 {
		return fmt.Errorf("no input files: use -i <file> or pass files as arguments")
	}

	name := formatName
	if name == "" {
		name = cfg.Analysis.DefaultFormat
	}
	format, err := formatter.ParseFormat(name)
	if err != nil {
		return err
	}
	ct, err := compression.ParseType(compressName)
	if err != nil {
		return err
	}
	var threshold model.Severity
	if failOn != "" {
		if threshold, err = model.ParseSeverity(failOn); err != nil {
			return err
		}
	}
	n := workers
	if n <= 0 {
		n = cfg.Analysis.BatchWorkers
	}

	ana := analyzer.New(analyzer.WithLogger(log), analyzer.WithMaxInputBytes(cfg.Analysis.MaxInputBytes))
	reports, err := analyzeFiles(cmd.Context(), ana, files, sourceName, n)
	if err != nil {
		return err
	}

	if err := writeReports(cmd.Context(), reports, format, ct); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if !quiet {
			fmt.Fprint(logOutput, renderSummary(r))
		}
		if r.IsError() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(reports))
	}
	if threshold != "" {
		if sev := highestSeverity(reports); sev != "" && sev.AtLeast(threshold) {
			return fmt.Errorf("found %s findings (threshold %s)", sev, threshold)
		}
	}
	return nil
}

// analyzeFiles analyzes every file with at most workers analyses in flight.
// Reports are returned in input order.
func analyzeFiles(ctx context.Context, ana *analyzer.ThreadDumpAnalyzer, files []string, source string, workers int) ([]*model.Report, error) {
	if workers < 1 {
		workers = 1
	}
	reports := make([]*model.Report, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			data, err := readInput(path)
			if err != nil {
				return err
			}
			if len(bytes.TrimSpace(data)) == 0 {
				return fmt.Errorf("%s: %w", path, analyzer.ErrEmptyData)
			}

			label := source
			if label == "" || len(files) > 1 {
				label = sourceLabel(path)
			}
			reports[i] = ana.AnalyzeBytes(ctx, data, label)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func readInput(path string) ([]byte, error) {
	if path == stdinPath {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

func sourceLabel(path string) string {
	if path == stdinPath {
		return "stdin"
	}
	return filepath.Base(path)
}

func writeReports(ctx context.Context, reports []*model.Report, format formatter.ReportFormat, ct compression.Type) error {
	log := GetLogger()
	registry := formatter.NewRegistry()

	if outputDir == "" {
		for _, r := range reports {
			data, err := registry.Format(r, format)
			if err != nil {
				return err
			}
			if _, err := reportOutput.Write(append(data, '\n')); err != nil {
				return err
			}
		}
		return nil
	}

	st, err := storage.NewLocalStorage(outputDir)
	if err != nil {
		return err
	}
	exporter := storage.NewExporter(st, registry, ct)
	for _, r := range reports {
		_, url, err := exporter.Export(ctx, r, format)
		if err != nil {
			return err
		}
		log.Info("Report %s written to %s", r.ID, url)
	}
	return nil
}

func highestSeverity(reports []*model.Report) model.Severity {
	var top model.Severity
	for _, r := range reports {
		if sev := r.HighestSeverity(); sev.Rank() > top.Rank() {
			top = sev
		}
	}
	return top
}
