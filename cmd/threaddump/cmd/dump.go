package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thread-dump-analysis/internal/analyzer"
	"github.com/thread-dump-analysis/internal/formatter"
	"github.com/thread-dump-analysis/internal/jvm"
)

var (
	dumpPID     int64
	dumpAnalyze bool
	dumpFormat  string
	dumpOutput  string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Take a thread dump from a running JVM with jstack",
	Long: `Take a thread dump from a running JVM with jstack.

The PID must belong to a Java process listed by jps. With --analyze the dump
is analyzed and the report is printed instead of the raw dump.`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().Int64Var(&dumpPID, "pid", 0, "Java process ID (required)")
	dumpCmd.Flags().BoolVar(&dumpAnalyze, "analyze", false, "Analyze the dump and print the report")
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "", "Report format used with --analyze (default from config)")
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Write the dump or report to this file")
	_ = dumpCmd.MarkFlagRequired("pid")
}

func runDump(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	if dumpPID <= 0 {
		return fmt.Errorf("invalid pid: %d", dumpPID)
	}

	runner := jvm.ExecRunner{}
	lister := jvm.NewProcessLister(runner, cfg.JDK.JpsPath, log)
	gen := jvm.NewDumpGenerator(runner, lister, cfg.JDK.JstackPath, cfg.JDK.DumpTimeout, log)

	dump, err := gen.Generate(cmd.Context(), dumpPID)
	if err != nil {
		return err
	}

	out := []byte(dump)
	if dumpAnalyze {
		name := dumpFormat
		if name == "" {
			name = cfg.Analysis.DefaultFormat
		}
		format, err := formatter.ParseFormat(name)
		if err != nil {
			return err
		}

		report := analyzer.New(analyzer.WithLogger(log)).
			AnalyzeContext(cmd.Context(), dump, "pid-"+strconv.FormatInt(dumpPID, 10))
		if out, err = formatter.NewRegistry().Format(report, format); err != nil {
			return err
		}
		fmt.Fprint(logOutput, renderSummary(report))
	}

	if dumpOutput != "" {
		if err := os.WriteFile(dumpOutput, out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dumpOutput, err)
		}
		log.Info("Wrote %s", dumpOutput)
		return nil
	}
	_, err = reportOutput.Write(out)
	return err
}
