package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thread-dump-analysis/pkg/config"
	"github.com/thread-dump-analysis/pkg/telemetry"
	"github.com/thread-dump-analysis/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg             *config.Config
	logger          utils.Logger
	shutdownTracing telemetry.ShutdownFunc
	logOutput       io.Writer = os.Stderr
	reportOutput    io.Writer = os.Stdout
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "threaddump",
	Short: "A JVM thread dump diagnosis tool",
	Long: `threaddump parses JVM thread dumps, aggregates thread statistics and
reports diagnostic findings such as deadlocks, lock contention, CPU hotspots
and thread starvation, together with suggested fixes.

Dumps can be read from files (plain, gzip or zstd), taken from live JVMs
with jstack, or submitted to the HTTP API started by the serve command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			level = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			fileLogger, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
			if err != nil {
				return err
			}
			logger = fileLogger
		} else {
			logger = utils.NewDefaultLogger(level, logOutput)
		}
		utils.SetGlobalLogger(logger)

		shutdown, err := telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("Failed to initialize tracing: %v", err)
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing != nil {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("Failed to flush traces: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	binName := BinName()
	rootCmd.Example = `  # Analyze a thread dump and print a text report
  ` + binName + ` analyze -i ./dump.txt -f text

  # Analyze several dumps in parallel and write SARIF reports
  ` + binName + ` analyze -i a.txt -i b.txt.gz -f sarif -o ./reports

  # Take and analyze a dump from a running JVM
  ` + binName + ` dump --pid 12345 --analyze

  # Start the HTTP API
  ` + binName + ` serve -c ./config.yaml`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return utils.OrNull(logger)
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

func printf(format string, args ...any) {
	fmt.Fprintf(reportOutput, format, args...)
}
