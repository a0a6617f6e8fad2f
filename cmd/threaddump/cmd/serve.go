package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thread-dump-analysis/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the thread dump analysis HTTP API",
	Long: `Start an HTTP server exposing thread dump analysis.

Endpoints:
  POST   /thread-dump/analyze-text     analyze the request body
  POST   /thread-dump/analyze-file     analyze a multipart "file" upload
  GET    /thread-dump/formats          list report formats
  GET    /reports                      list stored reports
  GET    /reports/{id}                 fetch a stored report
  DELETE /reports/{id}                 delete a stored report
  POST   /reports/{id}/export          export a report to the configured storage
  GET    /processes                    list local Java processes
  POST   /processes/{pid}/dump         take (and optionally analyze) a dump
  GET    /healthz                      health check

Report endpoints accept ?format=json|xml|text|yaml|sarif.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Start with defaults (:8080, in-memory report store)
  ` + binName + ` serve

  # Use a config file and override the listen address
  ` + binName + ` serve -c ./config.yaml --addr 127.0.0.1:9090`

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log.Info("Starting thread dump analysis service...")
	log.Info("Version: %s, Commit: %s, Built: %s", Version, GitCommit, BuildTime)
	log.Info("Report store: %s, storage: %s", cfg.Store.Type, cfg.Storage.Type)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal, initiating graceful shutdown...")
	case serveErr = <-svc.Done():
		if serveErr != nil {
			log.Error("Server error: %v", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown: %v", err)
	}
	return serveErr
}
