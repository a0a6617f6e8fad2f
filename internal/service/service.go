// Package service wires the analyzer, report store, export storage, JDK tooling
// and HTTP server into one runnable application.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/thread-dump-analysis/internal/analyzer"
	"github.com/thread-dump-analysis/internal/formatter"
	"github.com/thread-dump-analysis/internal/jvm"
	"github.com/thread-dump-analysis/internal/mcp"
	"github.com/thread-dump-analysis/internal/repository"
	"github.com/thread-dump-analysis/internal/server"
	"github.com/thread-dump-analysis/internal/storage"
	"github.com/thread-dump-analysis/pkg/compression"
	"github.com/thread-dump-analysis/pkg/config"
	"github.com/thread-dump-analysis/pkg/utils"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Service is the main application service.
type Service struct {
	config *config.Config
	logger utils.Logger

	store      repository.ReportStore
	storage    storage.Storage
	exporter   *storage.Exporter
	formatters *formatter.Registry
	analyzer   *analyzer.ThreadDumpAnalyzer
	processes  *jvm.ProcessLister
	dumps      *jvm.DumpGenerator
	server     *server.Server

	listener net.Listener
	errCh    chan error
	running  bool
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Service{
		config: cfg,
		logger: logger,
		errCh:  make(chan error, 1),
	}, nil
}

// Initialize initializes all service components.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing service components...")

	if err := s.initStore(); err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}

	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	s.initAnalyzer()
	s.initJDK(ctx)

	if err := s.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	s.logger.Info("Service components initialized successfully")
	return nil
}

func (s *Service) initStore() error {
	s.logger.Info("Opening report store (%s)...", s.config.Store.Type)

	store, err := repository.NewReportStore(&s.config.Store)
	if err != nil {
		return err
	}

	s.store = store
	s.logger.Info("Report store ready")
	return nil
}

func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	st, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return err
	}
	ct, err := compression.ParseType(s.config.Storage.Compression)
	if err != nil {
		return err
	}

	s.storage = st
	s.formatters = formatter.NewRegistry()
	s.exporter = storage.NewExporter(st, s.formatters, ct, storage.WithKeyPrefix(s.config.Storage.Prefix))
	s.logger.Info("Report export initialized: backend=%s, prefix=%s, compression=%s",
		s.config.Storage.Type, s.config.Storage.Prefix, ct)
	return nil
}

func (s *Service) initAnalyzer() {
	s.analyzer = analyzer.New(
		analyzer.WithLogger(s.logger),
		analyzer.WithMaxInputBytes(s.config.Analysis.MaxInputBytes),
	)
}

func (s *Service) initJDK(ctx context.Context) {
	runner := jvm.ExecRunner{}
	s.processes = jvm.NewProcessLister(runner, s.config.JDK.JpsPath, s.logger)
	s.dumps = jvm.NewDumpGenerator(runner, s.processes, s.config.JDK.JstackPath, s.config.JDK.DumpTimeout, s.logger)

	if !s.dumps.Available(ctx) {
		s.logger.Warn("jstack not found at %q; live thread dumps are unavailable", s.config.JDK.JstackPath)
	}
}

func (s *Service) initServer() error {
	format, err := formatter.ParseFormat(s.config.Analysis.DefaultFormat)
	if err != nil {
		return err
	}

	tools := mcp.NewToolset(mcp.Dependencies{
		Analyzer:   s.analyzer,
		Formatters: s.formatters,
		Store:      s.store,
		Processes:  s.processes,
		Dumps:      s.dumps,
		Logger:     s.logger,
	})
	s.logger.Info("Registered MCP tools: %v", tools.List())

	srv, err := server.NewServer(&s.config.Server, format, server.Dependencies{
		Analyzer:   s.analyzer,
		Store:      s.store,
		Formatters: s.formatters,
		Processes:  s.processes,
		Dumps:      s.dumps,
		Exporter:   s.exporter,
		Tools:      tools,
		Health:     s.HealthCheck,
	}, s.logger)
	if err != nil {
		return err
	}

	s.server = srv
	return nil
}

// Start binds the listen address and serves in the background.
// Serve errors are delivered on Done.
func (s *Service) Start(ctx context.Context) error {
	if s.server == nil {
		return fmt.Errorf("service is not initialized")
	}
	s.logger.Info("Starting service...")

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.running = true
	s.logger.Info("Service started successfully on %s", ln.Addr())
	return nil
}

// Done reports a serve failure, or closes after the server stops.
func (s *Service) Done() <-chan error {
	return s.errCh
}

// Addr returns the bound listen address once started.
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.config.Server.Addr
	}
	return s.listener.Addr().String()
}

// Stop stops the service gracefully.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping service...")

	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server: %v", err)
			errs = append(errs, err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Failed to close report store: %v", err)
			errs = append(errs, err)
		}
	}

	s.running = false
	s.logger.Info("Service stopped")
	return errors.Join(errs...)
}

// IsRunning returns whether the service is running.
func (s *Service) IsRunning() bool {
	return s.running
}

// Stats returns service statistics.
func (s *Service) Stats(ctx context.Context) ServiceStats {
	stats := ServiceStats{
		Running: s.running,
	}

	if s.store != nil {
		if n, err := s.store.Count(ctx); err == nil {
			stats.Reports = n
		}
	}
	if s.dumps != nil {
		stats.DumpToolAvailable = s.dumps.Available(ctx)
	}
	return stats
}

// HealthCheck performs a health check on the service.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.store.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("report store health check failed: %w", err)
		}
	}
	return nil
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	Running           bool `json:"running"`
	Reports           int  `json:"reports"`
	DumpToolAvailable bool `json:"dumpToolAvailable"`
}
