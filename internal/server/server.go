// Package server exposes thread dump analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/thread-dump-analysis/internal/formatter"
	"github.com/thread-dump-analysis/internal/mcp"
	"github.com/thread-dump-analysis/internal/repository"
	"github.com/thread-dump-analysis/pkg/config"
	"github.com/thread-dump-analysis/pkg/model"
	"github.com/thread-dump-analysis/pkg/utils"
)

// Analyzer turns raw dump bytes into a report.
type Analyzer interface {
	AnalyzeBytes(ctx context.Context, data []byte, source string) *model.Report
}

// ProcessLister lists local Java processes.
type ProcessLister interface {
	List(ctx context.Context) ([]model.JavaProcess, error)
}

// DumpGenerator captures a thread dump from a live process.
type DumpGenerator interface {
	Generate(ctx context.Context, pid int64) (string, error)
}

// ReportExporter writes a formatted report to object storage.
type ReportExporter interface {
	Export(ctx context.Context, report *model.Report, format formatter.ReportFormat) (key string, url string, err error)
}

// Dependencies are the collaborators the handlers use. Processes, Dumps,
// Exporter, Tools and Health may be nil; their endpoints then answer 503.
type Dependencies struct {
	Analyzer   Analyzer
	Store      repository.ReportStore
	Formatters *formatter.Registry
	Processes  ProcessLister
	Dumps      DumpGenerator
	Exporter   ReportExporter
	Tools      *mcp.Registry
	Health     func(ctx context.Context) error
}

// Server is the HTTP front end of the analyzer.
type Server struct {
	deps           Dependencies
	logger         utils.Logger
	addr           string
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxUploadBytes int64
	defaultFormat  formatter.ReportFormat
	handler        http.Handler

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a server. Analyzer and Store are required.
func NewServer(cfg *config.ServerConfig, defaultFormat formatter.ReportFormat, deps Dependencies, logger utils.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is nil")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("report store is required")
	}
	if deps.Formatters == nil {
		deps.Formatters = formatter.NewRegistry()
	}
	if defaultFormat == "" {
		defaultFormat = formatter.FormatJSON
	}
	if _, err := deps.Formatters.Get(defaultFormat); err != nil {
		return nil, err
	}

	s := &Server{
		deps:           deps,
		logger:         utils.OrNull(logger),
		addr:           cfg.Addr,
		readTimeout:    cfg.ReadTimeout,
		writeTimeout:   cfg.WriteTimeout,
		maxUploadBytes: cfg.MaxUploadBytes,
		defaultFormat:  defaultFormat,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /thread-dump/analyze-text", s.handleAnalyzeText)
	mux.HandleFunc("POST /thread-dump/analyze-file", s.handleAnalyzeFile)
	mux.HandleFunc("GET /thread-dump/formats", s.handleFormats)
	mux.HandleFunc("POST /thread-dump/mcp-analyze", s.handleMCPAnalyze)
	mux.HandleFunc("GET /thread-dump/mcp-tool-definition", s.handleToolDefinitions)
	mux.HandleFunc("POST /mcp", s.handleMCP)

	mux.HandleFunc("GET /reports", s.handleListReports)
	mux.HandleFunc("GET /reports/{id}", s.handleGetReport)
	mux.HandleFunc("DELETE /reports/{id}", s.handleDeleteReport)
	mux.HandleFunc("POST /reports/{id}/export", s.handleExportReport)

	mux.HandleFunc("GET /processes", s.handleListProcesses)
	mux.HandleFunc("POST /processes/{pid}/dump", s.handleDumpProcess)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start listens on the configured address and serves until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called. It returns nil after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server at %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
