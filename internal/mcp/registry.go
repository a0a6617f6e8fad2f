// Package mcp exposes thread dump analysis as Model Context Protocol tools:
// analyzing dump text, listing local JVMs and capturing live dumps.
package mcp

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thread-dump-analysis/internal/formatter"
	apperrors "github.com/thread-dump-analysis/pkg/errors"
	"github.com/thread-dump-analysis/pkg/telemetry"
	"github.com/thread-dump-analysis/pkg/utils"
)

// Span attribute keys from the MCP and GenAI semantic conventions.
const (
	AttrMCPMethodName      = "mcp.method.name"
	AttrGenAIToolName      = "gen_ai.tool.name"
	AttrGenAIOperationName = "gen_ai.operation.name"
	AttrErrorType          = "error.type"

	MethodToolsCall = "tools/call"
	MethodToolsList = "tools/list"
)

// Tool is one invocable MCP tool.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Run(ctx context.Context, args map[string]any) (*Result, error)
}

// Result is the text a tool produced. Format is empty for raw dumps.
type Result struct {
	Text     string
	Format   formatter.ReportFormat
	ReportID string
}

// ContentType returns the MIME type of Text.
func (r *Result) ContentType() string {
	if r.Format == "" {
		return "text/plain; charset=utf-8"
	}
	return r.Format.ContentType()
}

// Definition describes a tool for tools/list.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry holds tools in registration order and is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger utils.Logger
	tracer trace.Tracer
}

// NewRegistry creates an empty registry.
func NewRegistry(logger utils.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: utils.OrNull(logger),
		tracer: telemetry.Tracer(),
	}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name()]; !ok {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.logger.Debug("MCP tool registered: %s", tool.Name())
}

// Deregister removes a tool.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("MCP tool deregistered: %s", name)
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions describes every registered tool.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	return defs
}

// Call runs the named tool inside a tools/call span.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*Result, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "tool not found: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	ctx, span := r.tracer.Start(ctx, MethodToolsCall+" "+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrMCPMethodName, MethodToolsCall),
			attribute.String(AttrGenAIToolName, name),
			attribute.String(AttrGenAIOperationName, "execute_tool"),
		))
	defer span.End()

	r.logger.Info("MCP: invoking tool %s", name)
	res, err := tool.Run(ctx, args)
	if err != nil {
		r.logger.Warn("MCP: tool %s failed: %v", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorType, apperrors.GetErrorCode(err)))
		return nil, err
	}
	if res.ReportID != "" {
		span.SetAttributes(telemetry.AttrReportID.String(res.ReportID))
	}
	return res, nil
}
