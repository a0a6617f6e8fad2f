package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/thread-dump-analysis/internal/formatter"
	apperrors "github.com/thread-dump-analysis/pkg/errors"
	"github.com/thread-dump-analysis/pkg/model"
	"github.com/thread-dump-analysis/pkg/utils"
)

// Tool names.
const (
	ToolAnalyzeThreadDump            = "analyze_thread_dump"
	ToolGetJavaProcesses             = "get_java_processes"
	ToolGenerateThreadDump           = "generate_thread_dump"
	ToolGenerateAndAnalyzeThreadDump = "generate_and_analyze_thread_dump"

	// DefaultSource labels reports analyzed from tool input.
	DefaultSource = "mcp-input"
)

// ErrDumpUnavailable is returned by the dump tools when jstack cannot run.
var ErrDumpUnavailable = errors.New("thread dump generation is not available on this system")

// Analyzer turns raw dump bytes into a report.
type Analyzer interface {
	AnalyzeBytes(ctx context.Context, data []byte, source string) *model.Report
}

// ReportSaver keeps analyzed reports so they can be fetched later.
type ReportSaver interface {
	Save(ctx context.Context, report *model.Report) error
}

// ProcessLister lists local Java processes.
type ProcessLister interface {
	List(ctx context.Context) ([]model.JavaProcess, error)
}

// DumpGenerator captures thread dumps from live processes.
type DumpGenerator interface {
	Generate(ctx context.Context, pid int64) (string, error)
	Available(ctx context.Context) bool
}

// Dependencies are shared by the built-in tools. Store, Processes and Dumps
// may be nil; tools that need a missing one are not registered.
type Dependencies struct {
	Analyzer   Analyzer
	Formatters *formatter.Registry
	Store      ReportSaver
	Processes  ProcessLister
	Dumps      DumpGenerator
	Logger     utils.Logger
}

// NewToolset returns a registry holding the thread dump tools.
func NewToolset(deps Dependencies) *Registry {
	if deps.Formatters == nil {
		deps.Formatters = formatter.NewRegistry()
	}
	deps.Logger = utils.OrNull(deps.Logger)

	r := NewRegistry(deps.Logger)
	if deps.Analyzer != nil {
		r.Register(&AnalyzeThreadDumpTool{deps: deps})
	}
	if deps.Processes != nil {
		r.Register(&GetJavaProcessesTool{deps: deps})
	}
	if deps.Dumps != nil {
		r.Register(&GenerateThreadDumpTool{deps: deps})
		if deps.Analyzer != nil {
			r.Register(&GenerateAndAnalyzeTool{deps: deps})
		}
	}
	return r
}

// AnalyzeThreadDumpTool analyzes dump text passed in the arguments.
type AnalyzeThreadDumpTool struct {
	deps Dependencies
}

func (t *AnalyzeThreadDumpTool) Name() string { return ToolAnalyzeThreadDump }

func (t *AnalyzeThreadDumpTool) Description() string {
	return "Analyzes Java thread dump content and provides diagnostic insights including thread statistics, deadlock detection, and performance recommendations"
}

func (t *AnalyzeThreadDumpTool) InputSchema() map[string]any {
	return objectSchema(map[string]any{
		"content": map[string]any{
			"type":        "string",
			"description": "The thread dump content to analyze",
		},
		"format": formatProperty(reportFormatNames(), "Output format for the diagnostic report"),
		"source": map[string]any{
			"type":        "string",
			"description": "Source identifier for the thread dump",
			"default":     DefaultSource,
		},
	}, "content")
}

func (t *AnalyzeThreadDumpTool) Run(ctx context.Context, args map[string]any) (*Result, error) {
	content, _ := args["content"].(string)
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "Thread dump content cannot be empty")
	}
	format, err := reportFormatArg(args)
	if err != nil {
		return nil, err
	}
	source, _ := args["source"].(string)
	if source == "" {
		source = DefaultSource
	}

	t.deps.Logger.Info("MCP: Analyzing thread dump from source: %s, format: %s", source, format)
	return t.deps.analyze(ctx, []byte(content), source, format)
}

// GetJavaProcessesTool lists JVMs visible to jps.
type GetJavaProcessesTool struct {
	deps Dependencies
}

func (t *GetJavaProcessesTool) Name() string { return ToolGetJavaProcesses }

func (t *GetJavaProcessesTool) Description() string {
	return "Gets information about all running Java processes including their PIDs, main classes, and arguments"
}

func (t *GetJavaProcessesTool) InputSchema() map[string]any {
	return objectSchema(map[string]any{
		"format": formatProperty(processFormatNames(), "Output format for the process list"),
	})
}

func (t *GetJavaProcessesTool) Run(ctx context.Context, args map[string]any) (*Result, error) {
	format, err := formatArg(args, processFormats)
	if err != nil {
		return nil, err
	}

	processes, err := t.deps.Processes.List(ctx)
	if err != nil {
		return nil, err
	}
	t.deps.Logger.Info("MCP: Found %d Java processes", len(processes))

	text, err := RenderProcesses(processes, format)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text, Format: format}, nil
}

// GenerateThreadDumpTool returns the raw jstack output for a pid.
type GenerateThreadDumpTool struct {
	deps Dependencies
}

func (t *GenerateThreadDumpTool) Name() string { return ToolGenerateThreadDump }

func (t *GenerateThreadDumpTool) Description() string {
	return "Generates a thread dump from a running Java process using its PID"
}

func (t *GenerateThreadDumpTool) InputSchema() map[string]any {
	return objectSchema(map[string]any{"pid": pidProperty()}, "pid")
}

func (t *GenerateThreadDumpTool) Run(ctx context.Context, args map[string]any) (*Result, error) {
	pid, err := t.deps.dumpTarget(ctx, args)
	if err != nil {
		return nil, err
	}
	dump, err := t.deps.Dumps.Generate(ctx, pid)
	if err != nil {
		return nil, err
	}
	return &Result{Text: dump}, nil
}

// GenerateAndAnalyzeTool captures a dump and analyzes it in one call.
type GenerateAndAnalyzeTool struct {
	deps Dependencies
}

func (t *GenerateAndAnalyzeTool) Name() string { return ToolGenerateAndAnalyzeThreadDump }

func (t *GenerateAndAnalyzeTool) Description() string {
	return "Generates a thread dump from a running Java process and immediately analyzes it for diagnostic insights"
}

func (t *GenerateAndAnalyzeTool) InputSchema() map[string]any {
	return objectSchema(map[string]any{
		"pid":    pidProperty(),
		"format": formatProperty(reportFormatNames(), "Output format for the diagnostic report"),
	}, "pid")
}

func (t *GenerateAndAnalyzeTool) Run(ctx context.Context, args map[string]any) (*Result, error) {
	pid, err := t.deps.dumpTarget(ctx, args)
	if err != nil {
		return nil, err
	}
	format, err := reportFormatArg(args)
	if err != nil {
		return nil, err
	}
	dump, err := t.deps.Dumps.Generate(ctx, pid)
	if err != nil {
		return nil, err
	}
	return t.deps.analyze(ctx, []byte(dump), "pid-"+strconv.FormatInt(pid, 10), format)
}

func (d Dependencies) analyze(ctx context.Context, data []byte, source string, format formatter.ReportFormat) (*Result, error) {
	report := d.Analyzer.AnalyzeBytes(ctx, data, source)
	if d.Store != nil {
		if err := d.Store.Save(ctx, report); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoreError, "failed to save report", err)
		}
	}

	body, err := d.Formatters.Format(report, format)
	if err != nil {
		return nil, err
	}
	d.Logger.Info("MCP: Thread dump analysis completed, report ID: %s", report.ID)
	return &Result{Text: string(body), Format: format, ReportID: report.ID}, nil
}

// dumpTarget checks that jstack can run and reads the pid argument.
func (d Dependencies) dumpTarget(ctx context.Context, args map[string]any) (int64, error) {
	if !d.Dumps.Available(ctx) {
		return 0, ErrDumpUnavailable
	}
	pid, err := PIDArg(args)
	if err != nil {
		return 0, err
	}
	d.Logger.Info("MCP: Generating thread dump for PID: %d", pid)
	return pid, nil
}

// PIDArg reads "pid" as a JSON number or a numeric string.
func PIDArg(args map[string]any) (int64, error) {
	raw, ok := args["pid"]
	if !ok || raw == nil {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "PID is required")
	}

	var (
		pid int64
		err error
	)
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64 {
			return 0, invalidPIDFormat()
		}
		pid = int64(v)
	case int:
		pid = int64(v)
	case int64:
		pid = v
	case json.Number:
		pid, err = v.Int64()
	case string:
		pid, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, apperrors.New(apperrors.CodeInvalidInput, "Invalid PID type - must be a number or string")
	}
	if err != nil {
		return 0, invalidPIDFormat()
	}
	if pid <= 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "PID must be positive: %d", pid)
	}
	return pid, nil
}

func invalidPIDFormat() error {
	return apperrors.New(apperrors.CodeInvalidInput, "Invalid PID format - must be a number")
}

var processFormats = []formatter.ReportFormat{
	formatter.FormatJSON, formatter.FormatXML, formatter.FormatText, formatter.FormatYAML,
}

func reportFormatArg(args map[string]any) (formatter.ReportFormat, error) {
	return formatArg(args, formatter.AllFormats())
}

// formatArg reads "format", defaulting to JSON, and checks it against allowed.
func formatArg(args map[string]any, allowed []formatter.ReportFormat) (formatter.ReportFormat, error) {
	raw, ok := args["format"]
	if !ok || raw == nil {
		return formatter.FormatJSON, nil
	}
	name, isString := raw.(string)
	if !isString {
		name = fmt.Sprint(raw)
	} else if strings.TrimSpace(name) == "" {
		return formatter.FormatJSON, nil
	}

	if f, err := formatter.ParseFormat(name); err == nil && isString && slices.Contains(allowed, f) {
		return f, nil
	}
	return "", apperrors.Wrap(apperrors.CodeUnsupportedFormat,
		fmt.Sprintf("Unsupported format '%s'. Supported formats: %s", name, strings.Join(formatNames(allowed), ", ")),
		formatter.ErrUnsupportedFormat)
}

func reportFormatNames() []string {
	return formatNames(formatter.AllFormats())
}

func processFormatNames() []string {
	return formatNames(processFormats)
}

func formatNames(formats []formatter.ReportFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return names
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func formatProperty(names []string, description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"enum":        names,
		"description": description,
		"default":     formatter.FormatJSON.String(),
	}
}

func pidProperty() map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": "The process ID of the Java process to generate thread dump for",
	}
}
