// Package analyzer runs the thread-dump pipeline: parse, aggregate, detect
// and synthesize, producing one report per input.
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thread-dump-analysis/internal/advisor"
	"github.com/thread-dump-analysis/internal/detector"
	"github.com/thread-dump-analysis/internal/parser"
	"github.com/thread-dump-analysis/internal/parser/actuator"
	"github.com/thread-dump-analysis/internal/parser/jstack"
	"github.com/thread-dump-analysis/internal/statistics"
	"github.com/thread-dump-analysis/pkg/compression"
	"github.com/thread-dump-analysis/pkg/model"
	"github.com/thread-dump-analysis/pkg/telemetry"
	"github.com/thread-dump-analysis/pkg/utils"
)

// Pipeline stage names, used for spans and timings.
const (
	StageDecode     = "decode"
	StageParse      = "parse"
	StageAggregate  = "aggregate"
	StageDetect     = "detect"
	StageSynthesize = "synthesize"
)

// ThreadDumpAnalyzer turns raw thread dumps into diagnostic reports.
// It holds no mutable state and is safe for concurrent use.
type ThreadDumpAnalyzer struct {
	logger   utils.Logger
	clock    utils.Clock
	registry *parser.Registry
	engine   *detector.Engine
	advisor  *advisor.Advisor
	tracer   trace.Tracer
	newID    func() string
	maxInput int64
}

// Option configures a ThreadDumpAnalyzer.
type Option func(*ThreadDumpAnalyzer)

// WithLogger sets the logger. Nil disables logging.
func WithLogger(logger utils.Logger) Option {
	return func(a *ThreadDumpAnalyzer) { a.logger = utils.OrNull(logger) }
}

// WithClock sets the clock used for report timestamps and stage timings.
func WithClock(clock utils.Clock) Option {
	return func(a *ThreadDumpAnalyzer) { a.clock = clock }
}

// WithRegistry replaces the parser registry used by AnalyzeBytes.
func WithRegistry(registry *parser.Registry) Option {
	return func(a *ThreadDumpAnalyzer) { a.registry = registry }
}

// WithEngine replaces the detector engine.
func WithEngine(engine *detector.Engine) Option {
	return func(a *ThreadDumpAnalyzer) { a.engine = engine }
}

// WithAdvisor replaces the fix advisor.
func WithAdvisor(adv *advisor.Advisor) Option {
	return func(a *ThreadDumpAnalyzer) { a.advisor = adv }
}

// WithIDGenerator overrides report id generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *ThreadDumpAnalyzer) { a.newID = fn }
}

// WithMaxInputBytes caps the decompressed size AnalyzeBytes accepts.
// Zero or less means unbounded.
func WithMaxInputBytes(n int64) Option {
	return func(a *ThreadDumpAnalyzer) { a.maxInput = n }
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *ThreadDumpAnalyzer) { a.tracer = tracer }
}

// DefaultRegistry returns a registry with the jstack and actuator parsers.
func DefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()
	r.Register(jstack.NewParser())
	r.Register(actuator.NewParser())
	return r
}

// New creates an analyzer with default collaborators.
func New(opts ...Option) *ThreadDumpAnalyzer {
	a := &ThreadDumpAnalyzer{
		logger:   &utils.NullLogger{},
		clock:    utils.NewRealClock(),
		registry: DefaultRegistry(),
		engine:   detector.NewEngine(),
		advisor:  advisor.NewAdvisor(),
		tracer:   telemetry.Tracer(),
		newID:    model.NewReportID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses raw jstack text and returns its report. It never panics;
// unexpected faults yield an ERROR report.
func (a *ThreadDumpAnalyzer) Analyze(raw, source string) *model.Report {
	return a.AnalyzeContext(context.Background(), raw, source)
}

// AnalyzeContext is Analyze with tracing spans per stage.
func (a *ThreadDumpAnalyzer) AnalyzeContext(ctx context.Context, raw, source string) (report *model.Report) {
	id := a.newID()
	ctx, span := a.tracer.Start(ctx, "analyzer.Analyze", trace.WithAttributes(
		append(telemetry.ReportAttributes(id, source), telemetry.AttrInputBytes.Int(len(raw)))...,
	))
	defer span.End()
	defer a.recoverInto(span, id, source, &report)

	a.logger.Info("Starting thread dump analysis for source: %s", source)
	timer := utils.NewStageTimer(a.clock)

	var records []model.ThreadRecord
	a.stage(ctx, timer, StageParse, func() {
		records = jstack.ParseText(raw)
	})
	a.logger.Debug("Parsed %d threads", len(records))

	return a.finish(ctx, timer, span, id, source, records)
}

// AnalyzeRecords runs aggregation, detection and synthesis over records that
// came from a structured source.
func (a *ThreadDumpAnalyzer) AnalyzeRecords(records []model.ThreadRecord, source string) *model.Report {
	return a.AnalyzeRecordsContext(context.Background(), records, source)
}

// AnalyzeRecordsContext is AnalyzeRecords with tracing.
func (a *ThreadDumpAnalyzer) AnalyzeRecordsContext(ctx context.Context, records []model.ThreadRecord, source string) (report *model.Report) {
	id := a.newID()
	ctx, span := a.tracer.Start(ctx, "analyzer.AnalyzeRecords", trace.WithAttributes(
		append(telemetry.ReportAttributes(id, source), telemetry.AttrInputRecords.Int(len(records)))...,
	))
	defer span.End()
	defer a.recoverInto(span, id, source, &report)

	a.logger.Info("Starting thread dump analysis for source: %s", source)
	return a.finish(ctx, utils.NewStageTimer(a.clock), span, id, source, records)
}

// AnalyzeBytes decompresses gzip or zstd input, picks a parser by content and
// analyzes the result. Input a structured parser rejects is analyzed as text.
// Input that inflates past the configured cap yields an ERROR report.
func (a *ThreadDumpAnalyzer) AnalyzeBytes(ctx context.Context, data []byte, source string) *model.Report {
	decoded, err := compression.DecodeLimit(data, a.maxInput)
	if err != nil {
		a.logger.Warn("Failed to decode input from %s: %v", source, err)
		return model.NewErrorReport(a.newID(), source, err)
	}

	p, err := a.registry.ForContent(decoded)
	if err != nil || p.Name() == parser.FormatJstack {
		return a.AnalyzeContext(ctx, string(decoded), source)
	}

	records, err := p.Parse(ctx, bytes.NewReader(decoded))
	if err != nil {
		a.logger.Debug("Parser %s rejected input from %s, falling back to text: %v", p.Name(), source, err)
		return a.AnalyzeContext(ctx, string(decoded), source)
	}
	return a.AnalyzeRecordsContext(ctx, records, source)
}

func (a *ThreadDumpAnalyzer) finish(ctx context.Context, timer *utils.StageTimer, span trace.Span,
	id, source string, records []model.ThreadRecord) *model.Report {
	var stats *model.Statistics
	a.stage(ctx, timer, StageAggregate, func() {
		stats = statistics.Aggregate(records)
	})

	var findings []model.Finding
	a.stage(ctx, timer, StageDetect, func() {
		findings = a.engine.Detect(records, stats)
	})
	a.logger.Debug("Found %d diagnostic findings", len(findings))

	var fixes []string
	var summary string
	a.stage(ctx, timer, StageSynthesize, func() {
		fixes = a.advisor.SuggestedFixes(stats, findings)
		summary = advisor.Summary(stats, findings)
	})

	report := &model.Report{
		ID:             id,
		Timestamp:      a.clock.Now(),
		Source:         source,
		Statistics:     stats,
		Findings:       findings,
		SuggestedFixes: fixes,
		Status:         model.ReportStatusCompleted,
		Summary:        summary,
	}

	span.SetAttributes(
		telemetry.AttrThreadCount.Int(stats.TotalThreads),
		telemetry.AttrFindingCount.Int(len(findings)),
	)
	a.logger.WithField("report_id", id).Debug("Stage timings: %s", timer)
	a.logger.Info("Thread dump analysis completed. Found %d issues.", len(findings))
	return report
}

func (a *ThreadDumpAnalyzer) stage(ctx context.Context, timer *utils.StageTimer, name string, fn func()) {
	_, span := a.tracer.Start(ctx, name)
	defer span.End()
	defer timer.Track(name)()
	fn()
}

func (a *ThreadDumpAnalyzer) recoverInto(span trace.Span, id, source string, report **model.Report) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
	a.logger.Error("Error analyzing thread dump from %s: %v\n%s", source, r, debug.Stack())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	*report = model.NewErrorReport(id, source, fmt.Errorf("%v", r))
}
