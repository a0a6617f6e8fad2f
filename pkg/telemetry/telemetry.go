// Package telemetry traces thread-dump analyses, report storage and MCP tool
// calls with OpenTelemetry, configured from the standard OTEL_* environment.
//
// Tracing is off unless OTEL_ENABLED=true. When off, Tracer still returns a
// no-op tracer so instrumented code needs no conditionals.
//
//	shutdown, err := telemetry.Init(ctx)
//	if err != nil { ... }
//	defer shutdown(ctx)
//
//	ctx, span := telemetry.Tracer().Start(ctx, "analyzer.Analyze",
//		trace.WithAttributes(telemetry.ReportAttributes(id, source)...))
//	defer span.End()
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans produced by the analyzer.
const InstrumentationName = "github.com/thread-dump-analysis"

// Span attribute keys for thread-dump analysis.
const (
	AttrReportID     = attribute.Key("threaddump.report.id")
	AttrReportSource = attribute.Key("threaddump.report.source")
	AttrInputBytes   = attribute.Key("threaddump.input.bytes")
	AttrInputRecords = attribute.Key("threaddump.input.records")
	AttrThreadCount  = attribute.Key("threaddump.threads")
	AttrFindingCount = attribute.Key("threaddump.findings")
)

// ReportAttributes identifies the report a span works on.
func ReportAttributes(reportID, source string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrReportID.String(reportID)}
	if source != "" {
		attrs = append(attrs, AttrReportSource.String(source))
	}
	return attrs
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global TracerProvider when tracing is enabled.
func Init(ctx context.Context) (ShutdownFunc, error) {
	cfg := loadConfig()
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Enabled reports whether OTEL_ENABLED=true.
func Enabled() bool {
	return loadConfig().Enabled
}

// GetConfig returns the cached telemetry configuration.
func GetConfig() *Config {
	return loadConfig()
}

// Tracer returns the analyzer tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}
