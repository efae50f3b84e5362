// Package trace owns the process tracer. Every span started through it
// carries the run's symbol and provider attributes.
package trace

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "xau-signal-bot"

// RunInfo identifies what a run is signalling and with which backends.
type RunInfo struct {
	Symbol       string
	Interval     string
	DataProvider string
	LLMProvider  string
	Model        string
}

func (r RunInfo) attributes() []attribute.KeyValue {
	var kv []attribute.KeyValue
	add := func(k, v string) {
		if v != "" {
			kv = append(kv, attribute.String(k, v))
		}
	}
	add("xau.symbol", r.Symbol)
	add("xau.interval", r.Interval)
	add("xau.data_provider", r.DataProvider)
	add("xau.llm_provider", r.LLMProvider)
	add("xau.llm_model", r.Model)
	return kv
}

type settings struct {
	run       RunInfo
	writer    io.Writer
	processor sdktrace.SpanProcessor
	force     bool
}

type Option func(*settings)

// WithRun stamps run identity on the resource and on every span.
func WithRun(r RunInfo) Option {
	return func(s *settings) { s.run = r }
}

// WithWriter redirects exported spans, stderr by default.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.writer = w }
}

// withProcessor replaces the stdout exporter and enables tracing
// regardless of LOG_TRACING_ENABLED.
func withProcessor(p sdktrace.SpanProcessor) Option {
	return func(s *settings) {
		s.processor = p
		s.force = true
	}
}

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
	runAttrs       []attribute.KeyValue
)

// Init installs a stdout span exporter when LOG_TRACING_ENABLED is "true".
// Spans go to stderr so stdout stays reserved for the signal output.
func Init(opts ...Option) error {
	s := settings{writer: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}

	enabled = s.force || getEnv("LOG_TRACING_ENABLED", "false") == "true"
	if !enabled {
		return nil
	}

	processor := s.processor
	if processor == nil {
		exporter, err := stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithWriter(s.writer),
		)
		if err != nil {
			enabled = false
			return err
		}
		processor = sdktrace.NewBatchSpanProcessor(exporter)
	}

	runAttrs = s.run.attributes()
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(append([]attribute.KeyValue{
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		}, runAttrs...)...),
	)
	if err != nil {
		enabled = false
		return err
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = tracerProvider.Tracer(serviceName)
	return nil
}

// Shutdown flushes pending spans. Safe to call when tracing is off.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}
	err := tracerProvider.Shutdown(ctx)
	tracerProvider, tracer, enabled, runAttrs = nil, nil, false, nil
	return err
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	if len(runAttrs) > 0 {
		opts = append([]trace.SpanStartOption{trace.WithAttributes(runAttrs...)}, opts...)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
