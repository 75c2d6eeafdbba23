// Package telemetry records OpenTelemetry spans for compilation and shape
// generation.
package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var tracerName = "github.com/EngineHub/WorldEdit-sub015/internal/telemetry"

var (
	sourceKey   = attribute.Key("wexpr.source")
	runIDKey    = attribute.Key("wexpr.run_id")
	regionKey   = attribute.Key("wexpr.region")
	volumeKey   = attribute.Key("wexpr.region.volume")
	workersKey  = attribute.Key("wexpr.workers")
	hollowKey   = attribute.Key("wexpr.hollow")
	timeoutKey  = attribute.Key("wexpr.timeout_ms")
	voxelsKey   = attribute.Key("wexpr.voxels")
	timedOutKey = attribute.Key("wexpr.timed_out")
	positionKey = attribute.Key("wexpr.error.position")
)

// maxSourceLen bounds the expression text stored on a span.
const maxSourceLen = 256

type Instrumenter interface {
	StartCompile(ctx context.Context, src string) (context.Context, Span)
	StartGenerate(ctx context.Context, info GenerateStart) (context.Context, Span)
	Shutdown(ctx context.Context) error
}

// GenerateStart describes a generation run.
type GenerateStart struct {
	Source  string
	Region  string
	Volume  int
	Workers int
	Hollow  bool
	Timeout time.Duration
}

// Result is recorded when a span ends. ErrPos is the source offset of a
// compile or evaluation error, or -1.
type Result struct {
	Err      error
	ErrPos   int
	Voxels   int
	TimedOut int
}

type Span interface {
	End(result Result)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

// New returns a no-op instrumenter unless cfg names an endpoint or an
// exporter or processor is supplied.
func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) StartCompile(ctx context.Context, src string) (context.Context, Span) {
	ctx, span := m.tracer.Start(
		ctx,
		"wexpr.compile",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(sourceKey.String(truncate(src))),
	)
	return ctx, &opSpan{span: span}
}

func (m *manager) StartGenerate(ctx context.Context, info GenerateStart) (context.Context, Span) {
	attrs := []attribute.KeyValue{
		runIDKey.String(uuid.NewString()),
		sourceKey.String(truncate(info.Source)),
		workersKey.Int(info.Workers),
		hollowKey.Bool(info.Hollow),
	}
	if info.Region != "" {
		attrs = append(attrs, regionKey.String(info.Region))
	}
	if info.Volume > 0 {
		attrs = append(attrs, volumeKey.Int(info.Volume))
	}
	if info.Timeout > 0 {
		attrs = append(attrs, timeoutKey.Int64(info.Timeout.Milliseconds()))
	}
	ctx, span := m.tracer.Start(
		ctx,
		"wexpr.generate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, &opSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type opSpan struct {
	span trace.Span
}

func (s *opSpan) End(result Result) {
	if s == nil || s.span == nil {
		return
	}
	if result.Voxels > 0 {
		s.span.SetAttributes(voxelsKey.Int(result.Voxels))
	}
	if result.TimedOut > 0 {
		s.span.SetAttributes(timedOutKey.Int(result.TimedOut))
	}

	switch {
	case result.Err != nil:
		if result.ErrPos >= 0 {
			s.span.SetAttributes(positionKey.Int(result.ErrPos))
		}
		s.span.RecordError(result.Err)
		s.span.SetStatus(codes.Error, result.Err.Error())
	case result.TimedOut > 0:
		s.span.SetStatus(codes.Error, "evaluation timed out")
	default:
		s.span.SetStatus(codes.Ok, "OK")
	}
	s.span.End()
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) StartCompile(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) StartGenerate(ctx context.Context, _ GenerateStart) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(Result) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if strings.TrimSpace(name) == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func truncate(src string) string {
	if len(src) <= maxSourceLen {
		return src
	}
	return src[:maxSourceLen] + "..."
}
