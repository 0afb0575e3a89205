// Package telemetry provides OpenTelemetry integration for rw.
//
// Telemetry is disabled by default (zero runtime overhead when off).
//
// # Configuration
//
//	RW_OTEL_ENABLED=true                    enable telemetry (default: off)
//	RW_OTEL_STDOUT=true                     write spans/metrics to stdout (dev mode)
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT=... OTLP/HTTP metrics endpoint (e.g. localhost:4318)
//	OTEL_EXPORTER_OTLP_ENDPOINT=...         fallback OTLP endpoint
//
// The same settings can be supplied from config (telemetry.enabled,
// telemetry.stdout, telemetry.otlp-endpoint) through Init options.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const instrumentationScope = "github.com/steveyegge/rwallet"

var (
	enabled     atomic.Bool
	shutdownMu  sync.Mutex
	shutdownFns []func(context.Context) error
)

// Option adjusts Init beyond what the environment provides.
type Option func(*settings)

type settings struct {
	enabled  bool
	stdout   bool
	endpoint string
}

// WithEnabled turns telemetry on even when RW_OTEL_ENABLED is unset.
func WithEnabled(on bool) Option {
	return func(s *settings) { s.enabled = s.enabled || on }
}

// WithStdout adds the stdout exporters.
func WithStdout(on bool) Option {
	return func(s *settings) { s.stdout = s.stdout || on }
}

// WithOTLPEndpoint sets the OTLP/HTTP metrics endpoint when the environment
// does not name one.
func WithOTLPEndpoint(endpoint string) Option {
	return func(s *settings) {
		if s.endpoint == "" {
			s.endpoint = endpoint
		}
	}
}

func envSettings() settings {
	return settings{
		enabled: os.Getenv("RW_OTEL_ENABLED") == "true",
		stdout:  os.Getenv("RW_OTEL_STDOUT") == "true",
		endpoint: firstNonEmpty(
			os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"),
			os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		),
	}
}

// Enabled reports whether Init installed real providers.
func Enabled() bool {
	return enabled.Load()
}

// Init configures OTel providers. When telemetry is not enabled this
// installs no-op providers and returns immediately (zero overhead path).
func Init(ctx context.Context, serviceName, version string, opts ...Option) error {
	s := envSettings()
	for _, o := range opts {
		o(&s)
	}
	if !s.enabled {
		enabled.Store(false)
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := buildTraceProvider(res)
	if err != nil {
		return fmt.Errorf("telemetry: trace provider: %w", err)
	}
	mp, err := buildMetricProvider(ctx, res, s)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: metric provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	shutdownMu.Lock()
	shutdownFns = append(shutdownFns, tp.Shutdown, mp.Shutdown)
	shutdownMu.Unlock()
	enabled.Store(true)
	return nil
}

// Spans only go to stdout; there is no OTLP trace exporter.
func buildTraceProvider(res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
	), nil
}

func buildMetricProvider(ctx context.Context, res *resource.Resource, s settings) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	// Default to stdout when enabled but no exporter is configured.
	if s.stdout || s.endpoint == "" {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second)),
		))
	}

	if s.endpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, s.endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)),
		))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes all spans/metrics and shuts down the providers in
// parallel. Should be deferred in PersistentPostRun with a short-lived context.
func Shutdown(ctx context.Context) error {
	shutdownMu.Lock()
	fns := shutdownFns
	shutdownFns = nil
	shutdownMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error { return fn(gctx) })
	}
	enabled.Store(false)
	return g.Wait()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
