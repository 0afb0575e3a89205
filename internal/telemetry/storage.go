package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/rwallet/internal/storage"
)

const storageScopeName = "github.com/steveyegge/rwallet/storage"

// InstrumentedStore wraps storage.Store with OTel tracing and metrics.
// Every method gets a span and is counted in rw.storage.* metrics. Use
// WrapStore to create one; it returns the original store unchanged when
// telemetry is disabled.
type InstrumentedStore struct {
	inner  storage.Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ storage.Store = (*InstrumentedStore)(nil)

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStore(s storage.Store) storage.Store {
	if !Enabled() {
		return s
	}
	return newInstrumentedStore(s)
}

func newInstrumentedStore(s storage.Store) *InstrumentedStore {
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("rw.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("rw.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("rw.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// Unwrap returns the decorated store, for callers that need backend-specific
// methods such as dolt's Log.
func (s *InstrumentedStore) Unwrap() storage.Store {
	return s.inner
}

// op starts a span and records a metric for the named storage operation.
// The wallet operation tagged on ctx, if any, is added as rw.op.
func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	if op := storage.OpName(ctx); op != "" {
		all = append(all, attribute.String("rw.op", op))
	}
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now(), all
}

// done ends the span, records duration and optional error.
// storage.ErrNotFound is an expected outcome and is not counted as an error.
func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil && !isNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedStore) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	ctx, span, t, attrs := s.op(ctx, "Get", attribute.String("rw.key", string(key)))
	v, err := s.inner.Get(ctx, key)
	s.done(ctx, span, t, err, attrs)
	return v, err
}

func (s *InstrumentedStore) Has(ctx context.Context, key storage.Key) (bool, error) {
	ctx, span, t, attrs := s.op(ctx, "Has", attribute.String("rw.key", string(key)))
	v, err := s.inner.Has(ctx, key)
	s.done(ctx, span, t, err, attrs)
	return v, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key storage.Key, value []byte) error {
	ctx, span, t, attrs := s.op(ctx, "Set",
		attribute.String("rw.key", string(key)),
		attribute.Int("rw.value.bytes", len(value)),
	)
	err := s.inner.Set(ctx, key, value)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key storage.Key) error {
	ctx, span, t, attrs := s.op(ctx, "Delete", attribute.String("rw.key", string(key)))
	err := s.inner.Delete(ctx, key)
	s.done(ctx, span, t, err, attrs)
	return err
}

// RunInTransaction traces the transaction as a whole; reads and writes on tx
// are not instrumented individually.
func (s *InstrumentedStore) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	ctx, span, t, attrs := s.op(ctx, "RunInTransaction")
	err := s.inner.RunInTransaction(ctx, fn)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
