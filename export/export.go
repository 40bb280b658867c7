// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package export implements the span exporter (spec.md §4.7, C8): it
// translates a completed span into an OpenTelemetry span and submits it
// through an sdktrace.TracerProvider, which itself batches and forwards
// to the configured OTLP collector. It is the tracer package's Exporter.
package export

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/simbricks/simtrace/internal/metrics"
	"github.com/simbricks/simtrace/span"
)

// ErrMissingParentContext is returned when a span claims a parent whose
// OpenTelemetry context was never recorded — a violation of the
// parent-before-child export invariant (spec.md §4.7 "Failure
// semantics"), which should be impossible if the tracer package upholds
// its contract.
var ErrMissingParentContext = errors.New("export: missing parent span context")

// Exporter adapts a span.Span to OpenTelemetry and submits it via an
// sdktrace.TracerProvider. It is safe for concurrent use: the tracer's
// background executor may call ExportSpan from several goroutines at
// once (spec.md §5 "max_background_threads").
type Exporter struct {
	tracer  oteltrace.Tracer
	tp      *sdktrace.TracerProvider
	epoch   time.Time
	metrics *metrics.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	contexts map[uint64]oteltrace.SpanContext
}

// New wraps an already-configured TracerProvider (see otlp.go for the
// concrete OTLP/gRPC construction). epoch is the fixed offset captured
// at start-up that raw event timestamps (nanoseconds since trace epoch)
// are added to (spec.md §4.7). rateLimit caps span submissions per
// second from the background executor; 0 disables the limiter.
func New(tp *sdktrace.TracerProvider, tracerName string, epoch time.Time, m *metrics.Client, rateLimit float64) *Exporter {
	var lim *rate.Limiter
	if rateLimit > 0 {
		lim = rate.NewLimiter(rate.Limit(rateLimit), int(rateLimit)+1)
	}
	return &Exporter{
		tracer:   tp.Tracer(tracerName),
		tp:       tp,
		epoch:    epoch,
		metrics:  m,
		limiter:  lim,
		contexts: map[uint64]oteltrace.SpanContext{},
	}
}

func (e *Exporter) toTime(ts uint64) time.Time {
	return e.epoch.Add(time.Duration(ts))
}

// rootSpanID deterministically derives an 8-byte OpenTelemetry span id
// from our own span id, used only to seed a remote parent context for a
// trace-starting span so the OpenTelemetry SDK assigns it the domain's
// trace id instead of minting its own (spec.md §4.7: the exported trace
// id must match the one the tracer package assigned).
func rootSpanID(id uint64) oteltrace.SpanID {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return oteltrace.SpanID(b)
}

// ExportSpan implements tracer.Exporter.
func (e *Exporter) ExportSpan(ctx context.Context, s span.Span) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("span %d: rate limiter: %w", s.ID(), err)
		}
	}

	sctx := s.Context()

	var remote oteltrace.SpanContext
	if sctx.HasParent {
		e.mu.Lock()
		pc, ok := e.contexts[sctx.ParentSpanID]
		e.mu.Unlock()
		if !ok {
			return fmt.Errorf("span %d, parent %d: %w", s.ID(), sctx.ParentSpanID, ErrMissingParentContext)
		}
		remote = pc
	} else {
		remote = oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
			TraceID:    oteltrace.TraceID(sctx.TraceID),
			SpanID:     rootSpanID(s.ID()),
			TraceFlags: oteltrace.FlagsSampled,
			Remote:     true,
		})
	}
	ctx = oteltrace.ContextWithRemoteSpanContext(ctx, remote)

	_, otelSpan := e.tracer.Start(ctx, s.Kind().String(), oteltrace.WithTimestamp(e.toTime(s.StartTS())))
	otelSpan.SetAttributes(spanAttributes(s)...)
	for _, ev := range s.Events() {
		otelSpan.AddEvent(ev.Kind.String(),
			oteltrace.WithTimestamp(e.toTime(ev.Timestamp)),
			oteltrace.WithAttributes(eventAttributes(ev)...))
	}
	otelSpan.End(oteltrace.WithTimestamp(e.toTime(s.EndTS())))

	e.mu.Lock()
	e.contexts[s.ID()] = otelSpan.SpanContext()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SpanExported(s.Kind().String())
	}
	return nil
}

// Shutdown flushes and tears down the underlying TracerProvider
// synchronously (spec.md §4.7 "on shutdown the exporter flushes
// synchronously").
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.tp.Shutdown(ctx)
}
