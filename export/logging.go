// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package export

import (
	"context"

	"github.com/simbricks/simtrace/internal/log"
	"github.com/simbricks/simtrace/span"
	"github.com/simbricks/simtrace/tracer"
)

// spanLogger decorates a tracer.Exporter with a log line per exported
// span using Span.String() (SPEC_FULL.md §10.3 "ported as Span.String()
// ... used by simtrace run --print-spans").
type spanLogger struct {
	next tracer.Exporter
}

// WithSpanLogging wraps next so every exported span is also logged at
// Info level via its String() form, for --print-spans.
func WithSpanLogging(next tracer.Exporter) tracer.Exporter {
	return &spanLogger{next: next}
}

func (l *spanLogger) ExportSpan(ctx context.Context, s span.Span) error {
	log.Info("%s", s.String())
	return l.next.ExportSpan(ctx, s)
}

func (l *spanLogger) Shutdown(ctx context.Context) error {
	return l.next.Shutdown(ctx)
}
