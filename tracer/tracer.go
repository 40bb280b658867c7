// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package tracer implements the process-wide trace/span registry (spec.md
// §4.6, C6): it assigns TraceContexts to newly started spans, enforces
// the parent-before-child export invariant, and hands completed spans off
// to a bounded background executor instead of blocking the spanner that
// finished them.
package tracer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/simbricks/simtrace/internal/log"
	"github.com/simbricks/simtrace/span"
)

// Exporter is the abstract sink the tracer submits completed spans to
// (spec.md §6 "Exporter back-end"). Implemented by the export package.
type Exporter interface {
	ExportSpan(ctx context.Context, s span.Span) error
	Shutdown(ctx context.Context) error
}

type traceEntry struct {
	spans map[uint64]span.Span
}

// Tracer is safe for concurrent use by every spanner. All mutating state
// is guarded by a single mutex (spec.md §4.6 "Concurrency"); exported
// methods take it at most once per call, matching the re-entrant-lock
// semantics the spec describes without needing a custom lock type
// (see DESIGN.md).
type Tracer struct {
	mu        sync.Mutex
	traces    map[[16]byte]*traceEntry
	spanTrace map[uint64][16]byte
	exported  map[uint64]struct{}
	waiting   map[uint64][]span.Span

	exporter Exporter
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	// doneCh is closed once a submitted span's export has returned.
	doneCh map[uint64]chan struct{}
}

// New returns a Tracer that submits completed spans to exporter, running
// at most maxBackgroundThreads exports concurrently (spec.md §6 Config
// surface "max_background_threads").
func New(exporter Exporter, maxBackgroundThreads int64) *Tracer {
	if maxBackgroundThreads < 1 {
		maxBackgroundThreads = 1
	}
	return &Tracer{
		traces:    map[[16]byte]*traceEntry{},
		spanTrace: map[uint64][16]byte{},
		exported:  map[uint64]struct{}{},
		waiting:   map[uint64][]span.Span{},
		exporter:  exporter,
		sem:       semaphore.NewWeighted(maxBackgroundThreads),
	}
}

func (t *Tracer) traceFor(id [16]byte) *traceEntry {
	te, ok := t.traces[id]
	if !ok {
		te = &traceEntry{spans: map[uint64]span.Span{}}
		t.traces[id] = te
	}
	return te
}

func (t *Tracer) register(s span.Span, ctx span.TraceContext) span.Span {
	s.SetContext(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.traceFor(ctx.TraceID).spans[s.ID()] = s
	t.spanTrace[s.ID()] = ctx.TraceID
	return s
}

// StartSpan creates s as a trace-starting span: a fresh trace, no
// parent (spec.md §4.6 "StartSpan<S>").
func (t *Tracer) StartSpan(s span.Span) span.Span {
	return t.register(s, span.RootContext())
}

// StartSpanByParent creates s as a child of parent, inheriting parent's
// trace (spec.md §4.6 "StartSpanByParent<S>").
func (t *Tracer) StartSpanByParent(s span.Span, parent span.Span) span.Span {
	pctx := parent.Context()
	return t.register(s, span.ChildContext(pctx.TraceID, parent.ID(), parent.StartTS()))
}

// StartSpanByParentPassOnContext creates s using an already-built
// TraceContext, e.g. one carried by a Context popped off a queue
// (spec.md §4.6 "StartSpanByParentPassOnContext<S>").
func (t *Tracer) StartSpanByParentPassOnContext(s span.Span, ctx span.TraceContext) span.Span {
	return t.register(s, ctx)
}

// MarkSpanAsDone freezes s and releases it toward the exporter,
// respecting the parent-before-child invariant (spec.md §4.6). Marking
// an already-exported span done again is a no-op (spec.md §8
// idempotence).
func (t *Tracer) MarkSpanAsDone(s span.Span) {
	s.Freeze()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.release(s)
}

// release assumes t.mu is held. It submits s if its parent is already
// exported (or it has none), then recursively releases every span that
// was waiting on s.
func (t *Tracer) release(s span.Span) {
	if _, done := t.exported[s.ID()]; done {
		return
	}
	ctx := s.Context()
	if ctx.HasParent {
		if _, parentDone := t.exported[ctx.ParentSpanID]; !parentDone {
			t.waiting[ctx.ParentSpanID] = append(t.waiting[ctx.ParentSpanID], s)
			return
		}
	}
	t.submit(s)
	children := t.waiting[s.ID()]
	delete(t.waiting, s.ID())
	for _, c := range children {
		t.release(c)
	}
}

// submit assumes t.mu is held. It marks s exported and hands it to the
// background executor; MarkSpanAsDone never blocks on the export
// transport (spec.md §4.6 "Concurrency"). The background export of a
// child waits until its parent's export has returned.
func (t *Tracer) submit(s span.Span) {
	t.exported[s.ID()] = struct{}{}
	if t.doneCh == nil {
		t.doneCh = map[uint64]chan struct{}{}
	}
	done := make(chan struct{})
	t.doneCh[s.ID()] = done
	var parentDone chan struct{}
	if ctx := s.Context(); ctx.HasParent {
		parentDone = t.doneCh[ctx.ParentSpanID]
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer close(done)
		if parentDone != nil {
			<-parentDone
		}
		ctx := context.Background()
		if err := t.sem.Acquire(ctx, 1); err != nil {
			log.Error("acquiring export slot for span %d: %v", s.ID(), err)
			return
		}
		defer t.sem.Release(1)
		if err := t.exporter.ExportSpan(ctx, s); err != nil {
			// spec.md §7 "Exporter back-end failure": log, discard, continue.
			log.Error("exporting span %d: %v", s.ID(), err)
		}
	}()
}

// AddParentLazily merges child's current trace into newParent's trace
// (spec.md §4.6). Every span previously sharing child's trace adopts
// newParent's trace id; the old trace id is discarded. child itself is
// re-parented onto newParent.
func (t *Tracer) AddParentLazily(child span.Span, newParent span.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	oldTraceID, ok := t.spanTrace[child.ID()]
	if !ok {
		return
	}
	oldTrace := t.traces[oldTraceID]
	newTraceID := newParent.Context().TraceID
	newTrace := t.traceFor(newTraceID)

	newCtx := span.ChildContext(newTraceID, newParent.ID(), newParent.StartTS())
	for id, s := range oldTrace.spans {
		if id == child.ID() {
			s.SetContext(newCtx)
		} else {
			c := s.Context()
			c.TraceID = newTraceID
			s.SetContext(c)
		}
		newTrace.spans[id] = s
		t.spanTrace[id] = newTraceID
	}
	if oldTraceID != newTraceID {
		delete(t.traces, oldTraceID)
	}
}

// Shutdown waits for every in-flight export to finish, then asks the
// exporter to flush and tear down (spec.md §5 "the tracer then drains
// the exporter background queue and flushes").
func (t *Tracer) Shutdown(ctx context.Context) error {
	t.wg.Wait()
	return t.exporter.Shutdown(ctx)
}
