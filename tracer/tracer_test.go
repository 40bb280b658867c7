// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package tracer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/span"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingExporter struct {
	mu    sync.Mutex
	order []uint64
	fail  map[uint64]bool
}

func newRecordingExporter() *recordingExporter {
	return &recordingExporter{fail: map[uint64]bool{}}
}

func (r *recordingExporter) ExportSpan(ctx context.Context, s span.Span) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[s.ID()] {
		return assert.AnError
	}
	r.order = append(r.order, s.ID())
	return nil
}

func (r *recordingExporter) Shutdown(ctx context.Context) error { return nil }

func (r *recordingExporter) exportedIDs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, len(r.order))
	copy(out, r.order)
	return out
}

func (r *recordingExporter) contains(id uint64) bool {
	for _, got := range r.exportedIDs() {
		if got == id {
			return true
		}
	}
	return false
}

func gen(ts uint64) *span.GenericSingleSpan {
	return span.NewGenericSingleSpan(1, event.Event{Timestamp: ts, ParserID: 1})
}

func TestParentBeforeChildExport(t *testing.T) {
	exp := newRecordingExporter()
	tr := New(exp, 4)

	parent := tr.StartSpan(gen(100))
	child := tr.StartSpanByParent(gen(200), parent)

	// Mark the child done first: it must wait for the parent.
	tr.MarkSpanAsDone(child)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, exp.contains(child.ID()))

	tr.MarkSpanAsDone(parent)
	require.Eventually(t, func() bool {
		return exp.contains(parent.ID()) && exp.contains(child.ID())
	}, time.Second, 5*time.Millisecond)

	order := exp.exportedIDs()
	require.Len(t, order, 2)
	assert.Equal(t, parent.ID(), order[0])
	assert.Equal(t, child.ID(), order[1])

	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestMarkAlreadyExportedIsNoOp(t *testing.T) {
	exp := newRecordingExporter()
	tr := New(exp, 4)
	s := tr.StartSpan(gen(1))
	tr.MarkSpanAsDone(s)
	require.Eventually(t, func() bool { return exp.contains(s.ID()) }, time.Second, 5*time.Millisecond)

	tr.MarkSpanAsDone(s) // no-op, must not export twice
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, exp.exportedIDs(), 1)
	assert.NoError(t, tr.Shutdown(context.Background()))
}

// S6 — lazy re-parenting (spec.md §8).
func TestAddParentLazilyMergesTraces(t *testing.T) {
	exp := newRecordingExporter()
	tr := New(exp, 4)

	t0Root := tr.StartSpan(gen(10))
	t1Root := tr.StartSpan(gen(20))
	t1Child := tr.StartSpanByParent(gen(30), t1Root)

	oldTraceID := t1Root.Context().TraceID
	assert.NotEqual(t, t0Root.Context().TraceID, oldTraceID)

	tr.AddParentLazily(t1Root, t0Root)

	assert.Equal(t, t0Root.Context().TraceID, t1Root.Context().TraceID)
	assert.Equal(t, t0Root.Context().TraceID, t1Child.Context().TraceID)
	assert.NotEqual(t, oldTraceID, t1Root.Context().TraceID)

	tr.MarkSpanAsDone(t0Root)
	tr.MarkSpanAsDone(t1Root)
	tr.MarkSpanAsDone(t1Child)
	require.Eventually(t, func() bool {
		return exp.contains(t0Root.ID()) && exp.contains(t1Root.ID()) && exp.contains(t1Child.ID())
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestExportFailureDoesNotBlockOthers(t *testing.T) {
	exp := newRecordingExporter()
	tr := New(exp, 4)
	bad := tr.StartSpan(gen(1))
	exp.mu.Lock()
	exp.fail[bad.ID()] = true
	exp.mu.Unlock()

	good := tr.StartSpan(gen(2))
	tr.MarkSpanAsDone(bad)
	tr.MarkSpanAsDone(good)

	require.Eventually(t, func() bool { return exp.contains(good.ID()) }, time.Second, 5*time.Millisecond)
	assert.False(t, exp.contains(bad.ID()))
	assert.NoError(t, tr.Shutdown(context.Background()))
}
