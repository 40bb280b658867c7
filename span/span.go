// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package span implements the span model (spec.md §3 "Span (C2)") and the
// per-kind finite-state machines of spec.md §4.2. A Span is a tagged
// variant: Kind together with the concrete Go type always agree, so
// spanners never downcast with a failing type assertion — they switch on
// Kind and hold the already-typed value returned by the matching
// constructor (mirroring the original's dynamic-dispatch span hierarchy
// collapsed into Go's exhaustive switch idiom, spec.md §9).
package span

import (
	"fmt"
	"sync"

	"github.com/simbricks/simtrace/ddtrace/ext"
	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/internal/ids"
)

// Kind discriminates a Span's concrete type.
type Kind int

const (
	KindHostCall Kind = iota
	KindHostMmio
	KindHostDma
	KindHostMsix
	KindHostInt
	KindHostPci
	KindNicMmio
	KindNicDma
	KindNicEth
	KindNicMsix
	KindNetDevice
	KindGenericSingle
)

func (k Kind) String() string {
	switch k {
	case KindHostCall:
		return ext.KindHostCall
	case KindHostMmio:
		return ext.KindHostMmio
	case KindHostDma:
		return ext.KindHostDma
	case KindHostMsix:
		return ext.KindHostMsix
	case KindHostInt:
		return ext.KindHostInt
	case KindHostPci:
		return ext.KindHostPci
	case KindNicMmio:
		return ext.KindNicMmio
	case KindNicDma:
		return ext.KindNicDma
	case KindNicEth:
		return ext.KindNicEth
	case KindNicMsix:
		return ext.KindNicMsix
	case KindNetDevice:
		return ext.KindNetDevice
	default:
		return ext.KindGenericSingle
	}
}

// TraceContext (C3) links a span to its parent and its trace. It is
// immutable after first assignment except through an explicit re-parent
// (tracer.AddParentLazily), which is the only place SetContext is called
// on an already-registered span.
type TraceContext struct {
	TraceID       [16]byte
	ParentSpanID  uint64
	ParentStartTS uint64
	HasParent     bool
}

// RootContext returns a trace-starting context with a fresh trace id.
func RootContext() TraceContext {
	return TraceContext{TraceID: ids.NewTraceID()}
}

// ChildContext returns a context for a span whose parent is p, inheriting
// p's trace id.
func ChildContext(parentTraceID [16]byte, parentSpanID, parentStartTS uint64) TraceContext {
	return TraceContext{
		TraceID:       parentTraceID,
		ParentSpanID:  parentSpanID,
		ParentStartTS: parentStartTS,
		HasParent:     true,
	}
}

// Span is implemented by every span kind. The state-machine transition
// (spec.md §4.2) lives on each concrete type as an Accept* method taking
// whatever classification data that kind's transition table needs (e.g.
// HostCallSpan.AcceptCall takes an isSyscallEntry flag) — the spanner that
// constructed the span already holds the concrete type and the config
// lookups needed to classify the next event, so no blind downcast of an
// opaque Span is ever required. Freeze marks the span done: no further
// events may be appended and its timestamps are fixed (spec.md §3
// invariant).
type Span interface {
	ID() uint64
	Kind() Kind
	SourceID() uint64
	Events() []event.Event
	Pending() bool
	Context() TraceContext
	SetContext(TraceContext)
	StartTS() uint64
	EndTS() uint64
	ParserID() uint64
	Freeze()
	MarkRelevant()
	IsRelevant() bool
	String() string
}

// Base holds the state and invariants common to every span kind
// (spec.md §3 "Span (C2)"): a unique id, the originating simulator,
// the append-only event list, the pending flag, and the TraceContext.
// Base does not implement Accept/Complete; concrete kinds embed it and
// add their own state machine on top.
type Base struct {
	mu       sync.Mutex
	id       uint64
	sourceID uint64
	kind     Kind
	events   []event.Event
	pending  bool
	ctx      TraceContext
	relevant bool
}

func newBase(kind Kind, sourceID uint64, first event.Event) Base {
	return Base{
		id:       ids.NextSpanID(),
		sourceID: sourceID,
		kind:     kind,
		events:   []event.Event{first},
		pending:  true,
	}
}

func (b *Base) ID() uint64          { return b.id }
func (b *Base) Kind() Kind          { return b.kind }
func (b *Base) SourceID() uint64    { return b.sourceID }
func (b *Base) Pending() bool       { b.mu.Lock(); defer b.mu.Unlock(); return b.pending }
func (b *Base) Context() TraceContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}
func (b *Base) SetContext(c TraceContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = c
}

func (b *Base) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *Base) ParserID() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[0].ParserID
}

func (b *Base) StartTS() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[0].Timestamp
}

func (b *Base) EndTS() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[len(b.events)-1].Timestamp
}

func (b *Base) MarkRelevant()  { b.mu.Lock(); defer b.mu.Unlock(); b.relevant = true }
func (b *Base) IsRelevant() bool { b.mu.Lock(); defer b.mu.Unlock(); return b.relevant }

func (b *Base) Freeze() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = false
}

// append enforces the parser_id invariant (spec.md §3) and refuses once
// frozen; concrete kinds call this after their own transition check
// passes. Returns false (without mutating) if the event's parser_id
// disagrees with the span's first event.
func (b *Base) append(e event.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending {
		return false
	}
	if e.ParserID != b.events[0].ParserID {
		return false
	}
	b.events = append(b.events, e)
	return true
}

func (b *Base) stringHeader(kindName string) string {
	return fmt.Sprintf("Span(%s, id=%d, source=%d, pending=%v, events=%d)",
		kindName, b.id, b.sourceID, b.pending, len(b.events))
}
