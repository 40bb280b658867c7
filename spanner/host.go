// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package spanner implements the three per-simulator state machines
// (spec.md §4.3-§4.5, C7) that turn an event stream into spans and
// exchange causal hand-offs through the context queues (pipeline.Queues).
package spanner

import (
	"github.com/simbricks/simtrace/config"
	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/internal/log"
	"github.com/simbricks/simtrace/internal/metrics"
	"github.com/simbricks/simtrace/pipeline"
	"github.com/simbricks/simtrace/span"
	"github.com/simbricks/simtrace/tracer"
)

// HostSpanner consumes host events (spec.md §4.3). It holds one pending
// call, interrupt, MSI-X, and PCI span, plus lists of concurrent MMIOs
// and DMAs — the same "one of each kind, several MMIOs/DMAs in flight"
// shape the spec calls out.
type HostSpanner struct {
	cfg      *config.Config
	tr       *tracer.Tracer
	queues   *pipeline.Queues
	sourceID uint64

	call *span.HostCallSpan
	// pciJustClosed mirrors cfg.IsPciWrite(current call's func), refreshed
	// on every call-continuation event (spec.md §4.3 MMio rule's "no PCI
	// configuration write occurred immediately before").
	pciJustClosed bool
	intSpan       *span.HostIntSpan
	msixSpan      *span.HostMsixSpan
	pciSpan       *span.HostPciSpan
	mmios         []*span.HostMmioSpan
	dmas          []*span.HostDmaSpan

	// pendingMsix/pendingDma stash a Context popped off nic→host whose
	// expectation tag didn't match what the caller currently wanted; the
	// spanner is the sole consumer of that queue, so it is safe to hold
	// the mismatched entry for the other handler instead of requeueing.
	pendingMsix []pipeline.Context
	pendingDma  []pipeline.Context

	metrics *metrics.Client
}

func NewHostSpanner(cfg *config.Config, tr *tracer.Tracer, queues *pipeline.Queues, sourceID uint64) *HostSpanner {
	return &HostSpanner{cfg: cfg, tr: tr, queues: queues, sourceID: sourceID}
}

// SetMetrics wires the pipeline observability client (SPEC_FULL.md
// §10.2). Optional: a nil client (the default) makes every metrics call
// a no-op.
func (h *HostSpanner) SetMetrics(m *metrics.Client) { h.metrics = m }

// Run consumes in until it closes or is poisoned, then finalizes any
// still-pending spans best-effort (spec.md §5 "Cancellation / shutdown").
func (h *HostSpanner) Run(in *pipeline.Channel[event.Event]) {
	for {
		e, ok := in.Pop()
		if !ok {
			break
		}
		h.handle(e)
	}
	h.finalize()
}

func (h *HostSpanner) handle(e event.Event) {
	switch e.Kind {
	case event.KindHostCall:
		h.handleCall(e)
	case event.KindHostMmioR, event.KindHostMmioW, event.KindHostMmioImRespPoW,
		event.KindHostMmioCR, event.KindHostMmioCW:
		h.handleMmio(e)
	case event.KindHostPciRW, event.KindHostConf:
		h.handlePci(e)
	case event.KindHostDmaR, event.KindHostDmaW, event.KindHostDmaC:
		h.handleDma(e)
	case event.KindHostMsiX:
		h.handleMsix(e)
	case event.KindHostPostInt, event.KindHostClearInt:
		h.handleInt(e)
	default:
		log.Warn("host spanner: unexpected event kind %s", e.Kind)
	}
}

func (h *HostSpanner) popNicToHost(want pipeline.Expectation) (pipeline.Context, bool) {
	stash := &h.pendingDma
	if want == pipeline.ExpectMsix {
		stash = &h.pendingMsix
	}
	if len(*stash) > 0 {
		ctx := (*stash)[0]
		*stash = (*stash)[1:]
		return ctx, true
	}
	for {
		ctx, ok := h.queues.NicToHost.Pop()
		if !ok {
			return pipeline.Context{}, false
		}
		if ctx.Matches(want) {
			return ctx, true
		}
		other := &h.pendingMsix
		if want == pipeline.ExpectMsix {
			other = &h.pendingDma
		}
		*other = append(*other, ctx)
	}
}

func (h *HostSpanner) handleCall(e event.Event) {
	p, ok := e.Payload.(event.HostCall)
	if !ok {
		log.Warn("host spanner: HostCall event with wrong payload type")
		return
	}
	isEntry := h.cfg.IsSyscallEntry(p.Func)
	if h.call != nil {
		if h.call.AcceptCall(e, isEntry) {
			h.pciJustClosed = h.cfg.IsPciWrite(p.Func)
			return
		}
		h.closeCall()
	}
	call := span.NewHostCallSpan(h.sourceID, e, !isEntry,
		h.cfg.IsKernelTx(p.Func), h.cfg.IsKernelRx(p.Func), h.cfg.IsDriverTx(p.Func), h.cfg.IsDriverRx(p.Func))
	h.tr.StartSpan(call)
	h.metrics.SpanAdmitted(span.KindHostCall.String())
	h.call = call
	h.pciJustClosed = false
}

// closeCall implements spec.md §4.3's inbound-call fan-out: a kernel_rx
// call blocks for its Rx context, adopts it via lazy re-parenting, then
// exports a frozen clone for every additional Rx context that logically
// precedes it, before finally releasing the original.
func (h *HostSpanner) closeCall() {
	call := h.call
	h.call = nil
	if call == nil {
		return
	}
	if call.KernelRx {
		ctx, ok := h.queues.NetworkToHost.Pop()
		if !ok {
			log.Warn("host spanner: call span %d wanted an Rx context but network_to_host closed", call.ID())
		} else {
			h.tr.AddParentLazily(call, ctx.Span)
			for {
				extra, ok2 := h.queues.NetworkToHost.TryPopIf(func(c pipeline.Context) bool {
					return c.Span != nil && c.Span.StartTS() < call.StartTS()
				})
				if !ok2 {
					break
				}
				clone := call.CloneFrozen()
				h.tr.StartSpan(clone)
				h.tr.AddParentLazily(clone, extra.Span)
				h.tr.MarkSpanAsDone(clone)
			}
		}
	}
	h.tr.MarkSpanAsDone(call)
}

func (h *HostSpanner) registerMmio(s *span.HostMmioSpan) {
	if h.call != nil {
		h.tr.StartSpanByParent(s, h.call)
	} else {
		h.tr.StartSpan(s)
	}
	h.mmios = append(h.mmios, s)
	h.metrics.SpanAdmitted(span.KindHostMmio.String())
	if s.Complete() {
		h.closeMmio(s)
	}
}

func (h *HostSpanner) closeMmio(s *span.HostMmioSpan) {
	h.tr.MarkSpanAsDone(s)
	for i, m := range h.mmios {
		if m == s {
			h.mmios = append(h.mmios[:i], h.mmios[i+1:]...)
			break
		}
	}
}

func (h *HostSpanner) handleMmio(e event.Event) {
	switch e.Kind {
	case event.KindHostMmioR:
		p := e.Payload.(event.HostMmioR)
		msixOnly := h.cfg.IsMsixBar(p.Bar) && !h.cfg.IsToDeviceBar(p.Bar)
		h.registerMmio(span.NewHostMmioRead(h.sourceID, e, p.ID, msixOnly))
	case event.KindHostMmioW:
		p := e.Payload.(event.HostMmioW)
		s := span.NewHostMmioWrite(h.sourceID, e, p.ID, p.Posted)
		h.registerMmio(s)
		if h.cfg.IsToDeviceBar(p.Bar) && !h.pciJustClosed {
			h.queues.HostToNic.Push(pipeline.Context{Expectation: pipeline.ExpectMmio, Span: s})
		}
	case event.KindHostMmioImRespPoW:
		for _, m := range h.mmios {
			if !m.Complete() && m.Posted && m.StartTS() == e.Timestamp {
				if m.AcceptCompletion(e, 0, true) {
					h.closeMmio(m)
				}
				return
			}
		}
		log.Warn("host spanner: HostMmioImRespPoW at ts=%d matches no pending posted write", e.Timestamp)
	case event.KindHostMmioCR:
		p := e.Payload.(event.HostMmioCR)
		h.completeMmio(e, p.ID)
	case event.KindHostMmioCW:
		p := e.Payload.(event.HostMmioCW)
		h.completeMmio(e, p.ID)
	}
}

func (h *HostSpanner) completeMmio(e event.Event, id uint64) {
	for _, m := range h.mmios {
		if !m.Complete() && m.MmioID == id {
			if m.AcceptCompletion(e, id, false) {
				h.closeMmio(m)
				return
			}
		}
	}
	log.Warn("host spanner: mmio completion id=%d matches no pending span", id)
}

func (h *HostSpanner) handlePci(e event.Event) {
	switch e.Kind {
	case event.KindHostPciRW:
		p := e.Payload.(event.HostPciRW)
		s := span.NewHostPciSpan(h.sourceID, e, p.IsRead)
		if h.call != nil {
			h.tr.StartSpanByParent(s, h.call)
		} else {
			h.tr.StartSpan(s)
		}
		h.pciSpan = s
	case event.KindHostConf:
		p := e.Payload.(event.HostConf)
		if h.pciSpan == nil || !h.pciSpan.AcceptConf(e, p.IsRead) {
			log.Warn("host spanner: HostConf matches no pending PCI span")
			return
		}
		h.tr.MarkSpanAsDone(h.pciSpan)
		h.pciSpan = nil
	}
}

func (h *HostSpanner) handleDma(e event.Event) {
	if e.Kind == event.KindHostDmaC {
		p := e.Payload.(event.HostDmaC)
		if h.msixSpan != nil && h.msixSpan.AcceptCompletion(e, p.ID) {
			h.tr.MarkSpanAsDone(h.msixSpan)
			h.msixSpan = nil
			return
		}
		for i, d := range h.dmas {
			if d.AcceptCompletion(e, p.ID) {
				h.tr.MarkSpanAsDone(d)
				h.dmas = append(h.dmas[:i], h.dmas[i+1:]...)
				return
			}
		}
		log.Warn("host spanner: dma completion id=%d matches no pending dma or msix span", p.ID)
		return
	}

	var id uint64
	switch e.Kind {
	case event.KindHostDmaR:
		id = e.Payload.(event.HostDmaR).ID
	case event.KindHostDmaW:
		id = e.Payload.(event.HostDmaW).ID
	}
	ctx, ok := h.popNicToHost(pipeline.ExpectDma)
	if !ok {
		log.Warn("host spanner: dma issue id=%d found nic_to_host closed", id)
		h.metrics.SpanDropped(span.KindHostDma.String(), "nic_to_host_closed")
		return
	}
	s := span.NewHostDmaSpan(h.sourceID, e, id)
	h.tr.StartSpanByParent(s, ctx.Span)
	h.dmas = append(h.dmas, s)
}

func (h *HostSpanner) handleMsix(e event.Event) {
	p := e.Payload.(event.HostMsiX)
	ctx, ok := h.popNicToHost(pipeline.ExpectMsix)
	if !ok {
		log.Warn("host spanner: msix vec=%d found nic_to_host closed", p.Vec)
		h.metrics.SpanDropped(span.KindHostMsix.String(), "nic_to_host_closed")
		return
	}
	s := span.NewHostMsixSpan(h.sourceID, e, p.Vec)
	h.tr.StartSpanByParent(s, ctx.Span)
	h.metrics.SpanAdmitted(span.KindHostMsix.String())
	h.msixSpan = s
}

func (h *HostSpanner) handleInt(e event.Event) {
	switch e.Kind {
	case event.KindHostPostInt:
		s := span.NewHostIntSpan(h.sourceID, e)
		if h.call != nil {
			h.tr.StartSpanByParent(s, h.call)
		} else {
			h.tr.StartSpan(s)
		}
		h.intSpan = s
	case event.KindHostClearInt:
		if h.intSpan == nil || !h.intSpan.AcceptClear(e) {
			log.Warn("host spanner: HostClearInt matches no pending interrupt span")
			return
		}
		h.tr.MarkSpanAsDone(h.intSpan)
		h.intSpan = nil
	}
}

func (h *HostSpanner) finalize() {
	for _, m := range h.mmios {
		h.tr.MarkSpanAsDone(m)
	}
	for _, d := range h.dmas {
		h.tr.MarkSpanAsDone(d)
	}
	if h.pciSpan != nil {
		h.tr.MarkSpanAsDone(h.pciSpan)
	}
	if h.msixSpan != nil {
		h.tr.MarkSpanAsDone(h.msixSpan)
	}
	if h.intSpan != nil {
		h.tr.MarkSpanAsDone(h.intSpan)
	}
	if h.call != nil {
		h.tr.MarkSpanAsDone(h.call)
		h.call = nil
	}
}
