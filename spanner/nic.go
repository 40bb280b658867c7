// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package spanner

import (
	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/internal/log"
	"github.com/simbricks/simtrace/internal/metrics"
	"github.com/simbricks/simtrace/pipeline"
	"github.com/simbricks/simtrace/span"
	"github.com/simbricks/simtrace/tracer"
)

// NicSpanner consumes NIC events (spec.md §4.4). It holds the single
// last-completed span (the default parent for the next NIC span) and a
// list of in-flight DMAs.
type NicSpanner struct {
	tr       *tracer.Tracer
	queues   *pipeline.Queues
	sourceID uint64
	metrics  *metrics.Client

	lastCompleted span.Span
	pending       []*span.NicDmaSpan
}

func NewNicSpanner(tr *tracer.Tracer, queues *pipeline.Queues, sourceID uint64) *NicSpanner {
	return &NicSpanner{tr: tr, queues: queues, sourceID: sourceID}
}

// SetMetrics wires the pipeline observability client (SPEC_FULL.md §10.2).
// Optional: a nil client (the default) makes every metrics call a no-op.
func (n *NicSpanner) SetMetrics(m *metrics.Client) { n.metrics = m }

func (n *NicSpanner) Run(in *pipeline.Channel[event.Event]) {
	for {
		e, ok := in.Pop()
		if !ok {
			break
		}
		n.handle(e)
	}
	n.finalize()
}

func (n *NicSpanner) startFromLast(s span.Span) span.Span {
	if n.lastCompleted != nil {
		return n.tr.StartSpanByParent(s, n.lastCompleted)
	}
	return n.tr.StartSpan(s)
}

func (n *NicSpanner) handle(e event.Event) {
	switch e.Kind {
	case event.KindNicMmioR, event.KindNicMmioW:
		n.handleMmio(e)
	case event.KindNicDmaI, event.KindNicDmaEx, event.KindNicDmaCR, event.KindNicDmaCW:
		n.handleDma(e)
	case event.KindNicTx, event.KindNicRx:
		n.handleEth(e)
	case event.KindNicMsix:
		n.handleMsix(e)
	case event.KindSetIX:
		s := span.NewGenericSingleSpan(n.sourceID, e)
		n.startFromLast(s)
		n.tr.MarkSpanAsDone(s)
		n.lastCompleted = s
	default:
		log.Warn("nic spanner: unexpected event kind %s", e.Kind)
	}
}

func (n *NicSpanner) handleMmio(e event.Event) {
	ctx, ok := n.queues.HostToNic.Pop()
	if !ok {
		log.Warn("nic spanner: mmio event found host_to_nic closed")
		return
	}
	s := span.NewNicMmioSpan(n.sourceID, e)
	n.tr.StartSpanByParent(s, ctx.Span)
	n.tr.MarkSpanAsDone(s)
	n.lastCompleted = s
	n.metrics.SpanAdmitted(span.KindNicMmio.String())
}

func (n *NicSpanner) handleDma(e event.Event) {
	switch e.Kind {
	case event.KindNicDmaI:
		p := e.Payload.(event.NicDmaI)
		for _, d := range n.pending {
			if d.Matches(p.ID, p.Addr) {
				return
			}
		}
		s := span.NewNicDmaSpan(n.sourceID, e, p.ID, p.Addr)
		n.startFromLast(s)
		n.pending = append(n.pending, s)
		n.metrics.SpanAdmitted(span.KindNicDma.String())
	case event.KindNicDmaEx:
		p := e.Payload.(event.NicDmaEx)
		for _, d := range n.pending {
			if d.AcceptExecute(e, p.ID, p.Addr) {
				n.queues.NicToHost.Push(pipeline.Context{Expectation: pipeline.ExpectDma, Span: d})
				return
			}
		}
		n.metrics.SpanDropped(span.KindNicDma.String(), "no_pending_issue")
		log.Warn("nic spanner: dma execute id=%d addr=%#x matches no pending issue", p.ID, p.Addr)
	case event.KindNicDmaCR, event.KindNicDmaCW:
		id, addr := dmaCompletionKey(e)
		for i, d := range n.pending {
			if d.AcceptComplete(e, id, addr) {
				n.tr.MarkSpanAsDone(d)
				n.lastCompleted = d
				n.pending = append(n.pending[:i], n.pending[i+1:]...)
				return
			}
		}
		n.metrics.SpanDropped(span.KindNicDma.String(), "no_executing_dma")
		log.Warn("nic spanner: dma completion id=%d addr=%#x matches no executing dma", id, addr)
	}
}

func dmaCompletionKey(e event.Event) (id, addr uint64) {
	switch p := e.Payload.(type) {
	case event.NicDmaCR:
		return p.ID, p.Addr
	case event.NicDmaCW:
		return p.ID, p.Addr
	default:
		return 0, 0
	}
}

func (n *NicSpanner) handleEth(e event.Event) {
	switch e.Kind {
	case event.KindNicTx:
		s := span.NewNicEthSpan(n.sourceID, e)
		n.startFromLast(s)
		n.tr.MarkSpanAsDone(s)
		n.lastCompleted = s
		n.queues.NicToNetwork.Push(pipeline.Context{Expectation: pipeline.ExpectRx, Span: s})
	case event.KindNicRx:
		ctx, ok := n.queues.NetworkToNic.Pop()
		if !ok {
			log.Warn("nic spanner: rx event found network_to_nic closed")
			return
		}
		s := span.NewNicEthSpan(n.sourceID, e)
		n.tr.StartSpanByParent(s, ctx.Span)
		n.tr.MarkSpanAsDone(s)
		n.lastCompleted = s
	}
}

func (n *NicSpanner) handleMsix(e event.Event) {
	s := span.NewNicMsixSpan(n.sourceID, e)
	n.startFromLast(s)
	n.tr.MarkSpanAsDone(s)
	n.lastCompleted = s
	n.queues.NicToHost.Push(pipeline.Context{Expectation: pipeline.ExpectMsix, Span: s})
}

func (n *NicSpanner) finalize() {
	for _, d := range n.pending {
		n.tr.MarkSpanAsDone(d)
	}
	n.pending = nil
}
