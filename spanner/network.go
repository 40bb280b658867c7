// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

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

// NetworkSpanner consumes packet lifecycle events on every (node,
// device) pair, restricted to the configured interest set (spec.md
// §4.5). A dequeue/drop that arrives with no matching open enqueue is
// rejected (DESIGN.md open-question decision #2) rather than treated as
// a reordering to repair.
type NetworkSpanner struct {
	cfg      *config.Config
	tr       *tracer.Tracer
	queues   *pipeline.Queues
	sourceID uint64
	metrics  *metrics.Client

	open map[event.NodeDevice]*span.NetDeviceSpan
	// chain is the parent for the next device span in the packet's
	// current path; nil means the next enqueue must pop a fresh Rx
	// context off nic→network (the start of a new path, spec.md §4.5).
	chain span.Span
}

func NewNetworkSpanner(cfg *config.Config, tr *tracer.Tracer, queues *pipeline.Queues, sourceID uint64) *NetworkSpanner {
	return &NetworkSpanner{cfg: cfg, tr: tr, queues: queues, sourceID: sourceID, open: map[event.NodeDevice]*span.NetDeviceSpan{}}
}

// SetMetrics wires the pipeline observability client (SPEC_FULL.md §10.2).
// Optional: a nil client (the default) makes every metrics call a no-op.
func (ns *NetworkSpanner) SetMetrics(m *metrics.Client) { ns.metrics = m }

func (ns *NetworkSpanner) Run(in *pipeline.Channel[event.Event]) {
	for {
		e, ok := in.Pop()
		if !ok {
			break
		}
		ns.handle(e)
	}
	ns.finalize()
}

func (ns *NetworkSpanner) handle(e event.Event) {
	nd, ok := event.AsNetworkEvent(e.Payload)
	if !ok {
		log.Warn("network spanner: event kind %s carries no network payload", e.Kind)
		return
	}
	if !ns.cfg.IsInterestingPair(nd.NodeDevice) {
		return
	}

	switch e.Kind {
	case event.KindNetworkEnqueue:
		ns.handleEnqueue(e, nd)
	case event.KindNetworkDequeue:
		ns.handleClose(e, nd, false)
	case event.KindNetworkDrop:
		ns.handleClose(e, nd, true)
	}
}

func (ns *NetworkSpanner) handleEnqueue(e event.Event, nd event.NetworkEvent) {
	parent := ns.chain
	if parent == nil {
		ctx, ok := ns.queues.NicToNetwork.Pop()
		if !ok {
			log.Warn("network spanner: enqueue on %v found nic_to_network closed", nd.NodeDevice)
			return
		}
		parent = ctx.Span
	}
	s := span.NewNetDeviceSpan(ns.sourceID, e, nd)
	ns.tr.StartSpanByParent(s, parent)
	s.MarkRelevant()
	ns.open[nd.NodeDevice] = s
	ns.metrics.SpanAdmitted(span.KindNetDevice.String())
}

func (ns *NetworkSpanner) handleClose(e event.Event, nd event.NetworkEvent, drop bool) {
	s, ok := ns.open[nd.NodeDevice]
	if !ok {
		ns.metrics.SpanDropped(span.KindNetDevice.String(), "no_open_enqueue")
		log.Warn("network spanner: %v on %v matches no open enqueue, rejected", e.Kind, nd.NodeDevice)
		return
	}
	var accepted bool
	if drop {
		accepted = s.AcceptDrop(e, nd)
	} else {
		accepted = s.AcceptDequeue(e, nd)
	}
	if !accepted {
		ns.metrics.SpanDropped(span.KindNetDevice.String(), "state_machine_rejected")
		log.Warn("network spanner: %v on %v rejected by span %d's state machine", e.Kind, nd.NodeDevice, s.ID())
		return
	}
	delete(ns.open, nd.NodeDevice)
	ns.tr.MarkSpanAsDone(s)

	if drop {
		ns.chain = nil
		return
	}
	// Every completed hop publishes a continuation onto network→host;
	// this spanner does not identify the last interesting device of a
	// path (the data model has no egress marker). The host spanner
	// parents a receive call on the first context it pops, clones the
	// call for each further queued context that started before the call,
	// and leaves any other contexts queued.
	ns.chain = s
	ns.queues.NetworkToHost.Push(pipeline.Context{Expectation: pipeline.ExpectRx, Span: s})
}

func (ns *NetworkSpanner) finalize() {
	for _, s := range ns.open {
		ns.tr.MarkSpanAsDone(s)
	}
	ns.open = map[event.NodeDevice]*span.NetDeviceSpan{}
}
