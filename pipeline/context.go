// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package pipeline

import "github.com/simbricks/simtrace/span"

// Expectation tags a Context so its consumer can reject a mismatched
// hand-off (spec.md §3 "Context (C5)", GLOSSARY "Expectation").
type Expectation int

const (
	ExpectMmio Expectation = iota
	ExpectDma
	ExpectMsix
	ExpectTx
	ExpectRx
)

func (e Expectation) String() string {
	switch e {
	case ExpectMmio:
		return "Mmio"
	case ExpectDma:
		return "Dma"
	case ExpectMsix:
		return "Msix"
	case ExpectTx:
		return "Tx"
	case ExpectRx:
		return "Rx"
	default:
		return "Unknown"
	}
}

// Context is the ephemeral hand-off token carried across a context
// queue: an expectation tag plus the span that produced it. It lives
// only inside a ContextQueue (spec.md §3).
type Context struct {
	Expectation Expectation
	Span        span.Span
}

// Matches reports whether this context satisfies the given expectation,
// used by a consumer of a queue that legitimately carries more than one
// expectation (nic→host carries both Dma and Msix): the host spanner
// pops, and stashes a context whose tag it is not waiting for.
func (c Context) Matches(want Expectation) bool { return c.Expectation == want }

// ContextQueue carries causal hand-offs between two spanners (spec.md
// §6 "Context queue protocol"). A small capacity is intentional: these
// queues model direct hardware causality, not buffering.
type ContextQueue = Channel[Context]

const defaultQueueCapacity = 64

func NewContextQueue() *ContextQueue { return NewChannel[Context](defaultQueueCapacity) }

// Queues bundles the five named context queues the five spanners share
// (spec.md §6 table). cmd/simtrace constructs one Queues and hands the
// same Queues to every spanner.
type Queues struct {
	HostToNic    *ContextQueue // HostSpanner -> NicSpanner, Mmio
	NicToHost    *ContextQueue // NicSpanner -> HostSpanner, Dma | Msix
	NicToNetwork *ContextQueue // NicSpanner -> NetworkSpanner, Rx (egress continuation)
	NetworkToNic *ContextQueue // NetworkSpanner -> NicSpanner, Rx (ingress arrival)
	NetworkToHost *ContextQueue // NetworkSpanner -> HostSpanner, Rx (receive-side syscall)
}

// NewQueues constructs the five context queues with the package default
// capacity.
func NewQueues() *Queues {
	return &Queues{
		HostToNic:     NewContextQueue(),
		NicToHost:     NewContextQueue(),
		NicToNetwork:  NewContextQueue(),
		NetworkToNic:  NewContextQueue(),
		NetworkToHost: NewContextQueue(),
	}
}

// PoisonAll propagates end-of-simulation through every queue (spec.md
// §5 "Cancellation / shutdown").
func (q *Queues) PoisonAll() {
	q.HostToNic.Poison()
	q.NicToHost.Poison()
	q.NicToNetwork.Poison()
	q.NetworkToNic.Poison()
	q.NetworkToHost.Poison()
}
