// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package pipeline implements the bounded async channel (spec.md §4.1,
// C4) and the typed cross-simulator context queues built on top of it
// (spec.md §3 "Context (C5)", §6 "Context queue protocol"). The channel
// is the only suspending primitive in core code (spec.md §5); everything
// a spanner waits on — its own parser stream, or a context from another
// spanner — is a Channel.
package pipeline

import "sync"

// state is the terminal state a Channel can be driven into. A Channel
// starts in stateOpen; Close moves an open Channel to stateClosed (drain
// allowed, pushes rejected) and Poison moves it from either state to
// statePoisoned (both push and pop rejected, pending values discarded);
// both transitions are idempotent.
type state int

const (
	stateOpen state = iota
	stateClosed
	statePoisoned
)

// Channel is a bounded MPMC queue of fixed capacity (spec.md §4.1).
// Push blocks while full; Pop blocks while empty. Close allows pending
// values to still be drained by Pop/TryPop; Poison discards them
// immediately and fails every waiter. Both are safe to call more than
// once and from any goroutine, and wake every blocked push/pop with a
// terminal result (cooperative cancellation, spec.md §4.1).
type Channel[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	buf   []T
	cap   int
	state state
}

// NewChannel returns a Channel with the given fixed capacity. capacity
// must be at least 1.
func NewChannel[T any](capacity int) *Channel[T] {
	if capacity < 1 {
		capacity = 1
	}
	c := &Channel[T]{cap: capacity}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Push blocks until there is room, the channel closes, or it is
// poisoned. Returns false if the value was not admitted.
func (c *Channel[T]) Push(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state == stateOpen && len(c.buf) >= c.cap {
		c.cond.Wait()
	}
	if c.state != stateOpen {
		return false
	}
	c.buf = append(c.buf, v)
	c.cond.Broadcast()
	return true
}

// TryPush admits v only if there is room right now, without blocking.
func (c *Channel[T]) TryPush(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen || len(c.buf) >= c.cap {
		return false
	}
	c.buf = append(c.buf, v)
	c.cond.Broadcast()
	return true
}

// Pop blocks until a value is available, the channel closes with nothing
// left to drain, or it is poisoned. ok is false in the latter two cases.
func (c *Channel[T]) Pop() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) == 0 && c.state == stateOpen {
		c.cond.Wait()
	}
	if len(c.buf) == 0 {
		return v, false
	}
	v = c.buf[0]
	c.buf = c.buf[1:]
	c.cond.Broadcast()
	return v, true
}

// TryPop returns immediately: a value if one is queued, else ok=false.
func (c *Channel[T]) TryPop() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		return v, false
	}
	v = c.buf[0]
	c.buf = c.buf[1:]
	c.cond.Broadcast()
	return v, true
}

// TryPopIf pops the head only if pred accepts it, without blocking.
func (c *Channel[T]) TryPopIf(pred func(T) bool) (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 || !pred(c.buf[0]) {
		return v, false
	}
	v = c.buf[0]
	c.buf = c.buf[1:]
	c.cond.Broadcast()
	return v, true
}

// Close allows already-queued values to still drain via Pop/TryPop, but
// rejects further pushes and eventually returns ok=false from Pop once
// drained. Idempotent.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateOpen {
		c.state = stateClosed
	}
	c.cond.Broadcast()
}

// Poison discards any pending values immediately and fails every current
// and future waiter. Idempotent.
func (c *Channel[T]) Poison() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = statePoisoned
	c.buf = nil
	c.cond.Broadcast()
}

// Len reports the number of values currently queued.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
