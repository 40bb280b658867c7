// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/span"
)

func TestContextQueueMatches(t *testing.T) {
	q := NewContextQueue()
	s := span.NewGenericSingleSpan(1, event.Event{Timestamp: 1, ParserID: 1})
	require.True(t, q.Push(Context{Expectation: ExpectMmio, Span: s}))

	ctx, ok := q.TryPopIf(func(c Context) bool { return c.Matches(ExpectDma) })
	assert.False(t, ok)

	ctx, ok = q.TryPopIf(func(c Context) bool { return c.Matches(ExpectMmio) })
	require.True(t, ok)
	assert.Same(t, s, ctx.Span)
}

func TestQueuesPoisonAll(t *testing.T) {
	qs := NewQueues()
	qs.HostToNic.Push(Context{Expectation: ExpectMmio})
	qs.PoisonAll()

	_, ok := qs.HostToNic.Pop()
	assert.False(t, ok)
	assert.False(t, qs.NicToHost.Push(Context{}))
	assert.False(t, qs.NicToNetwork.Push(Context{}))
	assert.False(t, qs.NetworkToNic.Push(Context{}))
	assert.False(t, qs.NetworkToHost.Push(Context{}))
}
