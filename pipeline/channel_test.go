// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPushPopFIFO(t *testing.T) {
	c := NewChannel[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, c.Push(i))
	}
	for i := 0; i < 4; i++ {
		v, ok := c.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestTryPushFullFails(t *testing.T) {
	c := NewChannel[int](1)
	assert.True(t, c.TryPush(1))
	assert.False(t, c.TryPush(2))
}

func TestTryPopEmpty(t *testing.T) {
	c := NewChannel[int](1)
	_, ok := c.TryPop()
	assert.False(t, ok)
}

func TestTryPopIf(t *testing.T) {
	c := NewChannel[int](2)
	c.Push(5)
	_, ok := c.TryPopIf(func(v int) bool { return v == 6 })
	assert.False(t, ok)
	v, ok := c.TryPopIf(func(v int) bool { return v == 5 })
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestPushBlocksUntilSpace(t *testing.T) {
	c := NewChannel[int](1)
	require.True(t, c.Push(1))

	done := make(chan bool, 1)
	go func() {
		done <- c.Push(2)
	}()

	select {
	case <-done:
		t.Fatal("Push returned before space was available")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, <-done)
}

func TestPopBlocksUntilPushOrClose(t *testing.T) {
	c := NewChannel[int](1)
	var wg sync.WaitGroup
	wg.Add(1)
	var got bool
	go func() {
		defer wg.Done()
		_, got = c.Pop()
	}()
	time.Sleep(20 * time.Millisecond)
	c.Push(9)
	wg.Wait()
	assert.True(t, got)
}

func TestCloseDrainsThenFails(t *testing.T) {
	c := NewChannel[int](2)
	c.Push(1)
	c.Close()
	assert.False(t, c.Push(2)) // rejected after close

	v, ok := c.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Pop()
	assert.False(t, ok)
}

func TestCloseIsIdempotentAndWakesWaiters(t *testing.T) {
	c := NewChannel[int](1)
	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.Pop()
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	c.Close()
	c.Close()
	c.Close()
	wg.Wait()
	for _, ok := range results {
		assert.False(t, ok)
	}
}

func TestCloseBeforeAnyPushIsNoOp(t *testing.T) {
	c := NewChannel[int](1)
	c.Close()
	c.Close()
	_, ok := c.Pop()
	assert.False(t, ok)
}

func TestPoisonDiscardsPending(t *testing.T) {
	c := NewChannel[int](2)
	c.Push(1)
	c.Push(2)
	c.Poison()
	_, ok := c.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Push(3))
}

func TestPoisonWakesBlockedPush(t *testing.T) {
	c := NewChannel[int](1)
	c.Push(1)
	done := make(chan bool, 1)
	go func() { done <- c.Push(2) }()
	time.Sleep(20 * time.Millisecond)
	c.Poison()
	assert.False(t, <-done)
}
