// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package spanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/pipeline"
	"github.com/simbricks/simtrace/span"
	"github.com/simbricks/simtrace/tracer"
)

// S3 — NIC DMA triad crossing simulators (spec.md §8).
func TestHostAndNicSpannerDmaTriad(t *testing.T) {
	cfg := testConfig(t, "")
	exp := &captureExporter{}
	tr := tracer.New(exp, 4)
	queues := pipeline.NewQueues()

	hs := NewHostSpanner(cfg, tr, queues, 1)
	ns := NewNicSpanner(tr, queues, 2)

	hostIn := pipeline.NewChannel[event.Event](8)
	nicIn := pipeline.NewChannel[event.Event](8)

	nicIn.Push(event.Event{Timestamp: 450, ParserID: 2, Kind: event.KindNicDmaI, Payload: event.NicDmaI{ID: 9, Addr: 0xA}})
	nicIn.Push(event.Event{Timestamp: 470, ParserID: 2, Kind: event.KindNicDmaEx, Payload: event.NicDmaEx{ID: 9, Addr: 0xA}})
	nicIn.Push(event.Event{Timestamp: 580, ParserID: 2, Kind: event.KindNicDmaCR, Payload: event.NicDmaCR{ID: 9, Addr: 0xA}})
	nicIn.Close()

	hostIn.Push(event.Event{Timestamp: 500, ParserID: 1, Kind: event.KindHostDmaR, Payload: event.HostDmaR{ID: 9, Addr: 0xA}})
	hostIn.Push(event.Event{Timestamp: 560, ParserID: 1, Kind: event.KindHostDmaC, Payload: event.HostDmaC{ID: 9}})
	hostIn.Close()

	done := make(chan struct{}, 2)
	go func() { ns.Run(nicIn); done <- struct{}{} }()
	go func() { hs.Run(hostIn); done <- struct{}{} }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nic spanner did not finish")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("host spanner did not finish")
	}

	require.NoError(t, tr.Shutdown(context.Background()))

	nicDmas := exp.byKind(span.KindNicDma)
	hostDmas := exp.byKind(span.KindHostDma)
	require.Len(t, nicDmas, 1)
	require.Len(t, hostDmas, 1)

	assert.Equal(t, uint64(450), nicDmas[0].StartTS())
	assert.Equal(t, uint64(580), nicDmas[0].EndTS())
	assert.Equal(t, uint64(500), hostDmas[0].StartTS())
	assert.Equal(t, uint64(560), hostDmas[0].EndTS())

	hctx := hostDmas[0].Context()
	assert.True(t, hctx.HasParent)
	assert.Equal(t, nicDmas[0].ID(), hctx.ParentSpanID)
	assert.Equal(t, nicDmas[0].Context().TraceID, hctx.TraceID)
}
