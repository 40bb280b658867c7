// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package metrics wires pipeline observability (queue depth, spans
// admitted/exported/dropped) to a statsd client, the same transport the
// teacher uses for its own runtime metrics (SPEC_FULL.md §10.2 DOMAIN
// STACK).
package metrics

import (
	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/simbricks/simtrace/internal/log"
)

const (
	metricQueueDepth     = "simtrace.queue.depth"
	metricSpansAdmitted  = "simtrace.spans.admitted"
	metricSpansExported  = "simtrace.spans.exported"
	metricSpansDropped   = "simtrace.spans.dropped"
)

// Client reports simtrace pipeline metrics. A nil *Client is valid and
// every method becomes a no-op, so wiring metrics is optional.
type Client struct {
	c *statsd.Client
}

// New dials addr (host:port of a statsd/dogstatsd agent). An empty addr
// returns a no-op Client.
func New(addr string) (*Client, error) {
	if addr == "" {
		return &Client{}, nil
	}
	c, err := statsd.New(addr, statsd.WithNamespace("simtrace."))
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

func (m *Client) QueueDepth(queue string, depth int64) {
	if m == nil || m.c == nil {
		return
	}
	if err := m.c.Gauge(metricQueueDepth, float64(depth), []string{"queue:" + queue}, 1); err != nil {
		log.Debug("metrics: queue depth gauge failed: %v", err)
	}
}

func (m *Client) SpanAdmitted(kind string) {
	if m == nil || m.c == nil {
		return
	}
	if err := m.c.Incr(metricSpansAdmitted, []string{"kind:" + kind}, 1); err != nil {
		log.Debug("metrics: spans admitted incr failed: %v", err)
	}
}

func (m *Client) SpanExported(kind string) {
	if m == nil || m.c == nil {
		return
	}
	if err := m.c.Incr(metricSpansExported, []string{"kind:" + kind}, 1); err != nil {
		log.Debug("metrics: spans exported incr failed: %v", err)
	}
}

func (m *Client) SpanDropped(kind, reason string) {
	if m == nil || m.c == nil {
		return
	}
	if err := m.c.Incr(metricSpansDropped, []string{"kind:" + kind, "reason:" + reason}, 1); err != nil {
		log.Debug("metrics: spans dropped incr failed: %v", err)
	}
}

// Close flushes and tears down the underlying statsd client.
func (m *Client) Close() error {
	if m == nil || m.c == nil {
		return nil
	}
	return m.c.Close()
}
