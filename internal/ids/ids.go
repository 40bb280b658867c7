// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package ids hands out span and trace identifiers. Span ids mirror the
// original TraceEnvironment::GetNextSpanId() counter (trace/include/env in
// the reconstructed simbricks source): a single monotonically increasing
// process-wide uint64. Trace ids use a random UUID, independent of the
// counter; spans that are lazily re-parented into a different trace
// (spec.md §4.6) adopt that trace's existing id.
package ids

import (
	"sync/atomic"

	"github.com/google/uuid"
)

var nextSpanID uint64

// NextSpanID returns a fresh, process-wide unique span id starting at 1.
func NextSpanID() uint64 {
	return atomic.AddUint64(&nextSpanID, 1)
}

// NewTraceID returns a fresh random trace id.
func NewTraceID() uuid.UUID {
	return uuid.New()
}
