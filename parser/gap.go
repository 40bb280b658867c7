// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package parser

import (
	"sync"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/internal/log"
)

// GapDetector tracks each parser's last-seen sequence number and logs
// when a gap appears (SPEC_FULL.md §10.3 "per-parser sequence counters",
// ported from the original reader's sequence-gap detection, independent
// of timestamp ordering). It is safe for concurrent use across parsers
// sharing one detector; the CLI shares one across all five streams.
type GapDetector struct {
	mu   sync.Mutex
	last map[uint64]uint64
	seen map[uint64]bool
}

// NewGapDetector returns an empty detector.
func NewGapDetector() *GapDetector {
	return &GapDetector{last: map[uint64]uint64{}, seen: map[uint64]bool{}}
}

// Observe records e's sequence number and logs a warning if it skipped
// ahead of the parser's previously observed one. It never rejects e.
func (g *GapDetector) Observe(e event.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.seen[e.ParserID] {
		want := g.last[e.ParserID] + 1
		if e.Seq > want {
			log.Warn("parser %d (%s): sequence gap, expected %d, got %d (%d events missing)",
				e.ParserID, e.ParserName, want, e.Seq, e.Seq-want)
		}
	}
	g.last[e.ParserID] = e.Seq
	g.seen[e.ParserID] = true
}
