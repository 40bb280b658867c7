// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package parser is the boundary between simtrace's core and the raw log
// streams it reads (spec.md §1 Non-goals: "the core does not define log
// syntax"). Parser is the interface every per-simulator reader implements;
// JSONLParser is a reference implementation shipped so the CLI has a
// working default, not a mandate on log format.
package parser

import (
	"context"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/pipeline"
)

// Parser reads one simulator's log stream and publishes the events it
// finds, in the order it finds them, onto out (spec.md §3 "events are
// consumed strictly in the order produced by its parser"). Run returns
// after closing out, once the stream is exhausted, ctx is cancelled, or
// a fatal (non-malformed-record) error occurs.
type Parser interface {
	Run(ctx context.Context, out *pipeline.Channel[event.Event]) error
}

// Source identifies which simulator a Parser's stream belongs to, used
// to tag every emitted event's ParserID/ParserName and to route the
// stream to the matching spanner (spec.md §2 "five external parsers").
type Source struct {
	ID   uint64
	Name string
}
