// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package parser

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/internal/log"
	"github.com/simbricks/simtrace/pipeline"
)

// record is the wire shape JSONLParser expects, one per line: the event's
// envelope fields plus a kind-tagged payload blob. Field matching against
// the concrete payload struct is case-insensitive (encoding/json default),
// so "addr" decodes into Addr with no struct tags required.
type record struct {
	Timestamp uint64          `json:"ts"`
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Fields    json.RawMessage `json:"fields"`
}

// JSONLParser reads newline-delimited JSON records from r and emits the
// event.Event stream they describe, tagging every event with src. It is
// the reference Parser implementation shipped with the CLI; any other
// log syntax is free to implement Parser instead (spec.md §1 Non-goals).
type JSONLParser struct {
	Src    Source
	Reader io.Reader
	Gaps   *GapDetector
}

// Run implements Parser. A malformed line is logged and skipped (spec.md
// §7 "malformed event: dropped with a warning; does not disturb the
// spanner"); Run only returns a non-nil error for an I/O failure on the
// underlying reader.
func (p *JSONLParser) Run(ctx context.Context, out *pipeline.Channel[event.Event]) error {
	defer out.Close()

	sc := bufio.NewScanner(p.Reader)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn("parser %s: malformed record: %v", p.Src.Name, err)
			continue
		}

		e, err := decodeRecord(p.Src, rec)
		if err != nil {
			log.Warn("parser %s: %v", p.Src.Name, err)
			continue
		}
		if p.Gaps != nil {
			p.Gaps.Observe(e)
		}
		out.Push(e)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("parser %s: reading log stream: %w", p.Src.Name, err)
	}
	return nil
}

func decodeRecord(src Source, rec record) (event.Event, error) {
	entry, ok := payloadDecoders[rec.Kind]
	if !ok {
		return event.Event{}, fmt.Errorf("unknown event kind %q", rec.Kind)
	}
	payload, err := entry.decoder(rec.Fields)
	if err != nil {
		return event.Event{}, fmt.Errorf("decoding %s payload: %w", rec.Kind, err)
	}
	return event.Event{
		Timestamp:  rec.Timestamp,
		Seq:        rec.Seq,
		ParserID:   src.ID,
		ParserName: src.Name,
		Kind:       entry.kind,
		Payload:    payload,
	}, nil
}
