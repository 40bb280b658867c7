// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Command simtrace wires the five external parsers, the per-simulator
// spanners, the tracer, and the OpenTelemetry exporter into a running
// pipeline (spec.md §1, §2).
package main

import (
	"fmt"
	"os"

	"github.com/simbricks/simtrace/cmd/simtrace/command"
)

func main() {
	if err := command.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
