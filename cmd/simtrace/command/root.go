// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at build time via -ldflags.
var buildVersion = "dev"

// RootCmd is the main command for the 'simtrace' binary.
var RootCmd = &cobra.Command{
	Use:   "simtrace",
	Short: "reconstructs distributed traces from co-simulation log streams",
	Long:  "simtrace reconstructs end-to-end distributed traces from the raw log streams of a host, NIC, and network co-simulation, and publishes them to an OpenTelemetry collector.",
}

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the simtrace version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "simtrace", buildVersion)
	},
}

func init() {
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(RunCmd)
}
