// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbricks/simtrace/event"
)

const sample = `
syscall_entry_symbols: ["sys_read", "sys_write"]
kernel_tx_symbols: ["sys_write"]
kernel_rx_symbols: ["sys_read"]
msix_bar: 2
to_device_bars: [0, 1]
network_filter:
  - node: 1
    device: 0
max_cpu_threads: 2
max_background_threads: 3
otlp_endpoint: "localhost:4317"
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0o644))
	return p
}

func TestLoadValid(t *testing.T) {
	p := writeSample(t)
	c, err := Load(p)
	require.NoError(t, err)
	assert.True(t, c.IsSyscallEntry("sys_read"))
	assert.True(t, c.IsKernelTx("sys_write"))
	assert.False(t, c.IsKernelTx("sys_read"))
	assert.True(t, c.IsMsixBar(2))
	assert.True(t, c.IsToDeviceBar(1))
	assert.False(t, c.IsToDeviceBar(5))
	assert.True(t, c.IsInterestingPair(event.NodeDevice{Node: 1, Device: 0}))
	assert.False(t, c.IsInterestingPair(event.NodeDevice{Node: 2, Device: 0}))
	assert.Equal(t, 2, c.MaxCPUThreads)
	assert.Equal(t, "localhost:4317", c.OTLPEndpoint)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsEmptySyscallEntries(t *testing.T) {
	c := Default()
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadThreadCounts(t *testing.T) {
	c := Default()
	c.SyscallEntrySymbols = []string{"sys_read"}
	c.resolve()
	c.MaxCPUThreads = 0
	assert.Error(t, c.Validate())
}
