// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package config loads the read-only configuration object the core
// consumes (spec.md §6 "Symbol/config lookups", "Config surface"). It is
// loaded once at process start-up and never mutated afterward; every
// field access from a spanner is a read of an already-parsed, validated
// value.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simbricks/simtrace/event"
)

// Config is the configuration surface spec.md §6 describes, expanded
// with the OTLP exporter settings SPEC_FULL.md §10.2 wires in.
type Config struct {
	// Symbol sets (spec.md §6, consumed by HostSpanner).
	SyscallEntrySymbols []string `yaml:"syscall_entry_symbols"`
	KernelTxSymbols     []string `yaml:"kernel_tx_symbols"`
	KernelRxSymbols     []string `yaml:"kernel_rx_symbols"`
	DriverTxSymbols     []string `yaml:"driver_tx_symbols"`
	DriverRxSymbols     []string `yaml:"driver_rx_symbols"`
	PciWriteSymbols     []string `yaml:"pci_write_symbols"`

	// BAR classification (spec.md §4.2 "HostMmio").
	MsixBar      int   `yaml:"msix_bar"`
	ToDeviceBars []int `yaml:"to_device_bars"`

	// Network interest filter (spec.md §4.5, SPEC_FULL §10.3).
	NetworkFilter []event.NodeDevice `yaml:"network_filter"`

	// Scheduling (spec.md §6 "Config surface").
	MaxCPUThreads        int `yaml:"max_cpu_threads"`
	MaxBackgroundThreads int `yaml:"max_background_threads"`

	// OTLP exporter back-end (SPEC_FULL §10.2 DOMAIN STACK).
	OTLPEndpoint    string `yaml:"otlp_endpoint"`
	OTLPInsecure    bool   `yaml:"otlp_insecure"`
	BatchTimeoutMs  int    `yaml:"batch_timeout_ms"`
	BatchMaxExport  int    `yaml:"batch_max_export"`
	SamplingRatio   float64 `yaml:"sampling_ratio"`
	ServiceName     string `yaml:"service_name"`
	// ExportRateLimit caps span submissions per second from the
	// background executor; 0 means unlimited.
	ExportRateLimit float64 `yaml:"export_rate_limit"`

	// Resolved, read-only lookups built by resolve() from the fields
	// above; these are what spanners actually consult on the hot path.
	syscallEntry   map[string]struct{}
	kernelTx       map[string]struct{}
	kernelRx       map[string]struct{}
	driverTx       map[string]struct{}
	driverRx       map[string]struct{}
	pciWrite       map[string]struct{}
	toDeviceBarSet map[int]struct{}
	networkFilter  map[event.NodeDevice]struct{}
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func toIntSet(vals []int) map[int]struct{} {
	m := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func (c *Config) resolve() {
	c.syscallEntry = toSet(c.SyscallEntrySymbols)
	c.kernelTx = toSet(c.KernelTxSymbols)
	c.kernelRx = toSet(c.KernelRxSymbols)
	c.driverTx = toSet(c.DriverTxSymbols)
	c.driverRx = toSet(c.DriverRxSymbols)
	c.pciWrite = toSet(c.PciWriteSymbols)
	c.toDeviceBarSet = toIntSet(c.ToDeviceBars)

	c.networkFilter = make(map[event.NodeDevice]struct{}, len(c.NetworkFilter))
	for _, nd := range c.NetworkFilter {
		c.networkFilter[nd] = struct{}{}
	}
}

func (c *Config) IsSyscallEntry(fn string) bool { _, ok := c.syscallEntry[fn]; return ok }
func (c *Config) IsKernelTx(fn string) bool     { _, ok := c.kernelTx[fn]; return ok }
func (c *Config) IsKernelRx(fn string) bool     { _, ok := c.kernelRx[fn]; return ok }
func (c *Config) IsDriverTx(fn string) bool     { _, ok := c.driverTx[fn]; return ok }
func (c *Config) IsDriverRx(fn string) bool     { _, ok := c.driverRx[fn]; return ok }
func (c *Config) IsPciWrite(fn string) bool     { _, ok := c.pciWrite[fn]; return ok }
func (c *Config) IsToDeviceBar(bar int) bool    { _, ok := c.toDeviceBarSet[bar]; return ok }
func (c *Config) IsMsixBar(bar int) bool        { return bar == c.MsixBar }
func (c *Config) IsInterestingPair(nd event.NodeDevice) bool {
	_, ok := c.networkFilter[nd]
	return ok
}

// Default returns a Config with the scheduling and OTLP defaults this
// system ships with; symbol sets and the network filter are always
// project-specific and must come from a loaded file.
func Default() *Config {
	c := &Config{
		MaxCPUThreads:        4,
		MaxBackgroundThreads: 4,
		BatchTimeoutMs:       5000,
		BatchMaxExport:       512,
		SamplingRatio:        1.0,
		ServiceName:          "simtrace",
		ExportRateLimit:      0,
	}
	c.resolve()
	return c
}

// Load reads and validates a YAML configuration file (spec.md §6, YAML
// via gopkg.in/yaml.v3 as the pack's configuration libraries do it).
// The returned Config is immutable: callers must not mutate its exported
// fields after Load returns.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.resolve()
	return c, c.Validate()
}

// Validate enforces the invariants a malformed config would otherwise
// let slip past start-up into the hot path (spec.md §7: "Configuration
// and start-up errors are fatal").
func (c *Config) Validate() error {
	if c.MaxCPUThreads < 1 {
		return fmt.Errorf("max_cpu_threads must be >= 1, got %d", c.MaxCPUThreads)
	}
	if c.MaxBackgroundThreads < 1 {
		return fmt.Errorf("max_background_threads must be >= 1, got %d", c.MaxBackgroundThreads)
	}
	if c.SamplingRatio < 0 || c.SamplingRatio > 1 {
		return fmt.Errorf("sampling_ratio must be in [0,1], got %f", c.SamplingRatio)
	}
	if len(c.SyscallEntrySymbols) == 0 {
		return fmt.Errorf("syscall_entry_symbols must not be empty")
	}
	return nil
}
