// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package ext holds the span and attribute tag keys simtrace attaches to
// OpenTelemetry spans, mirroring the role of the teacher's ddtrace/ext:
// a flat namespace of string constants so spanners and the exporter never
// hand-roll a key twice.
package ext

// Span attribute keys, set by the exporter (export package) from the raw
// event payloads spec.md §3 defines.
const (
	SourceID   = "simtrace.source_id"
	ParserID   = "simtrace.parser_id"
	ParserName = "simtrace.parser_name"
	SpanKind   = "simtrace.span_kind"
	Pending    = "simtrace.pending"
	Fragmented = "simtrace.fragmented"
	EventKind  = "simtrace.event.kind"
	EventSeq   = "simtrace.event.seq"

	HostPC        = "host.pc"
	HostFunc      = "host.func"
	HostComponent = "host.component"
	KernelTx      = "host.kernel_tx"
	KernelRx      = "host.kernel_rx"
	DriverTx      = "host.driver_tx"
	DriverRx      = "host.driver_rx"

	MmioID     = "mmio.id"
	MmioAddr   = "mmio.addr"
	MmioSize   = "mmio.size"
	MmioBar    = "mmio.bar"
	MmioOffset = "mmio.offset"
	MmioPosted = "mmio.posted"
	MmioIsRead = "mmio.is_read"

	PciDev    = "pci.dev"
	PciFunc   = "pci.func"
	PciReg    = "pci.reg"
	PciIsRead = "pci.is_read"

	DmaID   = "dma.id"
	DmaAddr = "dma.addr"
	DmaSize = "dma.size"

	MsixVec = "msix.vec"

	NicOff = "nic.off"
	NicLen = "nic.len"
	NicVal = "nic.val"

	NetNode        = "net.node"
	NetDevice      = "net.device"
	NetDeviceKind  = "net.device_kind"
	NetPayloadSize = "net.payload_size"
	NetEthSrc      = "net.eth_src"
	NetEthDst      = "net.eth_dst"
	NetIPSrc       = "net.ip_src"
	NetIPDst       = "net.ip_dst"
)

// SpanKindName values, used both as the exported span's "span kind" tag
// and as a human-readable discriminator in Span.String().
const (
	KindHostCall      = "host_call"
	KindHostMmio      = "host_mmio"
	KindHostDma       = "host_dma"
	KindHostMsix      = "host_msix"
	KindHostInt       = "host_int"
	KindHostPci       = "host_pci"
	KindNicMmio       = "nic_mmio"
	KindNicDma        = "nic_dma"
	KindNicEth        = "nic_eth"
	KindNicMsix       = "nic_msix"
	KindNetDevice     = "net_device"
	KindGenericSingle = "generic_single"
)
