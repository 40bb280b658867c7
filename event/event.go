// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

// Package event defines the immutable event model simtrace's spanners
// consume (spec.md §3, "Event (C1)"). Every parser — host, NIC, or network
// — emits a time-ordered stream of Event values on its own channel; the
// package does not parse logs itself (log syntax is an external
// collaborator's concern, spec.md §1 Non-goals).
package event

import "fmt"

// Kind discriminates an Event's Payload. Using a closed Kind plus a
// payload interface lets spanner handlers switch exhaustively on Kind
// without ever downcasting Payload with a failing type assertion: Kind
// and the concrete Payload type are expected to agree, as the parser's
// kind registry pairs each Kind with its payload type.
type Kind int

const (
	KindInvalid Kind = iota

	// Host-CPU
	KindHostInstr
	KindHostCall
	KindHostPostInt
	KindHostClearInt

	// Host-PCIe/MMIO
	KindHostMmioR
	KindHostMmioW
	KindHostMmioImRespPoW
	KindHostMmioCR
	KindHostMmioCW
	KindHostPciRW
	KindHostConf

	// Host-DMA/MSI-X
	KindHostDmaR
	KindHostDmaW
	KindHostDmaC
	KindHostMsiX

	// NIC
	KindNicMmioR
	KindNicMmioW
	KindNicDmaI
	KindNicDmaEx
	KindNicDmaCR
	KindNicDmaCW
	KindNicTx
	KindNicRx
	KindNicMsix
	KindSetIX

	// Network
	KindNetworkEnqueue
	KindNetworkDequeue
	KindNetworkDrop
)

func (k Kind) String() string {
	switch k {
	case KindHostInstr:
		return "HostInstr"
	case KindHostCall:
		return "HostCall"
	case KindHostPostInt:
		return "HostPostInt"
	case KindHostClearInt:
		return "HostClearInt"
	case KindHostMmioR:
		return "HostMmioR"
	case KindHostMmioW:
		return "HostMmioW"
	case KindHostMmioImRespPoW:
		return "HostMmioImRespPoW"
	case KindHostMmioCR:
		return "HostMmioCR"
	case KindHostMmioCW:
		return "HostMmioCW"
	case KindHostPciRW:
		return "HostPciRW"
	case KindHostConf:
		return "HostConf"
	case KindHostDmaR:
		return "HostDmaR"
	case KindHostDmaW:
		return "HostDmaW"
	case KindHostDmaC:
		return "HostDmaC"
	case KindHostMsiX:
		return "HostMsiX"
	case KindNicMmioR:
		return "NicMmioR"
	case KindNicMmioW:
		return "NicMmioW"
	case KindNicDmaI:
		return "NicDmaI"
	case KindNicDmaEx:
		return "NicDmaEx"
	case KindNicDmaCR:
		return "NicDmaCR"
	case KindNicDmaCW:
		return "NicDmaCW"
	case KindNicTx:
		return "NicTx"
	case KindNicRx:
		return "NicRx"
	case KindNicMsix:
		return "NicMsix"
	case KindSetIX:
		return "SetIX"
	case KindNetworkEnqueue:
		return "NetworkEnqueue"
	case KindNetworkDequeue:
		return "NetworkDequeue"
	case KindNetworkDrop:
		return "NetworkDrop"
	default:
		return "Invalid"
	}
}

// Event is an immutable, timestamped occurrence admitted from one parser's
// stream. Timestamp is monotonic nanoseconds in the common time base shared
// by every simulator (spec.md §1 Non-goals: no clock-skew reconciliation
// happens here). Seq is the parser's own per-stream sequence number
// (SPEC_FULL §10.3), used only to detect gaps; it plays no role in
// causality, which is timestamp order.
type Event struct {
	Timestamp  uint64
	Seq        uint64
	ParserID   uint64
	ParserName string
	Kind       Kind
	Payload    Payload
}

// Payload is implemented by every kind-specific payload type below. It
// exists only to give Event.Payload a closed interface instead of `any`.
type Payload interface {
	isPayload()
}

func (e Event) String() string {
	return fmt.Sprintf("Event(ts=%d, seq=%d, parser=%d/%s, kind=%s, payload=%+v)",
		e.Timestamp, e.Seq, e.ParserID, e.ParserName, e.Kind, e.Payload)
}

// --- Host-CPU ---

type HostInstr struct{ PC uint64 }

func (HostInstr) isPayload() {}

type HostCall struct {
	PC        uint64
	Func      string
	Component string
}

func (HostCall) isPayload() {}

type HostPostInt struct{}

func (HostPostInt) isPayload() {}

type HostClearInt struct{}

func (HostClearInt) isPayload() {}

// --- Host-PCIe/MMIO ---

type HostMmioR struct {
	ID     uint64
	Addr   uint64
	Size   uint64
	Bar    int
	Offset uint64
}

func (HostMmioR) isPayload() {}

type HostMmioW struct {
	ID     uint64
	Addr   uint64
	Size   uint64
	Bar    int
	Offset uint64
	Posted bool
}

func (HostMmioW) isPayload() {}

type HostMmioImRespPoW struct{}

func (HostMmioImRespPoW) isPayload() {}

type HostMmioCR struct{ ID uint64 }

func (HostMmioCR) isPayload() {}

type HostMmioCW struct{ ID uint64 }

func (HostMmioCW) isPayload() {}

type HostPciRW struct {
	Offset uint64
	Size   uint64
	IsRead bool
}

func (HostPciRW) isPayload() {}

type HostConf struct {
	Dev    uint64
	Func   uint64
	Reg    uint64
	Bytes  uint64
	Data   uint64
	IsRead bool
}

func (HostConf) isPayload() {}

// --- Host-DMA/MSI-X ---

type HostDmaR struct {
	ID   uint64
	Addr uint64
	Size uint64
}

func (HostDmaR) isPayload() {}

type HostDmaW struct {
	ID   uint64
	Addr uint64
	Size uint64
}

func (HostDmaW) isPayload() {}

type HostDmaC struct{ ID uint64 }

func (HostDmaC) isPayload() {}

type HostMsiX struct{ Vec uint64 }

func (HostMsiX) isPayload() {}

// --- NIC ---

type NicMmioR struct {
	Off    uint64
	Len    uint64
	Val    uint64
	Posted bool
}

func (NicMmioR) isPayload() {}

type NicMmioW struct {
	Off    uint64
	Len    uint64
	Val    uint64
	Posted bool
}

func (NicMmioW) isPayload() {}

type NicDmaI struct {
	ID   uint64
	Addr uint64
	Len  uint64
}

func (NicDmaI) isPayload() {}

type NicDmaEx struct {
	ID   uint64
	Addr uint64
	Len  uint64
}

func (NicDmaEx) isPayload() {}

type NicDmaCR struct {
	ID   uint64
	Addr uint64
	Len  uint64
}

func (NicDmaCR) isPayload() {}

type NicDmaCW struct {
	ID   uint64
	Addr uint64
	Len  uint64
}

func (NicDmaCW) isPayload() {}

type NicTx struct{ Len uint64 }

func (NicTx) isPayload() {}

type NicRx struct {
	Port uint64
	Len  uint64
}

func (NicRx) isPayload() {}

type NicMsix struct {
	Vec  uint64
	IsX  bool
}

func (NicMsix) isPayload() {}

type SetIX struct{ Intr uint64 }

func (SetIX) isPayload() {}

// --- Network ---

// EthHdr and IPHdr are intentionally thin: the core never inspects header
// contents (spec.md §1 Non-goals — it doesn't own log/packet syntax), it
// only carries them through to the exporter as attributes.
type EthHdr struct {
	Src string
	Dst string
}

type IPHdr struct {
	Src string
	Dst string
}

// NodeDevice identifies a (node, device) pair on the simulated network,
// used both in network events and in the configured interest filter
// (config.NetworkFilter, SPEC_FULL §10.3).
type NodeDevice struct {
	Node   uint64
	Device uint64
}

type NetworkEnqueue struct {
	NodeDevice
	DeviceKind  string
	EthHdr      *EthHdr
	IPHdr       *IPHdr
	PayloadSize uint64
}

func (NetworkEnqueue) isPayload() {}

type NetworkDequeue struct {
	NodeDevice
	DeviceKind  string
	EthHdr      *EthHdr
	IPHdr       *IPHdr
	PayloadSize uint64
}

func (NetworkDequeue) isPayload() {}

type NetworkDrop struct {
	NodeDevice
	DeviceKind  string
	EthHdr      *EthHdr
	IPHdr       *IPHdr
	PayloadSize uint64
}

func (NetworkDrop) isPayload() {}

// NetworkEvent fields shared across Enqueue/Dequeue/Drop, used by
// NetDevice's completion matcher (spec.md §4.2 NetDevice).
type NetworkEvent struct {
	NodeDevice
	DeviceKind  string
	EthHdr      *EthHdr
	IPHdr       *IPHdr
	PayloadSize uint64
}

// AsNetworkEvent extracts the common fields of any of the three network
// payload kinds, or ok=false if p is not a network payload.
func AsNetworkEvent(p Payload) (NetworkEvent, bool) {
	switch v := p.(type) {
	case NetworkEnqueue:
		return NetworkEvent{v.NodeDevice, v.DeviceKind, v.EthHdr, v.IPHdr, v.PayloadSize}, true
	case NetworkDequeue:
		return NetworkEvent{v.NodeDevice, v.DeviceKind, v.EthHdr, v.IPHdr, v.PayloadSize}, true
	case NetworkDrop:
		return NetworkEvent{v.NodeDevice, v.DeviceKind, v.EthHdr, v.IPHdr, v.PayloadSize}, true
	default:
		return NetworkEvent{}, false
	}
}
