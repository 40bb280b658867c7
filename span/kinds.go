// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package span

import (
	"fmt"

	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/internal/ids"
)

// --- HostCall (spec.md §4.2 "HostCall") ---

type HostCallSpan struct {
	Base
	KernelTx   bool
	KernelRx   bool
	DriverTx   bool
	DriverRx   bool
	Fragmented bool
}

// NewHostCallSpan starts a call span on the given HostCall event.
// Fragmented is true when the span was started without seeing a
// syscall-entry symbol first (spec.md §4.2, "Fragmented mode").
func NewHostCallSpan(sourceID uint64, first event.Event, fragmented bool, kernelTx, kernelRx, driverTx, driverRx bool) *HostCallSpan {
	s := &HostCallSpan{
		Base:       newBase(KindHostCall, sourceID, first),
		Fragmented: fragmented,
		KernelTx:   kernelTx,
		KernelRx:   kernelRx,
		DriverTx:   driverTx,
		DriverRx:   driverRx,
	}
	return s
}

// AcceptCall extends the call span with e. isSyscallEntry must be the
// spanner's config classification of e's function name. Returns false
// (rejecting e) when e is itself a new syscall entry: the caller then
// closes this span and starts a new one on e.
func (s *HostCallSpan) AcceptCall(e event.Event, isSyscallEntry bool) bool {
	if isSyscallEntry {
		return false
	}
	return s.append(e)
}

// CloneFrozen returns a new, already-frozen HostCallSpan sharing this
// span's events and classification flags but with a fresh id and no
// context — used by the host spanner's inbound-call fan-out (spec.md
// §4.3) to export one clone per extra Rx context that precedes the
// original call's start.
func (s *HostCallSpan) CloneFrozen() *HostCallSpan {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := &HostCallSpan{
		Base: Base{
			id:       ids.NextSpanID(),
			sourceID: s.sourceID,
			kind:     s.kind,
			events:   append([]event.Event(nil), s.events...),
			pending:  false,
		},
		KernelTx:   s.KernelTx,
		KernelRx:   s.KernelRx,
		DriverTx:   s.DriverTx,
		DriverRx:   s.DriverRx,
		Fragmented: s.Fragmented,
	}
	return clone
}

func (s *HostCallSpan) String() string {
	return fmt.Sprintf("%s, kernel_tx=%v kernel_rx=%v driver_tx=%v driver_rx=%v fragmented=%v",
		s.stringHeader("HostCall"), s.KernelTx, s.KernelRx, s.DriverTx, s.DriverRx, s.Fragmented)
}

// --- HostMmio (spec.md §4.2 "HostMmio") ---

type HostMmioSpan struct {
	Base
	MmioID   uint64
	IsRead   bool
	Posted   bool
	MsixOnly bool // completed by the lone MSI-X BAR read, shape 4
	complete bool
}

func NewHostMmioRead(sourceID uint64, first event.Event, id uint64, msixOnly bool) *HostMmioSpan {
	s := &HostMmioSpan{
		Base:     newBase(KindHostMmio, sourceID, first),
		MmioID:   id,
		IsRead:   true,
		MsixOnly: msixOnly,
		complete: msixOnly,
	}
	return s
}

func NewHostMmioWrite(sourceID uint64, first event.Event, id uint64, posted bool) *HostMmioSpan {
	return &HostMmioSpan{
		Base:   newBase(KindHostMmio, sourceID, first),
		MmioID: id,
		Posted: posted,
	}
}

// AcceptCompletion admits a HostMmioCR/CW/ImRespPoW event. id is the
// completion event's own id (ignored for ImRespPoW, which instead must
// share the write's timestamp, checked by the caller before calling this).
func (s *HostMmioSpan) AcceptCompletion(e event.Event, id uint64, isImRespPoW bool) bool {
	if s.complete {
		return false
	}
	if !isImRespPoW && id != s.MmioID {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	return true
}

func (s *HostMmioSpan) Complete() bool { return s.complete }

func (s *HostMmioSpan) String() string {
	return fmt.Sprintf("%s, mmio_id=%d is_read=%v posted=%v complete=%v",
		s.stringHeader("HostMmio"), s.MmioID, s.IsRead, s.Posted, s.complete)
}

// --- HostDma (spec.md §4.2 "HostDma") ---

type HostDmaSpan struct {
	Base
	DmaID    uint64
	complete bool
}

func NewHostDmaSpan(sourceID uint64, first event.Event, id uint64) *HostDmaSpan {
	return &HostDmaSpan{Base: newBase(KindHostDma, sourceID, first), DmaID: id}
}

func (s *HostDmaSpan) AcceptCompletion(e event.Event, id uint64) bool {
	if s.complete || id != s.DmaID {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	return true
}

func (s *HostDmaSpan) Complete() bool { return s.complete }

func (s *HostDmaSpan) String() string {
	return fmt.Sprintf("%s, dma_id=%d complete=%v", s.stringHeader("HostDma"), s.DmaID, s.complete)
}

// --- HostMsix (spec.md §4.2 "HostMsix") ---

type HostMsixSpan struct {
	Base
	Vec      uint64
	complete bool
}

func NewHostMsixSpan(sourceID uint64, first event.Event, vec uint64) *HostMsixSpan {
	return &HostMsixSpan{Base: newBase(KindHostMsix, sourceID, first), Vec: vec}
}

// AcceptCompletion admits a HostDmaC event; only id==0 completes an
// MSI-X span (spec.md §4.2: "the id-zero completion is the MSI-X
// signalling DMA write").
func (s *HostMsixSpan) AcceptCompletion(e event.Event, id uint64) bool {
	if s.complete || id != 0 {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	return true
}

func (s *HostMsixSpan) Complete() bool { return s.complete }

func (s *HostMsixSpan) String() string {
	return fmt.Sprintf("%s, vec=%d complete=%v", s.stringHeader("HostMsix"), s.Vec, s.complete)
}

// --- HostInt (spec.md §4.2 "HostInt") ---

type HostIntSpan struct {
	Base
	complete bool
}

func NewHostIntSpan(sourceID uint64, first event.Event) *HostIntSpan {
	return &HostIntSpan{Base: newBase(KindHostInt, sourceID, first)}
}

func (s *HostIntSpan) AcceptClear(e event.Event) bool {
	if s.complete {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	return true
}

func (s *HostIntSpan) Complete() bool { return s.complete }

func (s *HostIntSpan) String() string {
	return fmt.Sprintf("%s, complete=%v", s.stringHeader("HostInt"), s.complete)
}

// --- HostPci (spec.md §4.2 "HostPci") ---

type HostPciSpan struct {
	Base
	IsRead   bool
	complete bool
}

func NewHostPciSpan(sourceID uint64, first event.Event, isRead bool) *HostPciSpan {
	return &HostPciSpan{Base: newBase(KindHostPci, sourceID, first), IsRead: isRead}
}

func (s *HostPciSpan) AcceptConf(e event.Event, isRead bool) bool {
	if s.complete || isRead != s.IsRead {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	return true
}

func (s *HostPciSpan) Complete() bool { return s.complete }

func (s *HostPciSpan) String() string {
	return fmt.Sprintf("%s, is_read=%v complete=%v", s.stringHeader("HostPci"), s.IsRead, s.complete)
}

// --- NicMmio (spec.md §4.2 "NicMmio") ---

type NicMmioSpan struct{ Base }

func NewNicMmioSpan(sourceID uint64, first event.Event) *NicMmioSpan {
	return &NicMmioSpan{Base: newBase(KindNicMmio, sourceID, first)}
}

func (s *NicMmioSpan) Complete() bool { return true }

func (s *NicMmioSpan) String() string { return s.stringHeader("NicMmio") }

// --- NicDma (spec.md §4.2 "NicDma") ---

type nicDmaPhase int

const (
	nicDmaIssued nicDmaPhase = iota
	nicDmaExecuting
	nicDmaCompleted
)

type NicDmaSpan struct {
	Base
	DmaID uint64
	Addr  uint64
	phase nicDmaPhase
}

func NewNicDmaSpan(sourceID uint64, first event.Event, id, addr uint64) *NicDmaSpan {
	return &NicDmaSpan{Base: newBase(KindNicDma, sourceID, first), DmaID: id, Addr: addr}
}

// Matches reports whether a DmaEx/CR/CW event with the given id/addr
// belongs to this pending DMA.
func (s *NicDmaSpan) Matches(id, addr uint64) bool { return id == s.DmaID && addr == s.Addr }

func (s *NicDmaSpan) AcceptExecute(e event.Event, id, addr uint64) bool {
	if s.phase != nicDmaIssued || !s.Matches(id, addr) {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.phase = nicDmaExecuting
	return true
}

func (s *NicDmaSpan) AcceptComplete(e event.Event, id, addr uint64) bool {
	if s.phase != nicDmaExecuting || !s.Matches(id, addr) {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.phase = nicDmaCompleted
	return true
}

func (s *NicDmaSpan) Executing() bool { return s.phase == nicDmaExecuting }
func (s *NicDmaSpan) Complete() bool  { return s.phase == nicDmaCompleted }

func (s *NicDmaSpan) String() string {
	return fmt.Sprintf("%s, dma_id=%d addr=%#x phase=%d", s.stringHeader("NicDma"), s.DmaID, s.Addr, s.phase)
}

// --- NicEth (spec.md §4.2 "NicEth") ---

type NicEthSpan struct{ Base }

func NewNicEthSpan(sourceID uint64, first event.Event) *NicEthSpan {
	return &NicEthSpan{Base: newBase(KindNicEth, sourceID, first)}
}

func (s *NicEthSpan) Complete() bool { return true }
func (s *NicEthSpan) String() string { return s.stringHeader("NicEth") }

// --- NicMsix (spec.md §4.2 "NicMsix") ---

type NicMsixSpan struct{ Base }

func NewNicMsixSpan(sourceID uint64, first event.Event) *NicMsixSpan {
	return &NicMsixSpan{Base: newBase(KindNicMsix, sourceID, first)}
}

func (s *NicMsixSpan) Complete() bool { return true }
func (s *NicMsixSpan) String() string { return s.stringHeader("NicMsix") }

// --- NetDevice (spec.md §4.2 "NetDevice") ---

type NetDeviceSpan struct {
	Base
	Key      event.NetworkEvent
	complete bool
	dropped  bool
}

func NewNetDeviceSpan(sourceID uint64, first event.Event, key event.NetworkEvent) *NetDeviceSpan {
	return &NetDeviceSpan{Base: newBase(KindNetDevice, sourceID, first), Key: key}
}

func ethHdrEqual(a, b *event.EthHdr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ipHdrEqual(a, b *event.IPHdr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// matches reports whether a dequeue/drop candidate shares every field of
// the original enqueue (spec.md §4.2), including the Ethernet/IP headers.
func (s *NetDeviceSpan) matches(cand event.NetworkEvent) bool {
	if s.Key.NodeDevice != cand.NodeDevice || s.Key.DeviceKind != cand.DeviceKind {
		return false
	}
	if s.Key.PayloadSize != cand.PayloadSize {
		return false
	}
	if !ethHdrEqual(s.Key.EthHdr, cand.EthHdr) || !ipHdrEqual(s.Key.IPHdr, cand.IPHdr) {
		return false
	}
	return true
}

func (s *NetDeviceSpan) AcceptDequeue(e event.Event, cand event.NetworkEvent) bool {
	if s.complete || !s.matches(cand) {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	return true
}

func (s *NetDeviceSpan) AcceptDrop(e event.Event, cand event.NetworkEvent) bool {
	if s.complete || !s.matches(cand) {
		return false
	}
	if !s.append(e) {
		return false
	}
	s.complete = true
	s.dropped = true
	return true
}

func (s *NetDeviceSpan) Complete() bool { return s.complete }
func (s *NetDeviceSpan) Dropped() bool  { return s.dropped }

func (s *NetDeviceSpan) String() string {
	return fmt.Sprintf("%s, node=%d device=%d kind=%s complete=%v dropped=%v",
		s.stringHeader("NetDevice"), s.Key.Node, s.Key.Device, s.Key.DeviceKind, s.complete, s.dropped)
}

// --- GenericSingle (spec.md §4.2 "GenericSingle") ---

type GenericSingleSpan struct{ Base }

func NewGenericSingleSpan(sourceID uint64, first event.Event) *GenericSingleSpan {
	return &GenericSingleSpan{Base: newBase(KindGenericSingle, sourceID, first)}
}

func (s *GenericSingleSpan) Complete() bool { return true }
func (s *GenericSingleSpan) String() string { return s.stringHeader("GenericSingle") }
