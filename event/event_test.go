// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	cases := []struct {
		k    Kind
		want string
	}{
		{KindHostCall, "HostCall"},
		{KindHostMmioR, "HostMmioR"},
		{KindNicDmaI, "NicDmaI"},
		{KindNetworkDrop, "NetworkDrop"},
		{Kind(9999), "Invalid"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.k.String())
	}
}

func TestEventString(t *testing.T) {
	e := Event{
		Timestamp:  100,
		Seq:        1,
		ParserID:   2,
		ParserName: "host0",
		Kind:       KindHostCall,
		Payload:    HostCall{PC: 0xdead, Func: "sys_write", Component: "kernel"},
	}
	s := e.String()
	assert.Contains(t, s, "ts=100")
	assert.Contains(t, s, "host0")
	assert.Contains(t, s, "HostCall")
	assert.Contains(t, s, "sys_write")
}

func TestAsNetworkEvent(t *testing.T) {
	nd := NodeDevice{Node: 1, Device: 2}

	enq := NetworkEnqueue{NodeDevice: nd, DeviceKind: "nic", PayloadSize: 64}
	ev, ok := AsNetworkEvent(enq)
	assert.True(t, ok)
	assert.Equal(t, nd, ev.NodeDevice)
	assert.Equal(t, uint64(64), ev.PayloadSize)

	deq := NetworkDequeue{NodeDevice: nd, DeviceKind: "nic", PayloadSize: 64}
	ev, ok = AsNetworkEvent(deq)
	assert.True(t, ok)
	assert.Equal(t, nd, ev.NodeDevice)

	drop := NetworkDrop{NodeDevice: nd, DeviceKind: "switch"}
	ev, ok = AsNetworkEvent(drop)
	assert.True(t, ok)
	assert.Equal(t, "switch", ev.DeviceKind)

	_, ok = AsNetworkEvent(HostCall{})
	assert.False(t, ok)
}

func TestPayloadKindAgreement(t *testing.T) {
	// Spot-check that every payload type implements Payload, which the
	// compiler already enforces; this just documents the kind<->type
	// pairing spanners rely on when they switch on Event.Kind.
	var payloads = map[Kind]Payload{
		KindHostInstr:         HostInstr{},
		KindHostCall:          HostCall{},
		KindHostPostInt:       HostPostInt{},
		KindHostClearInt:      HostClearInt{},
		KindHostMmioR:         HostMmioR{},
		KindHostMmioW:         HostMmioW{},
		KindHostMmioImRespPoW: HostMmioImRespPoW{},
		KindHostMmioCR:        HostMmioCR{},
		KindHostMmioCW:        HostMmioCW{},
		KindHostPciRW:         HostPciRW{},
		KindHostConf:          HostConf{},
		KindHostDmaR:          HostDmaR{},
		KindHostDmaW:          HostDmaW{},
		KindHostDmaC:          HostDmaC{},
		KindHostMsiX:          HostMsiX{},
		KindNicMmioR:          NicMmioR{},
		KindNicMmioW:          NicMmioW{},
		KindNicDmaI:           NicDmaI{},
		KindNicDmaEx:          NicDmaEx{},
		KindNicDmaCR:          NicDmaCR{},
		KindNicDmaCW:          NicDmaCW{},
		KindNicTx:             NicTx{},
		KindNicRx:             NicRx{},
		KindNicMsix:           NicMsix{},
		KindSetIX:             SetIX{},
		KindNetworkEnqueue:    NetworkEnqueue{},
		KindNetworkDequeue:    NetworkDequeue{},
		KindNetworkDrop:       NetworkDrop{},
	}
	assert.Len(t, payloads, 28)
}
