// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package parser

import (
	"encoding/json"

	"github.com/simbricks/simtrace/event"
)

type payloadDecoder func(raw json.RawMessage) (event.Payload, error)

func decode[T event.Payload](raw json.RawMessage) (event.Payload, error) {
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// payloadDecoders maps every wire kind name (Kind.String(), the same
// vocabulary the original's EventType enum uses) to its Kind value and
// the decoder that parses its JSON fields blob into the matching
// event.Payload. Closed and exhaustive over event.Kind by construction.
var payloadDecoders = map[string]struct {
	kind    event.Kind
	decoder payloadDecoder
}{
	"HostInstr":        {event.KindHostInstr, decode[event.HostInstr]},
	"HostCall":         {event.KindHostCall, decode[event.HostCall]},
	"HostPostInt":      {event.KindHostPostInt, decode[event.HostPostInt]},
	"HostClearInt":     {event.KindHostClearInt, decode[event.HostClearInt]},
	"HostMmioR":        {event.KindHostMmioR, decode[event.HostMmioR]},
	"HostMmioW":        {event.KindHostMmioW, decode[event.HostMmioW]},
	"HostMmioImRespPoW": {event.KindHostMmioImRespPoW, decode[event.HostMmioImRespPoW]},
	"HostMmioCR":       {event.KindHostMmioCR, decode[event.HostMmioCR]},
	"HostMmioCW":       {event.KindHostMmioCW, decode[event.HostMmioCW]},
	"HostPciRW":        {event.KindHostPciRW, decode[event.HostPciRW]},
	"HostConf":         {event.KindHostConf, decode[event.HostConf]},
	"HostDmaR":         {event.KindHostDmaR, decode[event.HostDmaR]},
	"HostDmaW":         {event.KindHostDmaW, decode[event.HostDmaW]},
	"HostDmaC":         {event.KindHostDmaC, decode[event.HostDmaC]},
	"HostMsiX":         {event.KindHostMsiX, decode[event.HostMsiX]},
	"NicMmioR":         {event.KindNicMmioR, decode[event.NicMmioR]},
	"NicMmioW":         {event.KindNicMmioW, decode[event.NicMmioW]},
	"NicDmaI":          {event.KindNicDmaI, decode[event.NicDmaI]},
	"NicDmaEx":         {event.KindNicDmaEx, decode[event.NicDmaEx]},
	"NicDmaCR":         {event.KindNicDmaCR, decode[event.NicDmaCR]},
	"NicDmaCW":         {event.KindNicDmaCW, decode[event.NicDmaCW]},
	"NicTx":            {event.KindNicTx, decode[event.NicTx]},
	"NicRx":            {event.KindNicRx, decode[event.NicRx]},
	"NicMsix":          {event.KindNicMsix, decode[event.NicMsix]},
	"SetIX":            {event.KindSetIX, decode[event.SetIX]},
	"NetworkEnqueue":   {event.KindNetworkEnqueue, decode[event.NetworkEnqueue]},
	"NetworkDequeue":   {event.KindNetworkDequeue, decode[event.NetworkDequeue]},
	"NetworkDrop":      {event.KindNetworkDrop, decode[event.NetworkDrop]},
}

