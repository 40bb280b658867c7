// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package export

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/simbricks/simtrace/ddtrace/ext"
	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/span"
)

// networkHeaderAttributes appends the Ethernet/IP header fields the
// NetDevice matcher keys off (span/kinds.go's matches), when present;
// headers are optional per event (event.EthHdr/IPHdr are *pointers).
func networkHeaderAttributes(attrs []attribute.KeyValue, eth *event.EthHdr, ip *event.IPHdr) []attribute.KeyValue {
	if eth != nil {
		attrs = append(attrs, attribute.String(ext.NetEthSrc, eth.Src), attribute.String(ext.NetEthDst, eth.Dst))
	}
	if ip != nil {
		attrs = append(attrs, attribute.String(ext.NetIPSrc, ip.Src), attribute.String(ext.NetIPDst, ip.Dst))
	}
	return attrs
}

// spanAttributes builds the kind-specific attribute set for s (spec.md
// §4.7 "kind-specific attributes"). The type switch covers the span
// kinds that carry kind-specific fields; HostInt, NicMmio, NicEth,
// NicMsix and GenericSingle spans get only the common attributes. It is
// the one place outside package span allowed to know their concrete
// shapes, since it is translating them to an external wire attribute
// schema.
func spanAttributes(s span.Span) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int64(ext.SourceID, int64(s.SourceID())),
		attribute.Int64(ext.ParserID, int64(s.ParserID())),
		attribute.String(ext.SpanKind, s.Kind().String()),
		attribute.Bool(ext.Fragmented, false),
	}

	switch v := s.(type) {
	case *span.HostCallSpan:
		attrs = append(attrs,
			attribute.Bool(ext.KernelTx, v.KernelTx),
			attribute.Bool(ext.KernelRx, v.KernelRx),
			attribute.Bool(ext.DriverTx, v.DriverTx),
			attribute.Bool(ext.DriverRx, v.DriverRx),
			attribute.Bool(ext.Fragmented, v.Fragmented),
		)
	case *span.HostMmioSpan:
		attrs = append(attrs,
			attribute.Int64(ext.MmioID, int64(v.MmioID)),
			attribute.Bool(ext.MmioIsRead, v.IsRead),
			attribute.Bool(ext.MmioPosted, v.Posted),
		)
	case *span.HostDmaSpan:
		attrs = append(attrs, attribute.Int64(ext.DmaID, int64(v.DmaID)))
	case *span.HostMsixSpan:
		attrs = append(attrs, attribute.Int64(ext.MsixVec, int64(v.Vec)))
	case *span.HostPciSpan:
		attrs = append(attrs, attribute.Bool(ext.PciIsRead, v.IsRead))
	case *span.NicDmaSpan:
		attrs = append(attrs,
			attribute.Int64(ext.DmaID, int64(v.DmaID)),
			attribute.Int64(ext.DmaAddr, int64(v.Addr)),
		)
	case *span.NetDeviceSpan:
		attrs = append(attrs,
			attribute.Int64(ext.NetNode, int64(v.Key.Node)),
			attribute.Int64(ext.NetDevice, int64(v.Key.Device)),
			attribute.String(ext.NetDeviceKind, v.Key.DeviceKind),
			attribute.Int64(ext.NetPayloadSize, int64(v.Key.PayloadSize)),
		)
		attrs = networkHeaderAttributes(attrs, v.Key.EthHdr, v.Key.IPHdr)
	}
	return attrs
}

// eventAttributes builds the per-event attribute set for one OpenTelemetry
// span event (spec.md §4.7 "one OpenTelemetry event per raw event").
func eventAttributes(e event.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ext.EventKind, e.Kind.String()),
		attribute.Int64(ext.EventSeq, int64(e.Seq)),
	}

	switch p := e.Payload.(type) {
	case event.HostCall:
		attrs = append(attrs,
			attribute.Int64(ext.HostPC, int64(p.PC)),
			attribute.String(ext.HostFunc, p.Func),
			attribute.String(ext.HostComponent, p.Component),
		)
	case event.HostMmioR:
		attrs = append(attrs,
			attribute.Int64(ext.MmioAddr, int64(p.Addr)),
			attribute.Int64(ext.MmioSize, int64(p.Size)),
			attribute.Int64(ext.MmioBar, int64(p.Bar)),
			attribute.Int64(ext.MmioOffset, int64(p.Offset)),
		)
	case event.HostMmioW:
		attrs = append(attrs,
			attribute.Int64(ext.MmioAddr, int64(p.Addr)),
			attribute.Int64(ext.MmioSize, int64(p.Size)),
			attribute.Int64(ext.MmioBar, int64(p.Bar)),
			attribute.Int64(ext.MmioOffset, int64(p.Offset)),
			attribute.Bool(ext.MmioPosted, p.Posted),
		)
	case event.HostConf:
		attrs = append(attrs,
			attribute.Int64(ext.PciDev, int64(p.Dev)),
			attribute.Int64(ext.PciFunc, int64(p.Func)),
			attribute.Int64(ext.PciReg, int64(p.Reg)),
			attribute.Bool(ext.PciIsRead, p.IsRead),
		)
	case event.HostDmaR:
		attrs = append(attrs, attribute.Int64(ext.DmaAddr, int64(p.Addr)), attribute.Int64(ext.DmaSize, int64(p.Size)))
	case event.HostDmaW:
		attrs = append(attrs, attribute.Int64(ext.DmaAddr, int64(p.Addr)), attribute.Int64(ext.DmaSize, int64(p.Size)))
	case event.NicDmaI:
		attrs = append(attrs, attribute.Int64(ext.DmaAddr, int64(p.Addr)), attribute.Int64(ext.NicLen, int64(p.Len)))
	case event.NicMmioR:
		attrs = append(attrs, attribute.Int64(ext.NicOff, int64(p.Off)), attribute.Int64(ext.NicLen, int64(p.Len)), attribute.Int64(ext.NicVal, int64(p.Val)))
	case event.NicMmioW:
		attrs = append(attrs, attribute.Int64(ext.NicOff, int64(p.Off)), attribute.Int64(ext.NicLen, int64(p.Len)), attribute.Int64(ext.NicVal, int64(p.Val)))
	default:
		if ne, ok := event.AsNetworkEvent(e.Payload); ok {
			attrs = append(attrs,
				attribute.Int64(ext.NetNode, int64(ne.Node)),
				attribute.Int64(ext.NetDevice, int64(ne.Device)),
				attribute.String(ext.NetDeviceKind, ne.DeviceKind),
				attribute.Int64(ext.NetPayloadSize, int64(ne.PayloadSize)),
			)
			attrs = networkHeaderAttributes(attrs, ne.EthHdr, ne.IPHdr)
		}
	}
	return attrs
}
