package protocol

import (
	"errors"
	"time"

	"NetSentinel/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNoNetworkLayer is returned for packets without an IPv4 or IPv6 header.
// Such packets are dropped by the sensor.
var ErrNoNetworkLayer = errors.New("no network layer")

// ParsePacket normalizes a decoded packet into a TrafficRecord.
func ParsePacket(packet gopacket.Packet) (model.TrafficRecord, error) {
	rec := model.TrafficRecord{
		Timestamp:  time.Now().UTC(),
		Protocol:   model.ProtocolUnknown,
		PacketSize: len(packet.Data()),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		rec.Timestamp = meta.Timestamp.UTC()
		if meta.Length > 0 {
			rec.PacketSize = meta.Length
		}
	}

	switch ip := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		rec.SourceIP = ip.SrcIP.String()
		rec.DestIP = ip.DstIP.String()
	case *layers.IPv6:
		rec.SourceIP = ip.SrcIP.String()
		rec.DestIP = ip.DstIP.String()
	default:
		return model.TrafficRecord{}, ErrNoNetworkLayer
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		rec.Protocol = model.ProtocolTCP
		rec.SourcePort = int(tcp.SrcPort)
		rec.DestPort = int(tcp.DstPort)
		rec.TCPFlags = TCPFlags(tcp)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		rec.Protocol = model.ProtocolUDP
		rec.SourcePort = int(udp.SrcPort)
		rec.DestPort = int(udp.DstPort)
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil || packet.Layer(layers.LayerTypeICMPv6) != nil {
		rec.Protocol = model.ProtocolICMP
	}

	return rec, nil
}

// TCPFlags renders the set flags in model.TCPFlagOrder.
func TCPFlags(tcp *layers.TCP) string {
	set := [...]bool{tcp.SYN, tcp.ACK, tcp.FIN, tcp.RST, tcp.PSH, tcp.URG}
	flags := make([]byte, 0, len(set))
	for i, on := range set {
		if on {
			flags = append(flags, model.TCPFlagOrder[i])
		}
	}
	return string(flags)
}
