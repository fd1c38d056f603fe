package protocol

import (
	"net"
	"testing"
	"time"

	"NetSentinel/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
)

func buildPacket(t *testing.T, ls ...gopacket.SerializableLayer) gopacket.Packet {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...))
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

func ipv4(proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: proto,
		SrcIP:    net.IPv4(192, 168, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
}

func eth(t layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: t}
}

func TestParsePacketTCP(t *testing.T) {
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 443, SYN: true, ACK: true}
	packet := buildPacket(t, eth(layers.EthernetTypeIPv4), ipv4(layers.IPProtocolTCP), tcp)

	rec, err := ParsePacket(packet)
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.1", rec.SourceIP)
	assert.Equal(t, "10.0.0.2", rec.DestIP)
	assert.Equal(t, 40000, rec.SourcePort)
	assert.Equal(t, 443, rec.DestPort)
	assert.Equal(t, model.ProtocolTCP, rec.Protocol)
	assert.Equal(t, "SA", rec.TCPFlags)
	assert.Equal(t, len(packet.Data()), rec.PacketSize)
	assert.WithinDuration(t, time.Now(), rec.Timestamp, time.Minute)
}

func TestParsePacketUDP(t *testing.T) {
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	packet := buildPacket(t, eth(layers.EthernetTypeIPv4), ipv4(layers.IPProtocolUDP), udp, gopacket.Payload([]byte("query")))

	rec, err := ParsePacket(packet)
	require.NoError(t, err)
	assert.Equal(t, model.ProtocolUDP, rec.Protocol)
	assert.Equal(t, 5353, rec.SourcePort)
	assert.Equal(t, 53, rec.DestPort)
	assert.Empty(t, rec.TCPFlags)
}

func TestParsePacketICMP(t *testing.T) {
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
	packet := buildPacket(t, eth(layers.EthernetTypeIPv4), ipv4(layers.IPProtocolICMPv4), icmp)

	rec, err := ParsePacket(packet)
	require.NoError(t, err)
	assert.Equal(t, model.ProtocolICMP, rec.Protocol)
	assert.Zero(t, rec.SourcePort)
	assert.Zero(t, rec.DestPort)
}

func TestParsePacketDropsNonIP(t *testing.T) {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: []byte{192, 168, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{192, 168, 0, 2},
	}
	packet := buildPacket(t, eth(layers.EthernetTypeARP), arp)

	_, err := ParsePacket(packet)
	assert.ErrorIs(t, err, ErrNoNetworkLayer)
}

func TestTCPFlagsOrder(t *testing.T) {
	tcp := &layers.TCP{URG: true, FIN: true, SYN: true, PSH: true}
	assert.Equal(t, "SFPU", TCPFlags(tcp))
	assert.True(t, model.ValidTCPFlags(TCPFlags(tcp)))
}
