package sensor

import (
	"fmt"
	"strings"

	"NetSentinel/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Source is a lazy, non-seekable stream of raw captured packets.
type Source interface {
	Packets() <-chan gopacket.Packet
	Close()
}

type pcapSource struct {
	handle *pcap.Handle
	source *gopacket.PacketSource
}

// OpenLive opens a network interface for live capture. A device that cannot be
// opened for lack of privileges yields an error wrapping model.ErrPermission.
func OpenLive(iface string, snapshotLen int32, promiscuous bool) (Source, error) {
	handle, err := pcap.OpenLive(iface, snapshotLen, promiscuous, pcap.BlockForever)
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("open %s: %w: %v", iface, model.ErrPermission, err)
		}
		return nil, fmt.Errorf("open %s: %w", iface, err)
	}
	return newPcapSource(handle), nil
}

// OpenOffline replays a pcap file. The packet channel closes at end of file.
func OpenOffline(path string) (Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("open pcap file %s: %w", path, err)
	}
	return newPcapSource(handle), nil
}

func newPcapSource(handle *pcap.Handle) *pcapSource {
	return &pcapSource{
		handle: handle,
		source: gopacket.NewPacketSource(handle, handle.LinkType()),
	}
}

func (s *pcapSource) Packets() <-chan gopacket.Packet {
	return s.source.Packets()
}

func (s *pcapSource) Close() {
	s.handle.Close()
}

func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "not permitted")
}
