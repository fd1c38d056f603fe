package sensor

import (
	"context"
	"errors"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/protocol"

	"github.com/google/gopacket"
)

// Capture normalizes packets from src into the batcher until ctx is done or
// the source is exhausted. It returns the number of records appended and
// the number of packets dropped.
func Capture(ctx context.Context, packets <-chan gopacket.Packet, batcher *Batcher) (captured, dropped int) {
	log := logging.With("capture")
	for {
		select {
		case <-ctx.Done():
			return captured, dropped
		case packet, ok := <-packets:
			if !ok {
				return captured, dropped
			}
			rec, err := protocol.ParsePacket(packet)
			if err != nil {
				dropped++
				metrics.PacketsDropped.Inc()
				if !errors.Is(err, protocol.ErrNoNetworkLayer) {
					log.Warn().Err(err).Msg("error processing packet")
				}
				continue
			}
			captured++
			metrics.PacketsCaptured.Inc()
			if captured%1000 == 0 {
				log.Info().Int("captured", captured).Int("dropped", dropped).Msg("capture progress")
			}
			batcher.Add(ctx, rec)
		}
	}
}
