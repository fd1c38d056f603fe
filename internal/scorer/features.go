package scorer

import "NetSentinel/internal/model"

// NumFeatures is the width of a feature row:
// [source_port, dest_port, packet_size, isTCP, isUDP, hasSYN, hasFIN].
const NumFeatures = 7

const maxPort = 65535

// Features is the extracted feature matrix of a batch. Rows[i] came from
// the batch record at Index[i]; skipped records have no row.
type Features struct {
	Rows    [][]float64
	Index   []int
	Skipped []model.RecordResult
}

// ExtractFeatures builds one row per usable record and records a skip
// reason for every record it cannot coerce.
func ExtractFeatures(records []model.TrafficRecord) Features {
	f := Features{
		Rows:  make([][]float64, 0, len(records)),
		Index: make([]int, 0, len(records)),
	}
	for i, rec := range records {
		if reason := unusable(rec); reason != "" {
			f.Skipped = append(f.Skipped, model.Skip(i, reason))
			continue
		}
		f.Rows = append(f.Rows, []float64{
			float64(rec.SourcePort),
			float64(rec.DestPort),
			float64(rec.PacketSize),
			indicator(rec.Protocol == model.ProtocolTCP),
			indicator(rec.Protocol == model.ProtocolUDP),
			indicator(rec.HasFlag('S')),
			indicator(rec.HasFlag('F')),
		})
		f.Index = append(f.Index, i)
	}
	return f
}

func unusable(rec model.TrafficRecord) string {
	switch {
	case rec.SourcePort < 0 || rec.SourcePort > maxPort:
		return "source port out of range"
	case rec.DestPort < 0 || rec.DestPort > maxPort:
		return "dest port out of range"
	case rec.PacketSize < 0:
		return "negative packet size"
	}
	if _, err := model.ParseProtocol(string(rec.Protocol)); err != nil {
		return "unknown protocol"
	}
	return ""
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
