package probe

import (
	"fmt"
	"time"

	"NetSentinel/internal/model"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeEvent serializes an event as a protobuf Struct.
func EncodeEvent(e model.Event) ([]byte, error) {
	fields := map[string]interface{}{"kind": string(e.Kind)}
	switch e.Kind {
	case model.EventTraffic:
		if e.Traffic == nil {
			return nil, fmt.Errorf("traffic event without record")
		}
		fields["traffic"] = trafficFields(*e.Traffic)
	case model.EventAlert:
		if e.Alert == nil {
			return nil, fmt.Errorf("alert event without alert")
		}
		fields["alert"] = alertFields(*e.Alert)
	case model.EventSystem:
		fields["message"] = e.Message
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	pb, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(data []byte) (model.Event, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return model.Event{}, err
	}
	f := pb.GetFields()
	switch kind := model.EventKind(f["kind"].GetStringValue()); kind {
	case model.EventTraffic:
		rec, err := trafficFromFields(f["traffic"].GetStructValue().GetFields())
		if err != nil {
			return model.Event{}, err
		}
		return model.TrafficEvent(rec), nil
	case model.EventAlert:
		a, err := alertFromFields(f["alert"].GetStructValue().GetFields())
		if err != nil {
			return model.Event{}, err
		}
		return model.AlertEvent(a), nil
	case model.EventSystem:
		return model.SystemEvent(f["message"].GetStringValue()), nil
	default:
		return model.Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
}

func trafficFields(r model.TrafficRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":          float64(r.ID),
		"timestamp":   r.Timestamp.UTC().Format(time.RFC3339Nano),
		"source_ip":   r.SourceIP,
		"dest_ip":     r.DestIP,
		"source_port": r.SourcePort,
		"dest_port":   r.DestPort,
		"protocol":    string(r.Protocol),
		"packet_size": r.PacketSize,
		"tcp_flags":   r.TCPFlags,
	}
}

func trafficFromFields(f map[string]*structpb.Value) (model.TrafficRecord, error) {
	if f == nil {
		return model.TrafficRecord{}, fmt.Errorf("traffic event without record")
	}
	ts, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
	if err != nil {
		return model.TrafficRecord{}, fmt.Errorf("bad traffic timestamp: %w", err)
	}
	return model.TrafficRecord{
		ID:         uint64(f["id"].GetNumberValue()),
		Timestamp:  ts,
		SourceIP:   f["source_ip"].GetStringValue(),
		DestIP:     f["dest_ip"].GetStringValue(),
		SourcePort: int(f["source_port"].GetNumberValue()),
		DestPort:   int(f["dest_port"].GetNumberValue()),
		Protocol:   model.Protocol(f["protocol"].GetStringValue()),
		PacketSize: int(f["packet_size"].GetNumberValue()),
		TCPFlags:   f["tcp_flags"].GetStringValue(),
	}, nil
}

func alertFields(a model.Alert) map[string]interface{} {
	m := map[string]interface{}{
		"id":        float64(a.ID),
		"timestamp": a.Timestamp.UTC().Format(time.RFC3339Nano),
		"message":   a.Message,
		"severity":  string(a.Severity),
	}
	if a.TrafficRecordID != nil {
		m["traffic_record"] = float64(*a.TrafficRecordID)
	}
	return m
}

func alertFromFields(f map[string]*structpb.Value) (model.Alert, error) {
	if f == nil {
		return model.Alert{}, fmt.Errorf("alert event without alert")
	}
	ts, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
	if err != nil {
		return model.Alert{}, fmt.Errorf("bad alert timestamp: %w", err)
	}
	a := model.Alert{
		ID:        uint64(f["id"].GetNumberValue()),
		Timestamp: ts,
		Message:   f["message"].GetStringValue(),
		Severity:  model.Severity(f["severity"].GetStringValue()),
	}
	if v, ok := f["traffic_record"]; ok {
		id := uint64(v.GetNumberValue())
		a.TrafficRecordID = &id
	}
	return a, nil
}
