package model

import (
	"fmt"
	"strings"
	"time"
)

// Protocol is the transport classification of a captured packet.
type Protocol string

const (
	ProtocolTCP     Protocol = "TCP"
	ProtocolUDP     Protocol = "UDP"
	ProtocolICMP    Protocol = "ICMP"
	ProtocolUnknown Protocol = "UNKNOWN"
)

// ParseProtocol maps a wire string onto a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToUpper(s)); p {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolUnknown:
		return p, nil
	default:
		return "", fmt.Errorf("unknown protocol %q", s)
	}
}

// TCPFlagOrder is the canonical ordering of the TCP flag letters a record may carry.
const TCPFlagOrder = "SAFRPU"

// ValidTCPFlags reports whether s is an ordered subset of TCPFlagOrder.
func ValidTCPFlags(s string) bool {
	last := -1
	for _, c := range s {
		pos := strings.IndexRune(TCPFlagOrder, c)
		if pos <= last {
			return false
		}
		last = pos
	}
	return true
}

// TrafficRecord is the normalized form of a single captured packet.
// ID is zero until the record has been persisted.
type TrafficRecord struct {
	ID         uint64    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	SourceIP   string    `json:"source_ip"`
	DestIP     string    `json:"dest_ip"`
	SourcePort int       `json:"source_port"`
	DestPort   int       `json:"dest_port"`
	Protocol   Protocol  `json:"protocol"`
	PacketSize int       `json:"packet_size"`
	TCPFlags   string    `json:"tcp_flags,omitempty"`
}

// HasFlag reports whether the record carries the given TCP flag letter.
func (r TrafficRecord) HasFlag(flag byte) bool {
	return r.Protocol == ProtocolTCP && strings.IndexByte(r.TCPFlags, flag) >= 0
}

func (r TrafficRecord) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d (%s)", r.SourceIP, r.SourcePort, r.DestIP, r.DestPort, r.Protocol)
}

// Severity grades an Alert.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Alert is raised when the scorer flags a persisted record as anomalous.
type Alert struct {
	ID              uint64    `json:"id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Message         string    `json:"message"`
	Severity        Severity  `json:"severity"`
	TrafficRecordID *uint64   `json:"traffic_record,omitempty"`
}

// NewAnomalyAlert builds the alert raised for an anomalous persisted record.
func NewAnomalyAlert(rec TrafficRecord, now time.Time) Alert {
	id := rec.ID
	msg := fmt.Sprintf("Anomaly detected: Unusual traffic from %s:%d to %s:%d (%s)",
		rec.SourceIP, rec.SourcePort, rec.DestIP, rec.DestPort, rec.Protocol)
	return Alert{
		Timestamp:       now,
		Message:         msg,
		Severity:        SeverityLow,
		TrafficRecordID: &id,
	}
}

// EventKind discriminates broadcast events.
type EventKind string

const (
	EventTraffic EventKind = "traffic"
	EventAlert   EventKind = "alert"
	EventSystem  EventKind = "system"
)

// Event is a single broadcast message. Exactly one payload field is set,
// according to Kind.
type Event struct {
	Kind    EventKind
	Traffic *TrafficRecord
	Alert   *Alert
	Message string
}

// TrafficEvent wraps a persisted record for broadcast.
func TrafficEvent(rec TrafficRecord) Event {
	return Event{Kind: EventTraffic, Traffic: &rec}
}

// AlertEvent wraps a persisted alert for broadcast.
func AlertEvent(a Alert) Event {
	return Event{Kind: EventAlert, Alert: &a}
}

// SystemEvent wraps an operator-facing status message.
func SystemEvent(msg string) Event {
	return Event{Kind: EventSystem, Message: msg}
}

// Data returns the payload carried by the event.
func (e Event) Data() interface{} {
	switch e.Kind {
	case EventTraffic:
		return e.Traffic
	case EventAlert:
		return e.Alert
	default:
		return e.Message
	}
}

// ModelStatus is the training activation surface's view of the detector.
type ModelStatus struct {
	IsTrained  bool `json:"is_trained"`
	IsTraining bool `json:"is_training"`
	Collected  int  `json:"collected"`
	Target     int  `json:"target"`
}
