package main

import (
	"testing"
	"time"

	"NetSentinel/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "Trained:  false\nTraining: collecting 40/100 records\n",
		formatStatus(model.ModelStatus{IsTraining: true, Collected: 40, Target: 100}))
	assert.Equal(t, "Trained:  true\nTraining: idle\n",
		formatStatus(model.ModelStatus{IsTrained: true, Target: 100}))
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := model.TrafficRecord{ID: 3, Timestamp: ts, SourceIP: "10.0.0.1", DestIP: "10.0.0.2",
		SourcePort: 1234, DestPort: 80, Protocol: model.ProtocolTCP, PacketSize: 60, TCPFlags: "S"}
	assert.Equal(t, "2024-05-01T12:00:00Z TRAFFIC #3 10.0.0.1:1234 -> 10.0.0.2:80 (TCP) size=60 flags=S",
		formatEvent(model.TrafficEvent(rec)))

	al := model.NewAnomalyAlert(rec, ts)
	al.ID = 7
	assert.Contains(t, formatEvent(model.AlertEvent(al)), "ALERT   #7 [Low] Anomaly detected")
	assert.Equal(t, "SYSTEM  hello", formatEvent(model.SystemEvent("hello")))
}
