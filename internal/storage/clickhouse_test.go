package storage

import (
	"testing"
	"time"

	"NetSentinel/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestBuildTrafficQuery(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		q     model.TrafficQuery
		where string
		args  []interface{}
		tail  string
	}{
		{
			name: "no filters",
			tail: " ORDER BY Timestamp DESC, ID DESC",
		},
		{
			name:  "all filters",
			q:     model.TrafficQuery{SourceIP: "10.0.0.5", Protocol: model.ProtocolTCP, Since: since, Limit: 25},
			where: " WHERE SourceIP = ? AND Protocol = ? AND Timestamp >= ?",
			args:  []interface{}{"10.0.0.5", "TCP", since},
			tail:  " ORDER BY Timestamp DESC, ID DESC LIMIT 25",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildTrafficQuery(tt.q)
			assert.Equal(t, "SELECT "+trafficColumns+" FROM traffic_records"+tt.where+tt.tail, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildAlertQuery(t *testing.T) {
	query, args := buildAlertQuery(model.AlertQuery{Severity: model.SeverityLow, Limit: 50})
	assert.Equal(t, "SELECT "+alertColumns+" FROM alerts WHERE Severity = ? ORDER BY Timestamp DESC, ID DESC LIMIT 50", query)
	assert.Equal(t, []interface{}{"Low"}, args)
}

func TestTrafficRowMatchesColumnTypes(t *testing.T) {
	r := model.TrafficRecord{ID: 9, SourcePort: 443, DestPort: 51000, Protocol: model.ProtocolTCP, PacketSize: 1500, TCPFlags: "SA"}
	row := trafficRow(r)
	assert.Len(t, row, 9)
	assert.Equal(t, uint64(9), row[0])
	assert.Equal(t, uint16(443), row[4])
	assert.Equal(t, uint16(51000), row[5])
	assert.Equal(t, "TCP", row[6])
	assert.Equal(t, uint32(1500), row[7])
	assert.Equal(t, "SA", row[8])
}
