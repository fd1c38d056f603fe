package model

import (
	"context"
	"time"
)

// TrafficQuery filters a traffic listing. Zero values disable a filter.
type TrafficQuery struct {
	SourceIP string
	Protocol Protocol
	Since    time.Time
	Limit    int
}

// AlertQuery filters an alert listing. Zero values disable a filter.
type AlertQuery struct {
	Severity Severity
	Since    time.Time
	Limit    int
}

// Count is one row of a grouped count.
type Count struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// Stats summarises persisted traffic.
type Stats struct {
	ProtocolBreakdown []Count `json:"protocol_breakdown"`
	TopSources        []Count `json:"top_sources"`
}

// Store is the durable record store used by the collector.
type Store interface {
	// SaveTraffic persists the records as one all-or-nothing unit and returns
	// them with their assigned IDs, in input order.
	SaveTraffic(ctx context.Context, records []TrafficRecord) ([]TrafficRecord, error)

	// SaveAlert persists an alert and returns it with its assigned ID.
	SaveAlert(ctx context.Context, alert Alert) (Alert, error)

	// QueryTraffic returns matching records, newest first.
	QueryTraffic(ctx context.Context, q TrafficQuery) ([]TrafficRecord, error)

	// QueryAlerts returns matching alerts, newest first.
	QueryAlerts(ctx context.Context, q AlertQuery) ([]Alert, error)

	// Stats returns the protocol breakdown and the topN busiest source IPs.
	Stats(ctx context.Context, topN int) (Stats, error)

	Close() error
}
