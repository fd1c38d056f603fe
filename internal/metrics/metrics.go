// Package metrics declares the Prometheus collectors shared by the sensor and the collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sensor metrics
	PacketsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentinel_sensor_packets_captured_total",
			Help: "Total number of packets normalized into traffic records",
		},
	)

	PacketsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentinel_sensor_packets_dropped_total",
			Help: "Total number of packets without a recognizable network layer",
		},
	)

	BatchesFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentinel_sensor_batches_flushed_total",
			Help: "Total number of batches flushed, by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)

	// Collector metrics
	BatchesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentinel_collector_batches_total",
			Help: "Total number of ingested batches, by outcome",
		},
		[]string{"status"},
	)

	RecordsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentinel_collector_records_persisted_total",
			Help: "Total number of traffic records persisted",
		},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentinel_collector_records_skipped_total",
			Help: "Total number of records skipped, by stage",
		},
		[]string{"stage"},
	)

	AlertsRaised = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentinel_collector_alerts_total",
			Help: "Total number of anomaly alerts persisted",
		},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netsentinel_collector_batch_duration_seconds",
			Help:    "Duration of batch persistence, routing and broadcast",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelFits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentinel_scorer_fits_total",
			Help: "Total number of model fits, by outcome",
		},
		[]string{"status"},
	)

	// Fan-out metrics
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsentinel_broadcast_subscribers",
			Help: "Current number of broadcast subscribers",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentinel_broadcast_events_dropped_total",
			Help: "Total number of events dropped for slow subscribers, by kind",
		},
		[]string{"kind"},
	)

	PoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsentinel_pipeline_queue_depth",
			Help: "Current depth of the worker pool queue",
		},
	)
)
