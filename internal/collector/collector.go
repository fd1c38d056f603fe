// Package collector implements batch ingestion: persist, route to training
// or scoring, raise alerts, then broadcast.
package collector

import (
	"context"
	"fmt"
	"time"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/model"
	"NetSentinel/internal/pipeline"
	"NetSentinel/internal/scorer"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// MsgScoringFailed is published when a batch cannot be scored.
const MsgScoringFailed = "Anomaly scoring failed for a batch. Please check logs."

// Router takes a persisted batch for baseline collection. It returns false
// when the batch was not consumed.
type Router interface {
	Offer(records []model.TrafficRecord) bool
}

// Predictor flags anomalous records.
type Predictor interface {
	IsTrained() bool
	Predict(records []model.TrafficRecord) (scorer.Prediction, error)
}

// Submitter schedules background work without blocking.
type Submitter interface {
	Submit(task pipeline.Task) error
}

// Route records where a batch went after persistence.
type Route string

const (
	RouteNone     Route = "none"
	RouteTraining Route = "training"
	RouteScoring  Route = "scoring"
)

// BatchResult summarises the processing of one batch.
type BatchResult struct {
	Received  int
	Persisted []model.TrafficRecord
	Skipped   []model.RecordResult
	Route     Route
	Alerts    []model.Alert
	Err       error
}

// Collector is the pipeline context. All collaborators are injected.
type Collector struct {
	store     model.Store
	training  Router
	scorer    Predictor
	publisher model.Publisher
	tasks     Submitter
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a collector.
func New(store model.Store, training Router, sc Predictor, publisher model.Publisher, tasks Submitter) *Collector {
	return &Collector{
		store:     store,
		training:  training,
		scorer:    sc,
		publisher: publisher,
		tasks:     tasks,
		now:       time.Now,
		log:       logging.With("collector"),
	}
}

type ingestEnvelope struct {
	Packets json.RawMessage `json:"packets"`
}

// Ingest validates the request envelope and schedules the batch for
// background processing. It returns the number of records accepted for
// processing, model.ErrValidation for a missing, empty or non-array payload and
// model.ErrBusy when the pipeline queue is full.
func (c *Collector) Ingest(body []byte) (int, error) {
	var env ingestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, fmt.Errorf("%w: malformed body: %v", model.ErrValidation, err)
	}
	if len(env.Packets) == 0 || string(env.Packets) == "null" {
		return 0, fmt.Errorf("%w: missing packets", model.ErrValidation)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(env.Packets, &raws); err != nil {
		return 0, fmt.Errorf("%w: packets must be an array", model.ErrValidation)
	}
	if len(raws) == 0 {
		return 0, fmt.Errorf("%w: no packets", model.ErrValidation)
	}

	if err := c.tasks.Submit(func() { c.Process(context.Background(), raws) }); err != nil {
		metrics.BatchesIngested.WithLabelValues("rejected").Inc()
		return 0, err
	}
	return len(raws), nil
}

// Process runs one batch to completion: persistence, then routing and
// alerts, then one traffic event per persisted record.
func (c *Collector) Process(ctx context.Context, raws []json.RawMessage) BatchResult {
	start := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	res := BatchResult{Received: len(raws), Route: RouteNone}
	valid := make([]model.TrafficRecord, 0, len(raws))
	now := c.now()
	for i, raw := range raws {
		rec, reason := decodeRecord(raw, now)
		if reason != "" {
			res.Skipped = append(res.Skipped, model.Skip(i, reason))
			continue
		}
		valid = append(valid, rec)
	}
	if n := len(res.Skipped); n > 0 {
		metrics.RecordsSkipped.WithLabelValues("validation").Add(float64(n))
		c.log.Warn().Int("skipped", n).Int("received", len(raws)).
			Interface("reasons", model.SummarizeSkips(res.Skipped)).Msg("invalid records skipped")
	}
	if len(valid) == 0 {
		metrics.BatchesIngested.WithLabelValues("empty").Inc()
		return res
	}

	saved, err := c.store.SaveTraffic(ctx, valid)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", model.ErrPersistence, err)
		metrics.BatchesIngested.WithLabelValues("failed").Inc()
		c.log.Error().Err(err).Int("records", len(valid)).Msg("batch persistence failed, batch abandoned")
		return res
	}
	res.Persisted = saved
	metrics.RecordsPersisted.Add(float64(len(saved)))

	switch {
	case c.training.Offer(saved):
		res.Route = RouteTraining
	case c.scorer.IsTrained():
		res.Route = RouteScoring
		res.Alerts = c.score(ctx, saved)
	}

	for _, rec := range saved {
		c.publisher.Publish(model.TrafficEvent(rec))
	}
	metrics.BatchesIngested.WithLabelValues("ok").Inc()
	c.log.Debug().Int("persisted", len(saved)).Str("route", string(res.Route)).
		Int("alerts", len(res.Alerts)).Msg("batch processed")
	return res
}

// score raises one alert per flagged record. Flagged indices are positions
// in saved, so each maps to its persisted record exactly once.
func (c *Collector) score(ctx context.Context, saved []model.TrafficRecord) []model.Alert {
	pred, err := c.scorer.Predict(saved)
	if err != nil {
		c.log.Error().Err(err).Int("records", len(saved)).Msg("prediction failed")
		c.publisher.Publish(model.SystemEvent(MsgScoringFailed))
		return nil
	}
	if n := len(pred.Skipped); n > 0 {
		metrics.RecordsSkipped.WithLabelValues("features").Add(float64(n))
		c.log.Warn().Int("skipped", n).Interface("reasons", model.SummarizeSkips(pred.Skipped)).
			Msg("records skipped during scoring")
	}

	var alerts []model.Alert
	for _, idx := range pred.Indices {
		alert, err := c.store.SaveAlert(ctx, model.NewAnomalyAlert(saved[idx], c.now()))
		if err != nil {
			c.log.Error().Err(err).Uint64("traffic_record", saved[idx].ID).Msg("failed to persist alert")
			continue
		}
		metrics.AlertsRaised.Inc()
		alerts = append(alerts, alert)
		c.publisher.Publish(model.AlertEvent(alert))
	}
	if len(alerts) > 0 {
		c.log.Info().Int("alerts", len(alerts)).Msg("anomalies detected")
	}
	return alerts
}
