// Package scorer wraps the outlier model behind a fit/predict contract.
// The scaler and classifier are published together through one atomic
// pointer, so a predict observes either the old pair or the new one.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"NetSentinel/internal/detector"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/model"
	"NetSentinel/internal/snapshot"

	"github.com/rs/zerolog"
)

const minTrainingRows = 2

type trained struct {
	scaler *detector.StandardScaler
	forest *detector.IsolationForest
}

// Scorer is safe for concurrent use. Fits are serialized; predicts never block on a fit.
type Scorer struct {
	opts    detector.Options
	writer  *snapshot.Writer
	current atomic.Pointer[trained]
	fitMu   sync.Mutex
	log     zerolog.Logger
}

// New creates an untrained scorer. writer may be nil to keep artifacts in memory only.
func New(opts detector.Options, writer *snapshot.Writer) *Scorer {
	return &Scorer{
		opts:   opts,
		writer: writer,
		log:    logging.With("scorer"),
	}
}

// LoadArtifacts installs a previously persisted pair. A missing pair leaves
// the scorer untrained and returns snapshot.ErrNoArtifacts.
func (s *Scorer) LoadArtifacts() error {
	if s.writer == nil {
		return snapshot.ErrNoArtifacts
	}
	scaler, forest, err := s.writer.Load()
	if err != nil {
		return err
	}
	if len(scaler.Mean) != NumFeatures {
		return fmt.Errorf("%w: artifacts have %d features, want %d", model.ErrModel, len(scaler.Mean), NumFeatures)
	}
	s.current.Store(&trained{scaler: scaler, forest: forest})
	s.log.Info().Str("dir", s.writer.Dir()).Msg("loaded model artifacts")
	return nil
}

// IsTrained reports whether a model pair is installed.
func (s *Scorer) IsTrained() bool {
	return s.current.Load() != nil
}

// Fit trains a fresh scaler and classifier on records and swaps them in.
// On any failure, including ctx expiring before the swap, the previous pair
// stays installed and the error wraps model.ErrModel.
func (s *Scorer) Fit(ctx context.Context, records []model.TrafficRecord) error {
	s.fitMu.Lock()
	defer s.fitMu.Unlock()

	features := ExtractFeatures(records)
	if n := len(features.Skipped); n > 0 {
		s.log.Warn().Int("skipped", n).Interface("reasons", model.SummarizeSkips(features.Skipped)).
			Msg("records skipped during fit")
	}
	if len(features.Rows) < minTrainingRows {
		metrics.ModelFits.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: need at least %d valid rows, got %d", model.ErrModel, minTrainingRows, len(features.Rows))
	}

	scaler, err := detector.FitScaler(features.Rows)
	if err != nil {
		metrics.ModelFits.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: fit scaler: %v", model.ErrModel, err)
	}
	scaled, err := scaler.Transform(features.Rows)
	if err != nil {
		metrics.ModelFits.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: scale rows: %v", model.ErrModel, err)
	}
	forest, err := detector.FitContext(ctx, scaled, s.opts)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		status := "failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = "timeout"
		}
		metrics.ModelFits.WithLabelValues(status).Inc()
		return fmt.Errorf("%w: fit classifier: %w", model.ErrModel, err)
	}

	s.current.Store(&trained{scaler: scaler, forest: forest})
	metrics.ModelFits.WithLabelValues("success").Inc()
	s.log.Info().Int("rows", len(features.Rows)).Float64("threshold", forest.Threshold).Msg("model trained")

	if s.writer != nil {
		if err := s.writer.Write(scaler, forest, len(features.Rows)); err != nil {
			s.log.Error().Err(err).Msg("failed to persist model artifacts")
		}
	}
	return nil
}

// Prediction holds the records flagged anomalous and their positions in the
// input batch.
type Prediction struct {
	Records []model.TrafficRecord
	Indices []int
	Skipped []model.RecordResult
}

// Predict classifies records with the installed pair. An untrained scorer
// returns an empty prediction and no error.
func (s *Scorer) Predict(records []model.TrafficRecord) (Prediction, error) {
	var p Prediction
	m := s.current.Load()
	if m == nil || len(records) == 0 {
		return p, nil
	}

	features := ExtractFeatures(records)
	p.Skipped = features.Skipped
	if len(features.Rows) == 0 {
		return p, nil
	}
	scaled, err := m.scaler.Transform(features.Rows)
	if err != nil {
		return p, fmt.Errorf("%w: scale rows: %v", model.ErrModel, err)
	}
	labels, err := m.forest.Predict(scaled)
	if err != nil {
		return p, fmt.Errorf("%w: classify rows: %v", model.ErrModel, err)
	}
	for row, outlier := range labels {
		if !outlier {
			continue
		}
		idx := features.Index[row]
		p.Records = append(p.Records, records[idx])
		p.Indices = append(p.Indices, idx)
	}
	return p, nil
}
