package sensor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

// SensorIDHeader carries the sending sensor's instance id.
const SensorIDHeader = "X-Sensor-ID"

// IngestRequest is the body posted to the collector.
type IngestRequest struct {
	Packets []model.TrafficRecord `json:"packets"`
}

// HTTPSenderConfig configures an HTTPSender.
type HTTPSenderConfig struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// HTTPSender posts batches to the collector's ingest endpoint. Only 202 counts
// as success. A circuit breaker stops calls to an unreachable collector; while
// it is open batches fail fast and are dropped like any other failed send.
type HTTPSender struct {
	url      string
	sensorID string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

// NewHTTPSender creates an HTTPSender with a fresh sensor id.
func NewHTTPSender(cfg HTTPSenderConfig) *HTTPSender {
	log := logging.With("sender")
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:    "collector",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &HTTPSender{
		url:      cfg.URL,
		sensorID: uuid.NewString(),
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// SensorID returns the id sent with every batch.
func (s *HTTPSender) SensorID() string {
	return s.sensorID
}

// Send posts one batch. Every failure wraps model.ErrTransport.
func (s *HTTPSender) Send(ctx context.Context, batch []model.TrafficRecord) error {
	body, err := json.Marshal(IngestRequest{Packets: batch})
	if err != nil {
		return fmt.Errorf("%w: encode batch: %v", model.ErrTransport, err)
	}

	_, err = s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransport, err)
	}
	return nil
}

func (s *HTTPSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SensorIDHeader, s.sensorID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collector returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
