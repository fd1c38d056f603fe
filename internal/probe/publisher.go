// Package probe relays broadcast events over NATS so observers outside the
// collector process can follow them.
package probe

import (
	"NetSentinel/internal/config"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subject returns the relay subject for an event kind.
func Subject(prefix string, kind model.EventKind) string {
	return prefix + "." + string(kind)
}

// Publisher is responsible for publishing events to NATS subjects.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("netsentinel-collector"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	p := &Publisher{nc: nc, prefix: cfg.SubjectPrefix, log: logging.With("relay")}
	p.log.Info().Str("url", cfg.URL).Str("prefix", cfg.SubjectPrefix).Msg("connected to NATS server")
	return p, nil
}

// Publish implements model.Publisher. Failures are logged and the event is
// dropped; the relay is at-most-once like the in-process group.
func (p *Publisher) Publish(e model.Event) {
	data, err := EncodeEvent(e)
	if err != nil {
		p.log.Error().Err(err).Str("kind", string(e.Kind)).Msg("failed to encode event")
		return
	}
	if err := p.nc.Publish(Subject(p.prefix, e.Kind), data); err != nil {
		metrics.EventsDropped.WithLabelValues(string(e.Kind)).Inc()
		p.log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("failed to relay event")
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.log.Info().Msg("NATS connection drained and closed")
	}
}
