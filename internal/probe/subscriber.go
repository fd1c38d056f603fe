package probe

import (
	"NetSentinel/internal/config"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventHandler processes a relayed event.
type EventHandler func(e model.Event)

// Subscriber is responsible for subscribing to relay subjects and decoding events.
type Subscriber struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	prefix string
	log    zerolog.Logger
}

// NewSubscriber connects to the configured NATS server.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("netsentinel-observer"))
	if err != nil {
		return nil, err
	}
	s := &Subscriber{nc: nc, prefix: cfg.SubjectPrefix, log: logging.With("relay")}
	s.log.Info().Str("url", cfg.URL).Msg("connected to NATS server")
	return s, nil
}

// Start subscribes to the given kinds, or to every kind when none is given.
func (s *Subscriber) Start(handler EventHandler, kinds ...model.EventKind) error {
	subject := s.prefix + ".>"
	if len(kinds) == 1 {
		subject = Subject(s.prefix, kinds[0])
	}
	want := make(map[model.EventKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		e, err := DecodeEvent(msg.Data)
		if err != nil {
			s.log.Warn().Err(err).Str("subject", msg.Subject).Msg("failed to decode relayed event")
			return
		}
		if len(want) > 0 && !want[e.Kind] {
			return
		}
		handler(e)
	})
	if err != nil {
		return err
	}
	if err := s.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return err
	}
	s.sub = sub
	s.log.Info().Str("subject", subject).Msg("subscribed, waiting for events")
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		s.log.Info().Msg("NATS connection closed")
	}
}
