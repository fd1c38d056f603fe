// Package broadcast fans events out to every current subscriber. Publish
// never blocks: a subscriber whose buffer is full misses the event.
package broadcast

import (
	"sync"
	"sync/atomic"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/model"

	"github.com/rs/zerolog"
)

// DefaultBuffer is the per-subscriber queue length used by Subscribe(0).
const DefaultBuffer = 256

var subscriptionIDCounter atomic.Uint64

// Subscription is a handle returned by Group.Subscribe. Events arrive on C,
// which is closed by Unsubscribe or Group.Close.
type Subscription struct {
	id uint64
	C  <-chan model.Event
	ch chan model.Event
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uint64 { return s.id }

// Group is a named set of subscribers.
type Group struct {
	name string
	mu   sync.RWMutex
	subs map[uint64]*Subscription
	log  zerolog.Logger
}

// NewGroup creates an empty group.
func NewGroup(name string) *Group {
	return &Group{
		name: name,
		subs: make(map[uint64]*Subscription),
		log:  logging.With("broadcast").With().Str("group", name).Logger(),
	}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Subscribe registers a new subscriber with the given buffer size. It only
// receives events published after it joined.
func (g *Group) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan model.Event, buffer)
	s := &Subscription{id: subscriptionIDCounter.Add(1), C: ch, ch: ch}

	g.mu.Lock()
	g.subs[s.id] = s
	n := len(g.subs)
	g.mu.Unlock()

	metrics.Subscribers.Inc()
	g.log.Debug().Uint64("subscription", s.id).Int("total", n).Msg("subscriber joined")
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (g *Group) Unsubscribe(s *Subscription) {
	g.mu.Lock()
	_, ok := g.subs[s.id]
	if ok {
		delete(g.subs, s.id)
		close(s.ch)
	}
	n := len(g.subs)
	g.mu.Unlock()

	if ok {
		metrics.Subscribers.Dec()
		g.log.Debug().Uint64("subscription", s.id).Int("total", n).Msg("subscriber left")
	}
}

// Publish offers e to every subscriber without waiting on any of them.
func (g *Group) Publish(e model.Event) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.subs {
		select {
		case s.ch <- e:
		default:
			metrics.EventsDropped.WithLabelValues(string(e.Kind)).Inc()
			g.log.Debug().Uint64("subscription", s.id).Str("kind", string(e.Kind)).Msg("subscriber full, event dropped")
		}
	}
}

// Len returns the number of current subscribers.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subs)
}

// Close unsubscribes everyone.
func (g *Group) Close() {
	g.mu.Lock()
	n := len(g.subs)
	for id, s := range g.subs {
		delete(g.subs, id)
		close(s.ch)
	}
	g.mu.Unlock()
	metrics.Subscribers.Sub(float64(n))
	g.log.Info().Int("closed", n).Msg("broadcast group closed")
}

// Publishers forwards each event to every publisher in order.
type Publishers []model.Publisher

// Publish implements model.Publisher.
func (ps Publishers) Publish(e model.Event) {
	for _, p := range ps {
		p.Publish(e)
	}
}
