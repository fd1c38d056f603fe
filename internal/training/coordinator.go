// Package training implements the baseline collection state machine that
// feeds the scorer's fit.
package training

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"
	"NetSentinel/internal/pipeline"

	"github.com/rs/zerolog"
)

// Status messages published on the system channel.
const (
	MsgFitSucceeded = "Model training complete and is now active."
	MsgFitFailed    = "Model training failed. Please check logs."
)

// Fitter trains a model on a baseline sample.
type Fitter interface {
	Fit(ctx context.Context, records []model.TrafficRecord) error
}

// Submitter schedules background work without blocking.
type Submitter interface {
	Submit(task pipeline.Task) error
}

// State is the coordinator's collection state.
type State int

const (
	Idle State = iota
	Collecting
)

func (s State) String() string {
	if s == Collecting {
		return "collecting"
	}
	return "idle"
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	State     State
	Collected int
	Target    int
}

// Coordinator owns the single training session. state and buffer are only
// touched under mu.
type Coordinator struct {
	mu     sync.Mutex
	state  State
	buffer []model.TrafficRecord

	target     int
	fitTimeout time.Duration
	fitter     Fitter
	tasks      Submitter
	publisher  model.Publisher
	log        zerolog.Logger
}

// NewCoordinator creates an idle coordinator that fits once target records
// have been collected. A zero fitTimeout disables the timeout.
func NewCoordinator(fitter Fitter, tasks Submitter, publisher model.Publisher, target int, fitTimeout time.Duration) *Coordinator {
	return &Coordinator{
		target:     target,
		fitTimeout: fitTimeout,
		fitter:     fitter,
		tasks:      tasks,
		publisher:  publisher,
		log:        logging.With("training"),
	}
}

// Start switches to Collecting with an empty buffer. A second call while
// collecting returns model.ErrAlreadyCollecting and changes nothing.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.state == Collecting {
		c.mu.Unlock()
		return model.ErrAlreadyCollecting
	}
	c.state = Collecting
	c.buffer = make([]model.TrafficRecord, 0, c.target)
	c.mu.Unlock()

	c.log.Info().Int("target", c.target).Msg("baseline collection started")
	c.publisher.Publish(model.SystemEvent(
		fmt.Sprintf("Starting ML model training. Collecting %d packets for baseline...", c.target)))
	return nil
}

// Offer hands a persisted batch to the coordinator. When collecting, the
// whole batch is appended and Offer returns true; the state check and the
// append happen under one lock. Reaching the target copies and clears the
// buffer, returns to Idle and schedules exactly one fit before Offer returns.
func (c *Coordinator) Offer(records []model.TrafficRecord) bool {
	c.mu.Lock()
	if c.state != Collecting {
		c.mu.Unlock()
		return false
	}
	c.buffer = append(c.buffer, records...)
	if len(c.buffer) < c.target {
		c.mu.Unlock()
		return true
	}
	sample := make([]model.TrafficRecord, len(c.buffer))
	copy(sample, c.buffer)
	c.buffer = nil
	c.state = Idle
	c.mu.Unlock()

	c.log.Info().Int("samples", len(sample)).Msg("baseline complete, scheduling fit")
	if err := c.tasks.Submit(func() { c.fit(sample) }); err != nil {
		c.log.Error().Err(err).Msg("could not schedule fit")
		c.publisher.Publish(model.SystemEvent(MsgFitFailed))
	}
	return true
}

func (c *Coordinator) fit(sample []model.TrafficRecord) {
	ctx := context.Background()
	if c.fitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fitTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := c.fitter.Fit(ctx, sample); err != nil {
		c.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("fit failed")
		c.publisher.Publish(model.SystemEvent(MsgFitFailed))
		return
	}
	c.log.Info().Dur("elapsed", time.Since(start)).Msg("fit succeeded")
	c.publisher.Publish(model.SystemEvent(MsgFitSucceeded))
}

// Status returns the current state and buffer fill.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Collected: len(c.buffer), Target: c.target}
}
