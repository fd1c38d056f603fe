package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/model"

	"github.com/rs/zerolog"
)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("pool stopped")

// Task is a unit of background work.
type Task func()

// Pool runs tasks on a fixed set of workers fed by a bounded queue.
type Pool struct {
	name       string
	tasks      chan Task
	numWorkers int
	workerWg   sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	log     zerolog.Logger
}

// NewPool creates a pool; call Start before submitting.
func NewPool(name string, numWorkers, queueSize int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		name:       name,
		tasks:      make(chan Task, queueSize),
		numWorkers: numWorkers,
		log:        logging.With("pool").With().Str("pool", name).Logger(),
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.workerWg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.worker()
	}
	p.log.Info().Int("workers", p.numWorkers).Int("queue", cap(p.tasks)).Msg("pool started")
}

// Submit enqueues task without blocking. It returns model.ErrBusy when the
// queue is full and ErrStopped once the pool is shutting down.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.tasks <- task:
		metrics.PoolQueueDepth.Set(float64(len(p.tasks)))
		return nil
	default:
		return fmt.Errorf("%w: %s queue full", model.ErrBusy, p.name)
	}
}

// Stop stops accepting tasks, runs everything already queued and waits
// for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.workerWg.Wait()
	p.log.Info().Msg("pool stopped")
}

func (p *Pool) worker() {
	defer p.workerWg.Done()
	for task := range p.tasks {
		metrics.PoolQueueDepth.Set(float64(len(p.tasks)))
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("task panicked")
		}
	}()
	task()
}
