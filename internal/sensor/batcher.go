package sensor

import (
	"context"
	"sync"
	"time"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/metrics"
	"NetSentinel/internal/model"

	"github.com/rs/zerolog"
)

// DefaultSendTimeout bounds a single batch send.
const DefaultSendTimeout = 10 * time.Second

// Flush triggers, used as log fields and metric labels.
const (
	TriggerSize     = "size"
	TriggerTimer    = "timer"
	TriggerShutdown = "shutdown"
)

// Sender delivers one batch to the collector.
type Sender interface {
	Send(ctx context.Context, batch []model.TrafficRecord) error
}

// Batcher accumulates records and flushes them when the buffer reaches
// batchSize or when interval elapses, whichever comes first. Sends happen
// outside the buffer lock. Failed batches are dropped. A send that has
// started is not aborted when the caller's context is cancelled; it runs to
// completion or to its own send timeout.
type Batcher struct {
	sender      Sender
	batchSize   int
	interval    time.Duration
	sendTimeout time.Duration
	log         zerolog.Logger

	mu  sync.Mutex
	buf []model.TrafficRecord
}

// NewBatcher creates a Batcher. It does not start the timer; call Run.
func NewBatcher(sender Sender, batchSize int, interval time.Duration) *Batcher {
	return &Batcher{
		sender:      sender,
		batchSize:   batchSize,
		interval:    interval,
		sendTimeout: DefaultSendTimeout,
		log:         logging.With("batcher"),
		buf:         make([]model.TrafficRecord, 0, batchSize),
	}
}

// SetSendTimeout changes the per-send deadline. Call before Run.
func (b *Batcher) SetSendTimeout(d time.Duration) {
	if d > 0 {
		b.sendTimeout = d
	}
}

// Add appends a record and flushes synchronously once the size threshold is reached.
func (b *Batcher) Add(ctx context.Context, rec model.TrafficRecord) {
	b.mu.Lock()
	b.buf = append(b.buf, rec)
	var batch []model.TrafficRecord
	if len(b.buf) >= b.batchSize {
		batch = b.swap()
	}
	b.mu.Unlock()

	if batch != nil {
		b.send(ctx, batch, TriggerSize)
	}
}

// Flush sends whatever is buffered. An empty buffer produces no send.
func (b *Batcher) Flush(ctx context.Context, trigger string) {
	b.mu.Lock()
	batch := b.swap()
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	b.send(ctx, batch, trigger)
}

// Run flushes every interval until ctx is done. It does not perform the
// shutdown flush; call Close for that.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Flush(ctx, TriggerTimer)
		case <-ctx.Done():
			return
		}
	}
}

// Close performs the final flush of any remaining records. It uses its own
// context since the capture context is usually already cancelled.
func (b *Batcher) Close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	b.Flush(ctx, TriggerShutdown)
}

// Len returns the number of buffered records.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// swap must be called with mu held.
func (b *Batcher) swap() []model.TrafficRecord {
	if len(b.buf) == 0 {
		return nil
	}
	batch := b.buf
	b.buf = make([]model.TrafficRecord, 0, b.batchSize)
	return batch
}

func (b *Batcher) send(ctx context.Context, batch []model.TrafficRecord, trigger string) {
	b.log.Info().Int("records", len(batch)).Str("trigger", trigger).Msg("sending batch")
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.sendTimeout)
	defer cancel()
	if err := b.sender.Send(sendCtx, batch); err != nil {
		metrics.BatchesFlushed.WithLabelValues(trigger, "dropped").Inc()
		b.log.Error().Err(err).Int("records", len(batch)).Msg("batch dropped")
		return
	}
	metrics.BatchesFlushed.WithLabelValues(trigger, "sent").Inc()
	b.log.Debug().Int("records", len(batch)).Msg("batch sent")
}
