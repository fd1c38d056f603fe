package alerter

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Alerter collects alert events and periodically sends one consolidated
// notification for everything raised since the previous check.
type Alerter struct {
	notifier      model.Notifier
	checkInterval time.Duration

	mu      sync.Mutex
	pending []model.Alert

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewAlerter creates a new Alerter.
func NewAlerter(cfg config.AlerterConfig, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid alerter check interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("alerter check interval must be positive")
	}
	if notifier == nil {
		return nil, fmt.Errorf("alerter requires a notifier")
	}
	return &Alerter{
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
		log:           logging.With("alerter"),
	}, nil
}

// Publish implements model.Publisher; only alert events are kept.
func (a *Alerter) Publish(e model.Event) {
	if e.Kind != model.EventAlert || e.Alert == nil {
		return
	}
	a.mu.Lock()
	a.pending = append(a.pending, *e.Alert)
	a.mu.Unlock()
}

// Start launches the periodic check loop; it runs until Stop is called.
func (a *Alerter) Start() {
	a.wg.Add(1)
	go a.run()
	a.log.Info().Dur("interval", a.checkInterval).Msg("alerter started")
}

func (a *Alerter) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Flush()
		case <-a.stopChan:
			return
		}
	}
}

// Stop ends the loop and sends whatever is still pending.
func (a *Alerter) Stop() {
	a.stopOnce.Do(func() {
		a.log.Info().Msg("stopping alerter")
		close(a.stopChan)
		a.wg.Wait()
		a.Flush()
	})
}

// Flush sends a digest of the pending alerts. Nothing is sent when no
// alert was raised since the last flush.
func (a *Alerter) Flush() {
	a.mu.Lock()
	alerts := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(alerts) == 0 {
		return
	}

	subject := fmt.Sprintf("NetSentinel Alert Summary (%d Triggered)", len(alerts))
	if err := a.notifier.Send(subject, digestBody(alerts)); err != nil {
		a.log.Error().Err(err).Int("alerts", len(alerts)).Msg("failed to send consolidated alert notification")
		return
	}
	a.log.Info().Int("alerts", len(alerts)).Msg("consolidated alert notification sent")
}

func digestBody(alerts []model.Alert) string {
	var b strings.Builder
	b.WriteString("<h1>NetSentinel Alert Summary</h1>")
	b.WriteString("<p>The following alerts were raised during the last check:</p><hr><ul>")
	for _, al := range alerts {
		fmt.Fprintf(&b, "<li>[%s] %s %s",
			html.EscapeString(string(al.Severity)),
			al.Timestamp.UTC().Format(time.RFC3339),
			html.EscapeString(al.Message))
		if al.TrafficRecordID != nil {
			fmt.Fprintf(&b, " (record %d)", *al.TrafficRecordID)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
