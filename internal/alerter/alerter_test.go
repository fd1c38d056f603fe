package alerter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct{ subject, body string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Send(subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{subject, body})
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func alertEvent(msg string) model.Event {
	id := uint64(9)
	return model.AlertEvent(model.Alert{
		Timestamp:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Message:         msg,
		Severity:        model.SeverityLow,
		TrafficRecordID: &id,
	})
}

func TestNewAlerterValidates(t *testing.T) {
	_, err := NewAlerter(config.AlerterConfig{CheckInterval: "soon"}, &fakeNotifier{})
	assert.Error(t, err)
	_, err = NewAlerter(config.AlerterConfig{CheckInterval: "1m"}, nil)
	assert.Error(t, err)
}

func TestFlushSendsDigestOfAlertsOnly(t *testing.T) {
	n := &fakeNotifier{}
	a, err := NewAlerter(config.AlerterConfig{CheckInterval: "1m"}, n)
	require.NoError(t, err)

	a.Publish(model.SystemEvent("ignored"))
	a.Publish(model.TrafficEvent(model.TrafficRecord{ID: 1}))
	a.Publish(alertEvent("Anomaly detected: <odd> traffic"))
	a.Publish(alertEvent("second"))
	a.Flush()

	require.Equal(t, 1, n.count())
	assert.Equal(t, "NetSentinel Alert Summary (2 Triggered)", n.sent[0].subject)
	assert.Contains(t, n.sent[0].body, "&lt;odd&gt;")
	assert.Contains(t, n.sent[0].body, "(record 9)")

	a.Flush()
	assert.Equal(t, 1, n.count(), "empty window sends nothing")
}

func TestStopRightAfterStartFlushesOnce(t *testing.T) {
	n := &fakeNotifier{}
	a, err := NewAlerter(config.AlerterConfig{CheckInterval: "1h"}, n)
	require.NoError(t, err)

	a.Start()
	a.Publish(alertEvent("pending"))
	a.Stop()
	assert.Equal(t, 1, n.count())
}

func TestSendFailureIsNotRetried(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp down")}
	a, err := NewAlerter(config.AlerterConfig{CheckInterval: "1m"}, n)
	require.NoError(t, err)

	a.Publish(alertEvent("x"))
	a.Flush()
	n.err = nil
	a.Flush()
	assert.Equal(t, 0, n.count())
}

func TestTickerAndStop(t *testing.T) {
	n := &fakeNotifier{}
	a, err := NewAlerter(config.AlerterConfig{CheckInterval: "20ms"}, n)
	require.NoError(t, err)
	a.Start()

	a.Publish(alertEvent("first"))
	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 5*time.Millisecond)

	a.Publish(alertEvent("at shutdown"))
	a.Stop()
	a.Stop()
	assert.Equal(t, 2, n.count())
}
