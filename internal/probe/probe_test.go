package probe

import (
	"testing"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.UTC)

func TestCodecPreservesEvents(t *testing.T) {
	id := uint64(17)
	events := []model.Event{
		model.TrafficEvent(model.TrafficRecord{
			ID: 17, Timestamp: ts, SourceIP: "10.0.0.5", DestIP: "10.0.0.1",
			SourcePort: 40000, DestPort: 80, Protocol: model.ProtocolTCP, PacketSize: 60, TCPFlags: "S",
		}),
		model.AlertEvent(model.Alert{ID: 3, Timestamp: ts, Message: "Anomaly detected", Severity: model.SeverityLow, TrafficRecordID: &id}),
		model.AlertEvent(model.Alert{ID: 4, Timestamp: ts, Message: "unbound", Severity: model.SeverityHigh}),
		model.SystemEvent("Model training complete and is now active."),
	}
	for _, e := range events {
		data, err := EncodeEvent(e)
		require.NoError(t, err)
		got, err := DecodeEvent(data)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
}

func TestCodecRejectsIncompleteEvents(t *testing.T) {
	_, err := EncodeEvent(model.Event{Kind: model.EventTraffic})
	assert.Error(t, err)
	_, err = EncodeEvent(model.Event{Kind: "bogus"})
	assert.Error(t, err)
	_, err = DecodeEvent([]byte("not protobuf at all"))
	assert.Error(t, err)
}

func startServer(t *testing.T) config.NATSConfig {
	t.Helper()
	srv, err := StartEmbeddedServer(config.NATSConfig{EmbeddedHost: "127.0.0.1", EmbeddedPort: -1})
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)
	return config.NATSConfig{Enabled: true, URL: srv.ClientURL(), SubjectPrefix: "test.events"}
}

func TestRelayEndToEnd(t *testing.T) {
	cfg := startServer(t)

	sub, err := NewSubscriber(cfg)
	require.NoError(t, err)
	defer sub.Close()
	got := make(chan model.Event, 4)
	require.NoError(t, sub.Start(func(e model.Event) { got <- e }))

	pub, err := NewPublisher(cfg)
	require.NoError(t, err)
	defer pub.Close()

	pub.Publish(model.SystemEvent("hello"))
	pub.Publish(model.TrafficEvent(model.TrafficRecord{ID: 1, Timestamp: ts, SourceIP: "10.0.0.5", Protocol: model.ProtocolUDP}))

	for _, want := range []model.EventKind{model.EventSystem, model.EventTraffic} {
		select {
		case e := <-got:
			assert.Equal(t, want, e.Kind)
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s event relayed", want)
		}
	}
}

func TestSubscriberFiltersKinds(t *testing.T) {
	cfg := startServer(t)

	sub, err := NewSubscriber(cfg)
	require.NoError(t, err)
	defer sub.Close()
	got := make(chan model.Event, 4)
	require.NoError(t, sub.Start(func(e model.Event) { got <- e }, model.EventAlert, model.EventSystem))

	pub, err := NewPublisher(cfg)
	require.NoError(t, err)
	defer pub.Close()

	pub.Publish(model.TrafficEvent(model.TrafficRecord{ID: 1, Timestamp: ts}))
	pub.Publish(model.SystemEvent("only this"))

	select {
	case e := <-got:
		assert.Equal(t, model.EventSystem, e.Kind)
		assert.Equal(t, "only this", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no event relayed")
	}
	assert.Empty(t, got)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "netsentinel.events.alert", Subject("netsentinel.events", model.EventAlert))
}
