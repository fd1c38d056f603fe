package sensor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"NetSentinel/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSenderAccepted(t *testing.T) {
	type received struct {
		body     IngestRequest
		sensorID string
	}
	ch := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rcv received
		rcv.sensorID = r.Header.Get(SensorIDHeader)
		if err := json.NewDecoder(r.Body).Decode(&rcv.body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ch <- rcv
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{URL: srv.URL, Timeout: time.Second})
	err := s.Send(context.Background(), []model.TrafficRecord{synRecord(1), synRecord(2)})

	require.NoError(t, err)
	rcv := <-ch
	got, sensorID := rcv.body, rcv.sensorID
	require.Len(t, got.Packets, 2)
	assert.Equal(t, "S", got.Packets[0].TCPFlags)
	assert.Equal(t, s.SensorID(), sensorID)
}

func TestHTTPSenderRejectsNon202(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{URL: srv.URL, Timeout: time.Second})
	err := s.Send(context.Background(), []model.TrafficRecord{synRecord(1)})

	assert.ErrorIs(t, err, model.ErrTransport)
}

func TestHTTPSenderConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{URL: url, Timeout: time.Second})
	err := s.Send(context.Background(), []model.TrafficRecord{synRecord(1)})

	assert.ErrorIs(t, err, model.ErrTransport)
}

func TestHTTPSenderBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPSenderConfig{URL: srv.URL, Timeout: time.Second, FailureThreshold: 2, OpenTimeout: time.Minute})
	for i := 0; i < 5; i++ {
		err := s.Send(context.Background(), []model.TrafficRecord{synRecord(i)})
		assert.ErrorIs(t, err, model.ErrTransport)
	}

	assert.Equal(t, int32(2), hits.Load(), "breaker stops calls after the threshold")
}
