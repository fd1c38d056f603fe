package storage

import (
	"context"
	"testing"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rec(src string, proto model.Protocol, offset time.Duration) model.TrafficRecord {
	return model.TrafficRecord{Timestamp: t0.Add(offset), SourceIP: src, DestIP: "10.0.0.1", Protocol: proto}
}

func TestMemorySaveTrafficAssignsIDsInOrder(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	saved, err := s.SaveTraffic(ctx, []model.TrafficRecord{rec("a", model.ProtocolTCP, 0), rec("b", model.ProtocolUDP, 0)})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, uint64(1), saved[0].ID)
	assert.Equal(t, "a", saved[0].SourceIP)
	assert.Equal(t, uint64(2), saved[1].ID)

	more, err := s.SaveTraffic(ctx, []model.TrafficRecord{rec("c", model.ProtocolTCP, 0)})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), more[0].ID)
}

func TestMemoryCancelledSaveStoresNothing(t *testing.T) {
	s := NewMemoryStore(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SaveTraffic(ctx, []model.TrafficRecord{rec("a", model.ProtocolTCP, 0)})
	assert.ErrorIs(t, err, context.Canceled)

	all, err := s.QueryTraffic(context.Background(), model.TrafficQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)

	saved, err := s.SaveTraffic(context.Background(), []model.TrafficRecord{rec("a", model.ProtocolTCP, 0)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), saved[0].ID)
}

func TestMemoryQueryTrafficFiltersNewestFirst(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	_, err := s.SaveTraffic(ctx, []model.TrafficRecord{
		rec("a", model.ProtocolTCP, 1*time.Second),
		rec("b", model.ProtocolUDP, 2*time.Second),
		rec("a", model.ProtocolUDP, 3*time.Second),
		rec("a", model.ProtocolTCP, 4*time.Second),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		q    model.TrafficQuery
		ids  []uint64
	}{
		{"all", model.TrafficQuery{}, []uint64{4, 3, 2, 1}},
		{"by source", model.TrafficQuery{SourceIP: "a"}, []uint64{4, 3, 1}},
		{"by protocol", model.TrafficQuery{Protocol: model.ProtocolUDP}, []uint64{3, 2}},
		{"since", model.TrafficQuery{Since: t0.Add(3 * time.Second)}, []uint64{4, 3}},
		{"limit", model.TrafficQuery{Limit: 2}, []uint64{4, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryTraffic(ctx, tt.q)
			require.NoError(t, err)
			var ids []uint64
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.SaveTraffic(ctx, []model.TrafficRecord{rec("a", model.ProtocolTCP, time.Duration(i)*time.Second)})
		require.NoError(t, err)
	}
	got, err := s.QueryTraffic(ctx, model.TrafficQuery{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].ID)
	assert.Equal(t, uint64(2), got[1].ID)
}

func TestMemoryAlerts(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		a := model.NewAnomalyAlert(rec("a", model.ProtocolTCP, 0), t0.Add(time.Duration(i)*time.Minute))
		saved, err := s.SaveAlert(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), saved.ID)
	}

	got, err := s.QueryAlerts(ctx, model.AlertQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].ID)

	none, err := s.QueryAlerts(ctx, model.AlertQuery{Severity: model.SeverityHigh})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStats(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	_, err := s.SaveTraffic(ctx, []model.TrafficRecord{
		rec("a", model.ProtocolTCP, 0),
		rec("a", model.ProtocolTCP, 0),
		rec("b", model.ProtocolUDP, 0),
		rec("c", model.ProtocolTCP, 0),
	})
	require.NoError(t, err)

	stats, err := s.Stats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []model.Count{{Key: "TCP", Count: 3}, {Key: "UDP", Count: 1}}, stats.ProtocolBreakdown)
	assert.Equal(t, []model.Count{{Key: "a", Count: 2}, {Key: "b", Count: 1}}, stats.TopSources)
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(config.StorageConfig{Type: "cassandra"})
	assert.Error(t, err)
}
