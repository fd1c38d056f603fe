package storage

import (
	"context"
	"sort"
	"sync"

	"NetSentinel/internal/model"
)

// MemoryStore keeps the most recent records and alerts in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	capacity  int
	traffic   []model.TrafficRecord
	alerts    []model.Alert
	nextID    uint64
	nextAlert uint64
}

// NewMemoryStore creates a store retaining at most capacity records and
// capacity alerts; the oldest are evicted first.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) SaveTraffic(ctx context.Context, records []model.TrafficRecord) ([]model.TrafficRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]model.TrafficRecord, len(records))
	for i, rec := range records {
		s.nextID++
		rec.ID = s.nextID
		saved[i] = rec
	}
	s.traffic = append(s.traffic, saved...)
	if over := len(s.traffic) - s.capacity; over > 0 {
		s.traffic = append([]model.TrafficRecord(nil), s.traffic[over:]...)
	}
	return saved, nil
}

func (s *MemoryStore) SaveAlert(ctx context.Context, alert model.Alert) (model.Alert, error) {
	if err := ctx.Err(); err != nil {
		return model.Alert{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAlert++
	alert.ID = s.nextAlert
	s.alerts = append(s.alerts, alert)
	if over := len(s.alerts) - s.capacity; over > 0 {
		s.alerts = append([]model.Alert(nil), s.alerts[over:]...)
	}
	return alert, nil
}

func (s *MemoryStore) QueryTraffic(ctx context.Context, q model.TrafficQuery) ([]model.TrafficRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TrafficRecord
	for i := len(s.traffic) - 1; i >= 0; i-- {
		rec := s.traffic[i]
		if q.SourceIP != "" && rec.SourceIP != q.SourceIP {
			continue
		}
		if q.Protocol != "" && rec.Protocol != q.Protocol {
			continue
		}
		if !q.Since.IsZero() && rec.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out[:applyLimit(q.Limit, len(out))], nil
}

func (s *MemoryStore) QueryAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Alert
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if !q.Since.IsZero() && a.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out[:applyLimit(q.Limit, len(out))], nil
}

func (s *MemoryStore) Stats(ctx context.Context, topN int) (model.Stats, error) {
	s.mu.RLock()
	protocols := make(map[string]uint64)
	sources := make(map[string]uint64)
	for _, rec := range s.traffic {
		protocols[string(rec.Protocol)]++
		sources[rec.SourceIP]++
	}
	s.mu.RUnlock()

	top := sortedCounts(sources)
	return model.Stats{
		ProtocolBreakdown: sortedCounts(protocols),
		TopSources:        top[:applyLimit(topN, len(top))],
	}, nil
}

func (s *MemoryStore) Close() error { return nil }

func sortedCounts(m map[string]uint64) []model.Count {
	out := make([]model.Count, 0, len(m))
	for k, v := range m {
		out = append(out, model.Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
