package store

import (
	"context"
	"sync"
	"time"

	"github.com/kipe/iot-hub-measurements/internal/models"
)

// MemoryStore keeps day buckets and summaries in process memory. It backs
// handler tests and local runs without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	days      map[string]map[string]map[models.MeasurementType][]models.Point // day -> device -> type -> points
	summaries map[string]models.DeviceSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		days:      make(map[string]map[string]map[models.MeasurementType][]models.Point),
		summaries: make(map[string]models.DeviceSummary),
	}
}

func (m *MemoryStore) Append(_ context.Context, day, device string, mtype models.MeasurementType, p models.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.days[day]
	if !ok {
		bucket = make(map[string]map[models.MeasurementType][]models.Point)
		m.days[day] = bucket
	}
	series, ok := bucket[device]
	if !ok {
		series = make(map[models.MeasurementType][]models.Point)
		bucket[device] = series
	}
	series[mtype] = append(series[mtype], p)
	return nil
}

func (m *MemoryStore) ReadDay(_ context.Context, day, device string) (map[models.MeasurementType][]models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[models.MeasurementType][]models.Point)
	bucket, ok := m.days[day]
	if !ok {
		return out, nil
	}
	for mtype, points := range bucket[device] {
		cp := make([]models.Point, len(points))
		copy(cp, points)
		out[mtype] = cp
	}
	return out, nil
}

func (m *MemoryStore) UpsertSummary(_ context.Context, device string, value float64, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaries[device] = models.DeviceSummary{
		Device:        device,
		LastValue:     value,
		LastTimestamp: ts,
	}
	return nil
}

func (m *MemoryStore) Summary(_ context.Context, device string) (models.DeviceSummary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[device]
	return s, ok, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() {}
