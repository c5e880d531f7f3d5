package predcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/db"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

type mockPredictor struct {
	// value returns the prediction for a row; defaults to the row's year.
	value func(listing.Features) float64
	err   error
	calls int
	rows  int
}

func (m *mockPredictor) Predict(_ context.Context, rows []listing.Features) ([]float64, error) {
	m.calls++
	m.rows += len(rows)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if m.value != nil {
			out[i] = m.value(r)
			continue
		}
		out[i] = float64(r.Year)
	}
	return out, nil
}

// mockKVStore is an in-memory cache with injectable faults.
type mockKVStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttl    time.Duration
	sets   int
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockKVStore) SetMultiWithTTL(_ context.Context, items []db.KVSetItem, ttl time.Duration) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.ttl = ttl
	for _, it := range items {
		m.data[it.Key] = it.Value
	}
	return nil
}

func newTestCachedPredictor(t *testing.T, inner *mockPredictor) (*CachedPredictor, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, "price", "v1", time.Hour, nil, zap.NewNop()), ms
}

func row(year int) listing.Features {
	return listing.Features{
		Make: "Toyota", Model: "Avanza", Segment: "MPV", Year: year, Odometer: 60000,
		Transmission: "Manual", Fuel: "Bensin", Displacement: 1300, Color: "Hitam",
		City: "Jakarta", Owners: 1, ServiceHistory: "Rutin", FloodDamage: "Tidak",
		CollisionDamage: "Tidak", ActiveRegistration: "Ya", Budget: 200,
	}
}
