package catalog

import (
	"context"
	"strings"

	"github.com/kailas-cloud/carmatch/internal/db"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// mockHashStore is an in-memory hash store keyed like Redis.
type mockHashStore struct {
	hashes  map[string]map[string]string
	scanErr error
	getErr  error
	batches int
}

func newMockHashStore() *mockHashStore {
	return &mockHashStore{hashes: make(map[string]map[string]string)}
}

func (m *mockHashStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		h := m.hashes[it.Key]
		if h == nil {
			h = make(map[string]string)
			m.hashes[it.Key] = h
		}
		for k, v := range it.Fields {
			h[k] = v
		}
	}
	return nil
}

func (m *mockHashStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.batches++
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
		if out[i] == nil {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

func (m *mockHashStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *mockHashStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// featureFields returns a complete listing hash.
func featureFields(brand, city string) map[string]string {
	return map[string]string{
		listing.ColumnMake: brand, listing.ColumnModel: "Avanza", listing.ColumnSegment: "MPV",
		listing.ColumnYear: "2019", listing.ColumnOdometer: "60000", listing.ColumnTransmission: "Manual",
		listing.ColumnFuel: "Bensin", listing.ColumnDisplacement: "1300", listing.ColumnColor: "Hitam",
		listing.ColumnCity: city, listing.ColumnOwners: "1", listing.ColumnServiceHistory: "Rutin",
		listing.ColumnFloodDamage: "Tidak", listing.ColumnCollisionDamage: "Tidak",
		listing.ColumnActiveRegistration: "Ya", listing.ColumnBudget: "180",
	}
}
