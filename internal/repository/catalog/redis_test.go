package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

const prefix = "carmatch:listing:"

func TestRedisLoader_Load(t *testing.T) {
	store := newMockHashStore()
	withID := featureFields("Toyota", "Jakarta")
	withID[listing.ColumnID] = "T-1"
	store.hashes[prefix+"b"] = withID
	store.hashes[prefix+"a"] = featureFields("Honda", "Bandung")
	incomplete := featureFields("Daihatsu", "Medan")
	delete(incomplete, listing.ColumnCity)
	store.hashes[prefix+"c"] = incomplete
	store.hashes["other:x"] = featureFields("Ignored", "Nowhere")

	l := NewRedisLoader(store, prefix)
	f, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", f.Len())
	}
	if f.Columns()[0] != listing.ColumnID || f.Columns()[1] != listing.ColumnMake {
		t.Errorf("unexpected column order: %v", f.Columns())
	}

	// rows are sorted by key: a, b, c
	if id, _ := f.Value(0, listing.ColumnID); id != "a" {
		t.Errorf("row 0 id = %q, want key suffix a", id)
	}
	if id, _ := f.Value(1, listing.ColumnID); id != "T-1" {
		t.Errorf("row 1 id = %q, want stored id T-1", id)
	}
	if _, ok := f.Value(2, listing.ColumnCity); ok {
		t.Error("missing hash field should be null")
	}

	admitted, err := dataset.Admit(f)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(admitted.Listings) != 2 || admitted.Dropped != 1 {
		t.Errorf("expected 2 admitted / 1 dropped, got %d / %d", len(admitted.Listings), admitted.Dropped)
	}
}

func TestRedisLoader_Batches(t *testing.T) {
	store := newMockHashStore()
	for i := range fetchBatch + 10 {
		store.hashes[fmt.Sprintf("%s%05d", prefix, i)] = featureFields("Toyota", "Jakarta")
	}

	f, err := NewRedisLoader(store, prefix).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Len() != fetchBatch+10 {
		t.Errorf("expected %d rows, got %d", fetchBatch+10, f.Len())
	}
	if store.batches != 2 {
		t.Errorf("expected 2 pipelined batches, got %d", store.batches)
	}
}

func TestRedisLoader_Errors(t *testing.T) {
	store := newMockHashStore()
	store.scanErr = errors.New("conn refused")
	if _, err := NewRedisLoader(store, prefix).Load(context.Background()); err == nil {
		t.Error("expected scan error")
	}

	store = newMockHashStore()
	store.hashes[prefix+"a"] = featureFields("Toyota", "Jakarta")
	store.getErr = errors.New("timeout")
	if _, err := NewRedisLoader(store, prefix).Load(context.Background()); err == nil {
		t.Error("expected fetch error")
	}
}

func TestRedisLoader_SaveRoundTrip(t *testing.T) {
	src, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	store := newMockHashStore()
	store.hashes[prefix+"stale"] = featureFields("Old", "Gone")

	l := NewRedisLoader(store, prefix)
	if err := l.Save(context.Background(), src); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := store.hashes[prefix+"stale"]; ok {
		t.Error("stale listing should be deleted")
	}
	if _, ok := store.hashes[prefix+"A2"][listing.ColumnCity]; ok {
		t.Error("null cells must not be written")
	}

	got, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", got.Len())
	}
	if v, ok := got.Value(2, listing.ColumnMake); !ok || v != "Suzuki, Inc" {
		t.Errorf("row A3 make = %q, %v", v, ok)
	}
}
