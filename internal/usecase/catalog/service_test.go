package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// --- Mocks ---

type mockLoader struct {
	frame dataset.Frame
	err   error
	calls int
}

func (m *mockLoader) Load(_ context.Context) (dataset.Frame, error) {
	m.calls++
	return m.frame, m.err
}

func (m *mockLoader) Source() string { return "mock" }

// --- Fixtures ---

var columns = append([]string{listing.ColumnID}, listing.FeatureColumns...)

func record(id, brand, city, year, km, budget string) []string {
	return []string{
		id, brand, "Avanza", "MPV", year, km, "Manual", "Bensin",
		"1300", "Hitam", city, "1", "Rutin", "Tidak", "Tidak", "Ya", budget,
	}
}

func mustFrame(t *testing.T, records ...[]string) dataset.Frame {
	t.Helper()
	f, err := dataset.FromRecords(columns, records)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return f
}

// --- Tests ---

func TestSnapshot_NotLoaded(t *testing.T) {
	svc := New(&mockLoader{}, zap.NewNop())

	if _, err := svc.Snapshot(); !errors.Is(err, domain.ErrCatalogNotLoaded) {
		t.Fatalf("expected ErrCatalogNotLoaded, got %v", err)
	}
	if err := svc.HealthCheck(context.Background()); !errors.Is(err, domain.ErrCatalogNotLoaded) {
		t.Errorf("expected health check failure, got %v", err)
	}
}

func TestReload_AdmitsAndSwaps(t *testing.T) {
	loader := &mockLoader{frame: mustFrame(t,
		record("1", "Toyota", "Jakarta", "2019", "60000", "180"),
		record("2", "Honda", "", "2018", "40000", "150"),
	)}
	svc := New(loader, zap.NewNop())

	snap, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(snap.Listings()) != 1 || snap.Dropped() != 1 || snap.Source() != "mock" {
		t.Errorf("unexpected snapshot: %d listings, %d dropped, source %q",
			len(snap.Listings()), snap.Dropped(), snap.Source())
	}

	got, err := svc.Snapshot()
	if err != nil || got != snap {
		t.Errorf("Snapshot() = %p, %v; want %p", got, err, snap)
	}
}

func TestReload_FailureKeepsPrevious(t *testing.T) {
	loader := &mockLoader{frame: mustFrame(t, record("1", "Toyota", "Jakarta", "2019", "60000", "180"))}
	svc := New(loader, zap.NewNop())

	first, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}

	loader.err = errors.New("disk gone")
	if _, err = svc.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}

	got, err := svc.Snapshot()
	if err != nil || got != first {
		t.Errorf("expected previous snapshot to survive failed reload")
	}
}

func TestReload_SchemaError(t *testing.T) {
	f, err := dataset.FromRecords([]string{listing.ColumnMake}, [][]string{{"Toyota"}})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	svc := New(&mockLoader{frame: f}, zap.NewNop())

	if _, err = svc.Reload(context.Background()); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if _, err = svc.Snapshot(); !errors.Is(err, domain.ErrCatalogNotLoaded) {
		t.Errorf("schema failure must not install a snapshot, got %v", err)
	}
}

func TestRun_ReloadsUntilCancelled(t *testing.T) {
	loader := &mockLoader{frame: mustFrame(t, record("1", "Toyota", "Jakarta", "2019", "60000", "180"))}
	svc := New(loader, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := svc.Snapshot(); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("catalog never reloaded")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestFacets(t *testing.T) {
	loader := &mockLoader{frame: mustFrame(t,
		record("1", "Toyota", "Jakarta", "2019", "60000", "180"),
		record("2", "Honda", "Bandung", "2015", "90000", "100"),
		record("3", "Toyota", "Jakarta", "2021", "15000", "300"),
		record("4", "Daihatsu", "Bandung", "2017", "45000", "120"),
	)}
	svc := New(loader, zap.NewNop())
	snap, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}

	f := snap.Facets()
	if len(f.Makes) != 3 || f.Makes[0] != "Daihatsu" || f.Makes[2] != "Toyota" {
		t.Errorf("Makes = %v", f.Makes)
	}
	if len(f.Cities) != 2 || f.Cities[0] != "Bandung" {
		t.Errorf("Cities = %v", f.Cities)
	}
	if f.YearMin != 2015 || f.YearMax != 2021 {
		t.Errorf("year bounds = %d..%d", f.YearMin, f.YearMax)
	}
	if f.OdometerMin != 15000 || f.OdometerMax != 90000 {
		t.Errorf("odometer bounds = %d..%d", f.OdometerMin, f.OdometerMax)
	}
	// budgets 100, 120, 180, 300
	if f.DefaultBudget != 150 {
		t.Errorf("DefaultBudget = %v, want 150", f.DefaultBudget)
	}
	if snap.Listings()[0].Budget != 180 {
		t.Error("Facets must not reorder listings")
	}
}

func TestFacets_Empty(t *testing.T) {
	f := NewSnapshot(nil, 0, "mock", time.Now()).Facets()
	if f.DefaultBudget != FallbackBudget {
		t.Errorf("DefaultBudget = %v, want %v", f.DefaultBudget, FallbackBudget)
	}
	if len(f.Makes) != 0 || f.YearMax != 0 {
		t.Errorf("unexpected facets for empty snapshot: %+v", f)
	}
}
