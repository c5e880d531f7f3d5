// Package catalog keeps the admitted listing snapshot served to recommendation requests.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
	"github.com/kailas-cloud/carmatch/internal/metrics"
)

// Snapshot is an immutable, admitted view of the catalog.
type Snapshot struct {
	listings []listing.Listing
	dropped  int
	source   string
	loadedAt time.Time
}

// NewSnapshot creates a snapshot from admitted listings.
func NewSnapshot(listings []listing.Listing, dropped int, source string, loadedAt time.Time) *Snapshot {
	return &Snapshot{listings: listings, dropped: dropped, source: source, loadedAt: loadedAt}
}

// Listings returns the admitted listings. Callers must not modify them.
func (s *Snapshot) Listings() []listing.Listing { return s.listings }

// Dropped returns how many rows were rejected during admission.
func (s *Snapshot) Dropped() int { return s.dropped }

// Source returns the loader that produced the snapshot.
func (s *Snapshot) Source() string { return s.source }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Service loads the catalog and swaps snapshots atomically.
// A failed reload keeps the previous snapshot.
type Service struct {
	loader Loader
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Snapshot
}

// New creates a catalog service. Call Reload before serving.
func New(loader Loader, logger *zap.Logger) *Service {
	return &Service{loader: loader, logger: logger, now: time.Now}
}

// Reload loads and admits the catalog, replacing the current snapshot on success.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	start := s.now()
	source := s.loader.Source()

	frame, err := s.loader.Load(ctx)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues(source, "error").Inc()
		s.logger.Error("Catalog load failed", zap.String("source", source), zap.Error(err))
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	admitted, err := dataset.Admit(frame)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues(source, "error").Inc()
		s.logger.Error("Catalog rejected", zap.String("source", source), zap.Error(err))
		return nil, fmt.Errorf("admit catalog: %w", err)
	}

	snap := NewSnapshot(admitted.Listings, admitted.Dropped, source, s.now())

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	metrics.CatalogReloadsTotal.WithLabelValues(source, "ok").Inc()
	metrics.CatalogRows.WithLabelValues("admitted").Set(float64(len(admitted.Listings)))
	metrics.CatalogRows.WithLabelValues("dropped").Set(float64(admitted.Dropped))

	s.logger.Info("Catalog loaded",
		zap.String("source", source),
		zap.Int("rows", frame.Len()),
		zap.Int("admitted", len(admitted.Listings)),
		zap.Int("dropped", admitted.Dropped),
		zap.Duration("duration", s.now().Sub(start)),
	)
	return snap, nil
}

// Snapshot returns the current snapshot or ErrCatalogNotLoaded.
func (s *Service) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domain.ErrCatalogNotLoaded
	}
	return s.current, nil
}

// HealthCheck reports whether a snapshot is available.
func (s *Service) HealthCheck(_ context.Context) error {
	_, err := s.Snapshot()
	return err
}

// Run reloads the catalog every interval until ctx is done.
// Reload failures are logged and the previous snapshot stays in place.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Warn("Periodic catalog reload failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}
