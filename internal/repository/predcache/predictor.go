// Package predcache caches per-row predictions in a key-value store.
package predcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/db"
	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

var cacheKeyPrefix = domain.KeyPrefix + "pred_cache:"

// store is the consumer interface for the prediction cache (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMultiWithTTL(ctx context.Context, items []db.KVSetItem, ttl time.Duration) error
}

// CachedPredictor caches predictions keyed by model and feature row.
// Only cache misses reach the inner predictor. Store faults are logged and bypassed.
type CachedPredictor struct {
	inner      domain.Predictor
	store      store
	model      string
	version    string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// version identifies the model artifact so a new artifact never reads stale entries.
// cacheTotal has labels "model" and "result" ("hit"/"miss") and may be nil.
func New(
	inner domain.Predictor,
	s store,
	model, version string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedPredictor {
	return &CachedPredictor{
		inner:      inner,
		store:      s,
		model:      model,
		version:    version,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Predict serves cached rows and predicts the rest in one inner call.
func (c *CachedPredictor) Predict(ctx context.Context, rows []listing.Features) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}

	keys := make([]string, len(rows))
	for i := range rows {
		keys[i] = c.cacheKey(&rows[i])
	}

	out := make([]float64, len(rows))
	cached := c.getFromCache(ctx, keys)

	var missIdx []int
	var missRows []listing.Features
	for i := range rows {
		if v, ok := cached[i]; ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missRows = append(missRows, rows[i])
	}
	c.incCache("hit", len(rows)-len(missIdx))
	c.incCache("miss", len(missIdx))

	if len(missIdx) == 0 {
		return out, nil
	}

	preds, err := c.inner.Predict(ctx, missRows)
	if err != nil {
		return nil, fmt.Errorf("predict uncached rows: %w", err)
	}
	if len(preds) != len(missRows) {
		return nil, fmt.Errorf("got %d predictions for %d uncached rows", len(preds), len(missRows))
	}

	items := make([]db.KVSetItem, len(missIdx))
	for j, i := range missIdx {
		out[i] = preds[j]
		items[j] = db.KVSetItem{Key: keys[i], Value: encode(preds[j])}
	}
	c.putToCache(ctx, items)

	return out, nil
}

// HealthCheck forwards to the inner predictor when it supports health checks.
func (c *CachedPredictor) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // decorator is transparent
	}
	return nil
}

func (c *CachedPredictor) incCache(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(c.model, result).Add(float64(n))
	}
}

func (c *CachedPredictor) cacheKey(row *listing.Features) string {
	// json.Marshal of a flat struct of strings and numbers cannot fail.
	data, _ := json.Marshal(row)
	h := sha256.Sum256(data)
	return cacheKeyPrefix + c.model + ":" + c.version + ":" + hex.EncodeToString(h[:])
}

func (c *CachedPredictor) getFromCache(ctx context.Context, keys []string) map[int]float64 {
	vals, err := c.store.GetMulti(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to read prediction cache", zap.String("model", c.model), zap.Error(err))
		return nil
	}

	hits := make(map[int]float64, len(vals))
	for i, data := range vals {
		if data == nil {
			continue
		}
		v, err := decode(data)
		if err != nil {
			c.logger.Warn("Failed to parse cached prediction", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		hits[i] = v
	}
	return hits
}

func (c *CachedPredictor) putToCache(ctx context.Context, items []db.KVSetItem) {
	if err := c.store.SetMultiWithTTL(ctx, items, c.ttl); err != nil {
		c.logger.Warn("Failed to cache predictions",
			zap.String("model", c.model), zap.Int("rows", len(items)), zap.Error(err))
	}
}

func encode(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func decode(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid prediction cache data: len=%d (want 8)", len(data))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}
