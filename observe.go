package carmatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	listings *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carmatch",
			Subsystem: "sdk",
			Name:      "recommendations_total",
			Help:      "Total SDK recommendation calls by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carmatch",
			Subsystem: "sdk",
			Name:      "recommendation_duration_seconds",
			Help:      "SDK recommendation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carmatch",
			Subsystem: "sdk",
			Name:      "listings_total",
			Help:      "Listings passed to the SDK by operation.",
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.listings); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("carmatch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("carmatch: register metric: %w", err)
	}
	return nil
}

// observer logs and counts SDK calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, listings int, res *Result, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case len(res.Items) == 0:
		status = "empty"
	}

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		o.metrics.listings.WithLabelValues(op).Add(float64(listings))
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("recommendation failed",
			"op", op,
			"listings", listings,
			"duration", dur,
			"error", err,
		)
		return
	}
	o.logger.Debug("recommendation completed",
		"op", op,
		"listings", listings,
		"items", len(res.Items),
		"status", status,
		"duration", dur,
	)
}
