// Package prediction decorates predictors with logging and metrics.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
	"github.com/kailas-cloud/carmatch/internal/metrics"
)

// InstrumentedPredictor wraps a Predictor with logging and Prometheus metrics.
type InstrumentedPredictor struct {
	inner   domain.Predictor
	model   string
	backend string
	logger  *zap.Logger
}

// NewInstrumentedPredictor wraps inner; model is "price" or "score",
// backend names the implementation ("linear", "remote").
func NewInstrumentedPredictor(
	inner domain.Predictor, model, backend string, logger *zap.Logger,
) *InstrumentedPredictor {
	return &InstrumentedPredictor{inner: inner, model: model, backend: backend, logger: logger}
}

// Predict delegates to the inner predictor and records the outcome.
func (p *InstrumentedPredictor) Predict(ctx context.Context, rows []listing.Features) ([]float64, error) {
	start := time.Now()
	out, err := p.inner.Predict(ctx, rows)
	duration := time.Since(start)

	metrics.PredictionRequestDuration.WithLabelValues(p.model, p.backend).Observe(duration.Seconds())
	metrics.PredictionRowsTotal.WithLabelValues(p.model).Add(float64(len(rows)))

	if err != nil {
		metrics.PredictionRequestsTotal.WithLabelValues(p.model, p.backend, "error").Inc()
		metrics.PredictionErrorsTotal.WithLabelValues(p.model, errorType(err)).Inc()
		p.logger.Error("Prediction failed",
			zap.String("model", p.model),
			zap.String("backend", p.backend),
			zap.Int("rows", len(rows)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("predict %s: %w", p.model, err)
	}

	metrics.PredictionRequestsTotal.WithLabelValues(p.model, p.backend, "ok").Inc()
	p.logger.Debug("Prediction completed",
		zap.String("model", p.model),
		zap.String("backend", p.backend),
		zap.Int("rows", len(rows)),
		zap.Int("predictions", len(out)),
		zap.Duration("duration", duration),
	)
	return out, nil
}

// HealthCheck forwards to the inner predictor when it supports health checks.
func (p *InstrumentedPredictor) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s predictor health: %w", p.model, err)
	}
	return nil
}

func errorType(err error) string {
	var re *domain.RemoteError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &re):
		return "http_" + strconv.Itoa(re.StatusCode)
	default:
		return "other"
	}
}
