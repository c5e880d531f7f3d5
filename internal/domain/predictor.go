package domain

import (
	"context"

	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Model names used in errors, cache keys and metrics.
const (
	ModelPrice = "price"
	ModelScore = "score"
)

// Predictor is the shared regression contract between layers.
// It returns one value per input row, in input order.
type Predictor interface {
	Predict(ctx context.Context, rows []listing.Features) ([]float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, rows []listing.Features) ([]float64, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, rows []listing.Features) ([]float64, error) {
	return f(ctx, rows)
}

// HealthChecker verifies that a component is available.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
