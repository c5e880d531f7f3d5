package recommend

import (
	"context"

	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Predictor maps feature rows to one value per row, order-aligned.
type Predictor interface {
	Predict(ctx context.Context, rows []listing.Features) ([]float64, error)
}
