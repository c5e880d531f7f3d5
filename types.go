package carmatch

import (
	"context"

	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Features are the model inputs of one listing.
type Features = listing.Features

// Listing is an admitted catalog row: an identifier, its features and
// the optional historical price and score columns.
type Listing = listing.Listing

// Predictor maps feature rows to one value per row, order-aligned.
type Predictor interface {
	Predict(ctx context.Context, rows []Features) ([]float64, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(ctx context.Context, rows []Features) ([]float64, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, rows []Features) ([]float64, error) {
	return f(ctx, rows)
}

// Query holds the buyer's budget and filters.
// Empty equality filters, "any" and "semua" match every listing; nil range bounds are open.
type Query struct {
	// Budget in millions of rupiah. Required.
	Budget float64
	// Limit caps the number of items. Zero means the client default.
	Limit int

	Make         string
	Segment      string
	Transmission string
	Fuel         string
	City         string

	YearMin     *int
	YearMax     *int
	OdometerMin *int
	OdometerMax *int

	ExcludeFlood           bool
	ExcludeCollision       bool
	RegistrationActiveOnly bool
}

// Recommendation is one ranked listing.
type Recommendation struct {
	Listing
	PredictedPrice float64
	PredictedScore float64
	// Rank starts at 1.
	Rank int
}

// Summary aggregates the returned items.
type Summary struct {
	Count     int
	MinPrice  float64
	MaxPrice  float64
	MeanScore float64
}

// Result is the outcome of one recommendation.
// Items is empty when nothing matched or nothing fit the budget; EmptyReason says which.
type Result struct {
	Items        []Recommendation
	EmptyReason  string
	Message      string
	Budget       float64
	Matched      int
	WithinBudget int
	Summary      Summary
}

// Empty reasons.
const (
	ReasonNoMatch    = "no_match"
	ReasonOverBudget = "over_budget"
)
