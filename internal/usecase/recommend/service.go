package recommend

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/request"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
)

// Service runs the filter, predict and rank pipeline.
// It holds no mutable state and never modifies its inputs.
type Service struct {
	price Predictor
	score Predictor
}

// New creates a recommendation service.
func New(price, score Predictor) *Service {
	return &Service{price: price, score: score}
}

// Recommend admits a raw dataset and recommends from the admitted rows.
func (s *Service) Recommend(
	ctx context.Context, f dataset.Frame, req *request.Request,
) (result.Result, error) {
	admitted, err := dataset.Admit(f)
	if err != nil {
		return result.Result{}, fmt.Errorf("admit dataset: %w", err)
	}
	return s.RecommendAdmitted(ctx, admitted.Listings, req)
}

// RecommendAdmitted filters, predicts, budget-filters, ranks and truncates
// an already admitted listing snapshot.
func (s *Service) RecommendAdmitted(
	ctx context.Context, listings []listing.Listing, req *request.Request,
) (result.Result, error) {
	c := req.Criteria()
	matched := c.Filter(listings)
	if len(matched) == 0 {
		return result.Empty(result.NoMatch, req.Budget(), 0), nil
	}

	rows := featureMatrix(matched, req.Budget())

	prices, err := predict(ctx, domain.ModelPrice, s.price, rows)
	if err != nil {
		return result.Result{}, err
	}
	scores, err := predict(ctx, domain.ModelScore, s.score, rows)
	if err != nil {
		return result.Result{}, err
	}

	// NaN prices fail the comparison and are dropped with the over-budget rows.
	candidates := make([]result.Recommendation, 0, len(matched))
	for i := range matched {
		if !(prices[i] <= req.Budget()) {
			continue
		}
		candidates = append(candidates, result.Recommendation{
			Listing:        matched[i],
			PredictedPrice: prices[i],
			PredictedScore: scores[i],
		})
	}
	if len(candidates) == 0 {
		return result.Empty(result.OverBudget, req.Budget(), len(matched)), nil
	}

	slices.SortStableFunc(candidates, byScoreDesc)

	withinBudget := len(candidates)
	if len(candidates) > req.Limit() {
		candidates = candidates[:req.Limit()]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return result.New(candidates, req.Budget(), len(matched), withinBudget), nil
}

// featureMatrix copies the features of each listing with the declared budget
// replaced by the buyer's budget.
func featureMatrix(listings []listing.Listing, budget float64) []listing.Features {
	rows := make([]listing.Features, len(listings))
	for i := range listings {
		rows[i] = listings[i].Features
		rows[i].Budget = budget
	}
	return rows
}

func predict(
	ctx context.Context, model string, p Predictor, rows []listing.Features,
) ([]float64, error) {
	out, err := p.Predict(ctx, rows)
	if err != nil {
		return nil, domain.NewPredictorError(model, err)
	}
	if len(out) != len(rows) {
		return nil, domain.NewPredictorError(model,
			fmt.Errorf("got %d predictions for %d rows", len(out), len(rows)))
	}
	return out, nil
}

// byScoreDesc orders by predicted score, highest first. NaN scores sort last.
func byScoreDesc(a, b result.Recommendation) int {
	aNaN, bNaN := math.IsNaN(a.PredictedScore), math.IsNaN(b.PredictedScore)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(b.PredictedScore, a.PredictedScore)
}
