package result

import "github.com/kailas-cloud/carmatch/internal/domain/listing"

// EmptyReason distinguishes the legitimate empty outcomes.
type EmptyReason string

const (
	// NoMatch means no listing survived the criteria filters.
	NoMatch EmptyReason = "no_match"
	// OverBudget means every predicted price exceeded the budget.
	OverBudget EmptyReason = "over_budget"
)

// Message returns the human-readable explanation.
func (r EmptyReason) Message() string {
	switch r {
	case NoMatch:
		return "no listings match criteria"
	case OverBudget:
		return "no predictions within budget"
	default:
		return ""
	}
}

// Recommendation is a listing enriched with its predictions.
type Recommendation struct {
	Listing        listing.Listing
	PredictedPrice float64
	PredictedScore float64
	// Rank is 1-based.
	Rank int
}

// Summary holds statistics over the returned recommendations.
type Summary struct {
	Count     int
	MinPrice  float64
	MaxPrice  float64
	MeanScore float64
}

// Result is the outcome of one pipeline invocation.
type Result struct {
	items        []Recommendation
	emptyReason  EmptyReason
	budget       float64
	matched      int
	withinBudget int
}

// New creates a non-empty result from ranked items.
func New(items []Recommendation, budget float64, matched, withinBudget int) Result {
	return Result{items: items, budget: budget, matched: matched, withinBudget: withinBudget}
}

// Empty creates a result carrying the reason no items were produced.
func Empty(reason EmptyReason, budget float64, matched int) Result {
	return Result{emptyReason: reason, budget: budget, matched: matched}
}

// Items returns the ranked recommendations.
func (r *Result) Items() []Recommendation { return r.items }

// IsEmpty reports whether the pipeline ended without recommendations.
func (r *Result) IsEmpty() bool { return len(r.items) == 0 }

// EmptyReason returns why the result is empty; "" for non-empty results.
func (r *Result) EmptyReason() EmptyReason { return r.emptyReason }

// Budget returns the budget the result was computed for.
func (r *Result) Budget() float64 { return r.budget }

// Matched returns how many listings passed the criteria filters.
func (r *Result) Matched() int { return r.matched }

// WithinBudget returns how many predictions passed the budget filter, before truncation.
func (r *Result) WithinBudget() int { return r.withinBudget }

// Summary computes statistics over the returned items.
func (r *Result) Summary() Summary {
	if len(r.items) == 0 {
		return Summary{}
	}
	s := Summary{
		Count:    len(r.items),
		MinPrice: r.items[0].PredictedPrice,
		MaxPrice: r.items[0].PredictedPrice,
	}
	var total float64
	for _, it := range r.items {
		s.MinPrice = min(s.MinPrice, it.PredictedPrice)
		s.MaxPrice = max(s.MaxPrice, it.PredictedPrice)
		total += it.PredictedScore
	}
	s.MeanScore = total / float64(len(r.items))
	return s
}
