package request

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/criteria"
)

// Recommendation limits.
const (
	DefaultLimit = 8
	MaxLimit     = 100
)

// Request is a validated recommendation query.
type Request struct {
	budget   float64
	limit    int
	criteria criteria.Criteria
}

// New validates and normalizes recommendation parameters.
// Budget must be finite and positive. A non-positive limit means DefaultLimit;
// limits above MaxLimit are clamped.
func New(budget float64, limit int, c criteria.Criteria) (Request, error) {
	if math.IsNaN(budget) || math.IsInf(budget, 0) {
		return Request{}, fmt.Errorf("%w: budget must be a finite number", domain.ErrInvalidRequest)
	}
	if budget <= 0 {
		return Request{}, fmt.Errorf("%w: budget must be positive", domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{budget: budget, limit: limit, criteria: c}, nil
}

// Budget returns the buyer's declared budget in millions of rupiah.
func (r *Request) Budget() float64 { return r.budget }

// Limit returns the maximum number of recommendations.
func (r *Request) Limit() int { return r.limit }

// Criteria returns the listing filters.
func (r *Request) Criteria() criteria.Criteria { return r.criteria }
