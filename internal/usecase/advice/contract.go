package advice

import (
	"context"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
)

// Advisor writes a short narrative for a recommendation result.
type Advisor interface {
	Advise(ctx context.Context, res *result.Result) (domain.Advice, error)
}
