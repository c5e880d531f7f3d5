package carmatch

import "github.com/kailas-cloud/carmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrSchema         = domain.ErrSchema
	ErrPredictor      = domain.ErrPredictor
	ErrInvalidRequest = domain.ErrInvalidRequest
)
