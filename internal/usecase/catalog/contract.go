package catalog

import (
	"context"

	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
)

// Loader reads the raw listing table from a storage backend.
type Loader interface {
	Load(ctx context.Context) (dataset.Frame, error)
	// Source names the backend for logs and metrics, e.g. "csv".
	Source() string
}
