package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema signals a dataset that lacks required feature columns.
	ErrSchema = errors.New("schema error")
	// ErrPredictor signals a failed or inconsistent model prediction.
	ErrPredictor = errors.New("predictor error")
	// ErrInvalidRequest signals invalid recommendation parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCatalogNotLoaded signals that no listing snapshot is available yet.
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAdvisorQuotaExceeded signals that the advisor token quota is spent.
	ErrAdvisorQuotaExceeded = errors.New("advisor quota exceeded")
	// ErrAdvisor signals a failed advisor call.
	ErrAdvisor = errors.New("advisor error")
)

// SchemaError wraps ErrSchema with the names of the absent columns.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing columns [%s]", ErrSchema.Error(), strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// NewSchemaError creates a schema error naming the missing columns.
func NewSchemaError(missing []string) error {
	return &SchemaError{Missing: missing}
}

// PredictorError wraps ErrPredictor with the model that failed.
type PredictorError struct {
	Model string
	Err   error
}

func (e *PredictorError) Error() string {
	return fmt.Sprintf("%s: %s model: %v", ErrPredictor.Error(), e.Model, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *PredictorError) Unwrap() []error { return []error{ErrPredictor, e.Err} }

// NewPredictorError creates a predictor error for the given model.
func NewPredictorError(model string, err error) error {
	return &PredictorError{Model: model, Err: err}
}

// RemoteError is a non-2xx response from a model server.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("model server returned %d: %s", e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error { return ErrPredictor }
