package request

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/criteria"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New(150, 0, criteria.Criteria{Make: "Toyota"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Budget() != 150 {
		t.Errorf("Budget() = %v", r.Budget())
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), DefaultLimit)
	}
	if c := r.Criteria(); c.Make != "Toyota" {
		t.Errorf("Criteria().Make = %q", c.Make)
	}
}

func TestNew_LimitClamped(t *testing.T) {
	r, err := New(100, 500, criteria.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != MaxLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), MaxLimit)
	}

	r, err = New(100, 3, criteria.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != 3 {
		t.Errorf("Limit() = %d, want 3", r.Limit())
	}
}

func TestNew_InvalidBudget(t *testing.T) {
	for _, b := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		_, err := New(b, 5, criteria.Criteria{})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("budget %v: expected ErrInvalidRequest, got %v", b, err)
		}
	}
}
