package criteria

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Any disables an equality filter.
const Any = "any"

// IsAny reports whether an equality criterion value means "no constraint".
// Empty, "any" and the catalog UI's "Semua" are accepted, case-insensitively.
func IsAny(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", Any, "semua":
		return true
	default:
		return false
	}
}

// Range is an inclusive integer range; a nil bound is open.
type Range struct {
	min *int
	max *int
}

// NewRange validates and creates a Range.
func NewRange(lo, hi *int) (Range, error) {
	if lo != nil && hi != nil && *lo > *hi {
		return Range{}, fmt.Errorf("range min %d is greater than max %d", *lo, *hi)
	}
	return Range{min: lo, max: hi}, nil
}

// Min returns the inclusive lower bound.
func (r Range) Min() *int { return r.min }

// Max returns the inclusive upper bound.
func (r Range) Max() *int { return r.max }

// IsOpen reports whether the range has no bounds.
func (r Range) IsOpen() bool { return r.min == nil && r.max == nil }

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v int) bool {
	if r.min != nil && v < *r.min {
		return false
	}
	if r.max != nil && v > *r.max {
		return false
	}
	return true
}

// Criteria is the conjunction of filters applied to listings before prediction.
type Criteria struct {
	Make         string
	Segment      string
	Transmission string
	Fuel         string
	City         string

	Year     Range
	Odometer Range

	ExcludeFlood           bool
	ExcludeCollision       bool
	RegistrationActiveOnly bool
}

// Matches reports whether the listing satisfies every active criterion.
// Checks run equality, year, odometer, then flags.
func (c *Criteria) Matches(l *listing.Listing) bool {
	if !equal(c.Make, l.Make) ||
		!equal(c.Segment, l.Segment) ||
		!equal(c.Transmission, l.Transmission) ||
		!equal(c.Fuel, l.Fuel) ||
		!equal(c.City, l.City) {
		return false
	}
	if !c.Year.Contains(l.Year) || !c.Odometer.Contains(l.Odometer) {
		return false
	}
	if c.ExcludeFlood && !l.FloodFlag().IsNo() {
		return false
	}
	if c.ExcludeCollision && !l.CollisionFlag().IsNo() {
		return false
	}
	if c.RegistrationActiveOnly && !l.RegistrationFlag().IsYes() {
		return false
	}
	return true
}

// Filter returns the listings that match, preserving input order.
// The input slice is not modified.
func (c *Criteria) Filter(listings []listing.Listing) []listing.Listing {
	out := make([]listing.Listing, 0, len(listings))
	for i := range listings {
		if c.Matches(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}

func equal(want, got string) bool {
	return IsAny(want) || want == got
}
