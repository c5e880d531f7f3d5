package catalog

import (
	"slices"

	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Budget input bounds and fallback, in millions of rupiah.
const (
	FallbackBudget = 200.0
	MinBudget      = 10.0
	MaxBudget      = 2000.0
)

// Facets describes the filter choices a client can offer for the snapshot.
type Facets struct {
	Makes         []string
	Segments      []string
	Transmissions []string
	Fuels         []string
	Cities        []string

	YearMin     int
	YearMax     int
	OdometerMin int
	OdometerMax int

	// DefaultBudget is the median declared budget, or FallbackBudget when empty.
	DefaultBudget float64
	MinBudget     float64
	MaxBudget     float64
}

// Facets computes sorted option lists, numeric bounds and the default budget.
func (s *Snapshot) Facets() Facets {
	f := Facets{
		Makes:         distinct(s.listings, func(l *listing.Listing) string { return l.Make }),
		Segments:      distinct(s.listings, func(l *listing.Listing) string { return l.Segment }),
		Transmissions: distinct(s.listings, func(l *listing.Listing) string { return l.Transmission }),
		Fuels:         distinct(s.listings, func(l *listing.Listing) string { return l.Fuel }),
		Cities:        distinct(s.listings, func(l *listing.Listing) string { return l.City }),
		DefaultBudget: FallbackBudget,
		MinBudget:     MinBudget,
		MaxBudget:     MaxBudget,
	}
	if len(s.listings) == 0 {
		return f
	}

	first := s.listings[0]
	f.YearMin, f.YearMax = first.Year, first.Year
	f.OdometerMin, f.OdometerMax = first.Odometer, first.Odometer
	budgets := make([]float64, 0, len(s.listings))
	for i := range s.listings {
		l := &s.listings[i]
		f.YearMin = min(f.YearMin, l.Year)
		f.YearMax = max(f.YearMax, l.Year)
		f.OdometerMin = min(f.OdometerMin, l.Odometer)
		f.OdometerMax = max(f.OdometerMax, l.Odometer)
		budgets = append(budgets, l.Budget)
	}
	f.DefaultBudget = median(budgets)
	return f
}

func distinct(listings []listing.Listing, get func(*listing.Listing) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range listings {
		v := get(&listings[i])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// median sorts vs in place; even-length input averages the middle pair.
func median(vs []float64) float64 {
	slices.Sort(vs)
	n := len(vs)
	if n%2 == 1 {
		return vs[n/2]
	}
	return (vs[n/2-1] + vs[n/2]) / 2
}
