package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Admitted is the outcome of admitting a Frame.
type Admitted struct {
	Listings []listing.Listing
	Dropped  int
}

// Admit validates the schema, coerces numeric columns and drops incomplete rows.
// A missing feature column fails with *domain.SchemaError; incomplete rows are
// dropped silently and counted.
func Admit(f Frame) (Admitted, error) {
	if missing := f.MissingColumns(listing.FeatureColumns); len(missing) > 0 {
		return Admitted{}, domain.NewSchemaError(missing)
	}

	out := Admitted{Listings: make([]listing.Listing, 0, f.Len())}
	for i := range f.Len() {
		l, ok := admitRow(f, i)
		if !ok {
			out.Dropped++
			continue
		}
		out.Listings = append(out.Listings, l)
	}
	return out, nil
}

// admitRow reads one row; ok is false when any feature is missing or not coercible.
func admitRow(f Frame, row int) (listing.Listing, bool) {
	r := rowReader{f: f, row: row, ok: true}

	l := listing.Listing{
		Features: listing.Features{
			Make:               r.text(listing.ColumnMake),
			Model:              r.text(listing.ColumnModel),
			Segment:            r.text(listing.ColumnSegment),
			Year:               r.whole(listing.ColumnYear),
			Odometer:           r.whole(listing.ColumnOdometer),
			Transmission:       r.text(listing.ColumnTransmission),
			Fuel:               r.text(listing.ColumnFuel),
			Displacement:       r.whole(listing.ColumnDisplacement),
			Color:              r.text(listing.ColumnColor),
			City:               r.text(listing.ColumnCity),
			Owners:             r.whole(listing.ColumnOwners),
			ServiceHistory:     r.text(listing.ColumnServiceHistory),
			FloodDamage:        r.text(listing.ColumnFloodDamage),
			CollisionDamage:    r.text(listing.ColumnCollisionDamage),
			ActiveRegistration: r.text(listing.ColumnActiveRegistration),
			Budget:             r.number(listing.ColumnBudget),
		},
	}
	if !r.ok {
		return listing.Listing{}, false
	}

	if id, ok := f.Value(row, listing.ColumnID); ok {
		l.ID = id
	} else {
		l.ID = strconv.Itoa(row)
	}
	l.SalePrice = optionalNumber(f, row, listing.ColumnSalePrice)
	l.Score = optionalNumber(f, row, listing.ColumnScore)

	return l, true
}

// rowReader accumulates a single ok flag across cell reads.
type rowReader struct {
	f   Frame
	row int
	ok  bool
}

func (r *rowReader) text(column string) string {
	v, ok := r.f.Value(r.row, column)
	if !ok {
		r.ok = false
	}
	return v
}

func (r *rowReader) number(column string) float64 {
	s, ok := r.f.Value(r.row, column)
	if !ok {
		r.ok = false
		return 0
	}
	v, ok := ParseNumber(s)
	if !ok {
		r.ok = false
	}
	return v
}

// whole reads an integer attribute. Fractional values are rounded half away
// from zero; only values that fail coercion or overflow are missing.
func (r *rowReader) whole(column string) int {
	v := r.number(column)
	if !r.ok {
		return 0
	}
	v = math.Round(v)
	if v > math.MaxInt32 || v < math.MinInt32 {
		r.ok = false
		return 0
	}
	return int(v)
}

func optionalNumber(f Frame, row int, column string) *float64 {
	s, ok := f.Value(row, column)
	if !ok {
		return nil
	}
	v, ok := ParseNumber(s)
	if !ok {
		return nil
	}
	return &v
}

// ParseNumber coerces text to a finite number. ok is false when coercion fails.
// Only plain decimal and exponent forms are accepted: hex floats, digit
// separators and inf/nan spellings are missing values.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !plainDecimal(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func plainDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9', c == '.', c == '+', c == '-', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return true
}
