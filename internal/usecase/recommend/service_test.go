package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/criteria"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/request"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
)

// --- Mocks ---

type mockPredictor struct {
	fn     func(f listing.Features) float64
	err    error
	short  bool
	calls  int
	lastIn []listing.Features
}

func (m *mockPredictor) Predict(_ context.Context, rows []listing.Features) ([]float64, error) {
	m.calls++
	m.lastIn = rows
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = m.fn(r)
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func constant(v float64) *mockPredictor {
	return &mockPredictor{fn: func(listing.Features) float64 { return v }}
}

// byOdometer derives a value from the odometer so tests can steer predictions per row.
func byOdometer(f func(km int) float64) *mockPredictor {
	return &mockPredictor{fn: func(r listing.Features) float64 { return f(r.Odometer) }}
}

// --- Fixtures ---

func car(id, brand, city string, km int) listing.Listing {
	return listing.Listing{
		ID: id,
		Features: listing.Features{
			Make: brand, Model: "Avanza", Segment: "MPV", Year: 2019, Odometer: km,
			Transmission: "Manual", Fuel: "Bensin", Displacement: 1300, Color: "Hitam",
			City: city, Owners: 1, ServiceHistory: "Rutin",
			FloodDamage: "Tidak", CollisionDamage: "Tidak", ActiveRegistration: "Ya",
			Budget: 999,
		},
	}
}

func fiveCars() []listing.Listing {
	return []listing.Listing{
		car("1", "Toyota", "Jakarta", 10000),
		car("2", "Honda", "Jakarta", 20000),
		car("3", "Toyota", "Bandung", 30000),
		car("4", "Daihatsu", "Surabaya", 40000),
		car("5", "Toyota", "Jakarta", 50000),
	}
}

func mustRequest(t *testing.T, budget float64, limit int, c criteria.Criteria) *request.Request {
	t.Helper()
	r, err := request.New(budget, limit, c)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func ids(items []result.Recommendation) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Listing.ID
	}
	return out
}

// --- Tests ---

func TestRecommend_AvanzaExample(t *testing.T) {
	svc := New(constant(120), constant(80))
	req := mustRequest(t, 150, 5, criteria.Criteria{Make: "Toyota", ExcludeFlood: true})

	res, err := svc.RecommendAdmitted(context.Background(), []listing.Listing{car("A1", "Toyota", "Jakarta", 60000)}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsEmpty() {
		t.Fatalf("expected a recommendation, got empty (%s)", res.EmptyReason())
	}
	it := res.Items()[0]
	if it.Listing.ID != "A1" || it.PredictedPrice != 120 || it.PredictedScore != 80 || it.Rank != 1 {
		t.Errorf("unexpected item: %+v", it)
	}
}

func TestRecommend_NoMatch(t *testing.T) {
	price, score := constant(10), constant(10)
	svc := New(price, score)
	req := mustRequest(t, 150, 5, criteria.Criteria{City: "Medan"})

	res, err := svc.RecommendAdmitted(context.Background(), fiveCars(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsEmpty() || res.EmptyReason() != result.NoMatch {
		t.Fatalf("expected no_match, got %q with %d items", res.EmptyReason(), len(res.Items()))
	}
	if res.EmptyReason().Message() != "no listings match criteria" {
		t.Errorf("unexpected message %q", res.EmptyReason().Message())
	}
	if price.calls != 0 || score.calls != 0 {
		t.Error("predictors must not be called when nothing matches")
	}
}

func TestRecommend_OverBudget(t *testing.T) {
	svc := New(byOdometer(func(km int) float64 { return 60 + float64(km)/1000 }), constant(50))
	req := mustRequest(t, 50, 5, criteria.Criteria{})

	res, err := svc.RecommendAdmitted(context.Background(), fiveCars(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EmptyReason() != result.OverBudget {
		t.Fatalf("expected over_budget, got %q", res.EmptyReason())
	}
	if res.Matched() != 5 {
		t.Errorf("Matched() = %d, want 5", res.Matched())
	}
	if res.EmptyReason().Message() != "no predictions within budget" {
		t.Errorf("unexpected message %q", res.EmptyReason().Message())
	}
}

func TestRecommend_BudgetOverride(t *testing.T) {
	price, score := constant(10), constant(10)
	svc := New(price, score)
	in := fiveCars()
	req := mustRequest(t, 175, 5, criteria.Criteria{})

	if _, err := svc.RecommendAdmitted(context.Background(), in, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []*mockPredictor{price, score} {
		if len(p.lastIn) != 5 {
			t.Fatalf("predictor saw %d rows, want 5", len(p.lastIn))
		}
		for _, r := range p.lastIn {
			if r.Budget != 175 {
				t.Errorf("predictor saw budget %v, want 175", r.Budget)
			}
		}
	}
	for _, l := range in {
		if l.Budget != 999 {
			t.Errorf("input listing %s budget mutated to %v", l.ID, l.Budget)
		}
	}
}

func TestRecommend_RankingBudgetAndSize(t *testing.T) {
	// price: km/1000, so rows 1..5 cost 10..50; score: ties between rows 2 and 4.
	scores := map[int]float64{10000: 30, 20000: 70, 30000: 90, 40000: 70, 50000: 99}
	svc := New(
		byOdometer(func(km int) float64 { return float64(km) / 1000 }),
		byOdometer(func(km int) float64 { return scores[km] }),
	)
	req := mustRequest(t, 40, 3, criteria.Criteria{})

	res, err := svc.RecommendAdmitted(context.Background(), fiveCars(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := ids(res.Items())
	want := []string{"3", "2", "4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if len(res.Items()) > req.Limit() {
		t.Errorf("size %d exceeds limit %d", len(res.Items()), req.Limit())
	}
	for i, it := range res.Items() {
		if it.PredictedPrice > req.Budget() {
			t.Errorf("item %s price %v exceeds budget", it.Listing.ID, it.PredictedPrice)
		}
		if i > 0 && res.Items()[i-1].PredictedScore < it.PredictedScore {
			t.Errorf("ranking violated at %d", i)
		}
		if it.Rank != i+1 {
			t.Errorf("item %s rank %d, want %d", it.Listing.ID, it.Rank, i+1)
		}
	}
	if res.Matched() != 5 || res.WithinBudget() != 4 {
		t.Errorf("matched=%d within=%d, want 5/4", res.Matched(), res.WithinBudget())
	}
	if s := res.Summary(); s.Count != 3 || s.MinPrice != 20 || s.MaxPrice != 40 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestRecommend_Idempotent(t *testing.T) {
	svc := New(constant(10), constant(42))
	req := mustRequest(t, 100, 4, criteria.Criteria{Make: "Toyota"})
	in := fiveCars()

	first, err := svc.RecommendAdmitted(context.Background(), in, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 5 {
		again, err := svc.RecommendAdmitted(context.Background(), in, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fmt.Sprint(ids(again.Items())) != fmt.Sprint(ids(first.Items())) {
			t.Fatalf("results differ: %v vs %v", ids(again.Items()), ids(first.Items()))
		}
	}
	// all scores tie: stable order keeps input order
	if fmt.Sprint(ids(first.Items())) != "[1 3 5]" {
		t.Errorf("tie order = %v, want [1 3 5]", ids(first.Items()))
	}
}

func TestRecommend_Conjunctive(t *testing.T) {
	in := fiveCars()
	in[4].FloodDamage = "Ya"
	in[2].ActiveRegistration = "Tidak"

	minKm := 15000
	km, err := criteria.NewRange(&minKm, nil)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	c := criteria.Criteria{
		Make: "Toyota", Odometer: km, ExcludeFlood: true, RegistrationActiveOnly: true,
	}

	svc := New(constant(10), constant(10))
	res, err := svc.RecommendAdmitted(context.Background(), in, mustRequest(t, 100, 10, c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// row 1 fails odometer, row 3 registration, row 5 flood
	if res.EmptyReason() != result.NoMatch {
		t.Fatalf("expected no_match, got items %v", ids(res.Items()))
	}

	c.RegistrationActiveOnly = false
	res, err = svc.RecommendAdmitted(context.Background(), in, mustRequest(t, 100, 10, c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, it := range res.Items() {
		if !c.Matches(&it.Listing) {
			t.Errorf("returned row %s violates criteria", it.Listing.ID)
		}
	}
	if fmt.Sprint(ids(res.Items())) != "[3]" {
		t.Errorf("items = %v, want [3]", ids(res.Items()))
	}
}

func TestRecommend_PredictorError(t *testing.T) {
	price := &mockPredictor{err: errors.New("model exploded")}
	score := constant(1)
	svc := New(price, score)

	_, err := svc.RecommendAdmitted(context.Background(), fiveCars(), mustRequest(t, 100, 5, criteria.Criteria{}))
	if !errors.Is(err, domain.ErrPredictor) {
		t.Fatalf("expected ErrPredictor, got %v", err)
	}
	var pe *domain.PredictorError
	if !errors.As(err, &pe) || pe.Model != domain.ModelPrice {
		t.Errorf("expected price PredictorError, got %v", err)
	}
	if score.calls != 0 {
		t.Error("score predictor must not run after price failure")
	}
}

func TestRecommend_RowCountMismatch(t *testing.T) {
	score := constant(1)
	score.short = true
	svc := New(constant(1), score)

	_, err := svc.RecommendAdmitted(context.Background(), fiveCars(), mustRequest(t, 100, 5, criteria.Criteria{}))
	var pe *domain.PredictorError
	if !errors.As(err, &pe) || pe.Model != domain.ModelScore {
		t.Fatalf("expected score PredictorError, got %v", err)
	}
}

func TestRecommend_NaNPriceDropped(t *testing.T) {
	nan := byOdometer(func(km int) float64 {
		if km == 10000 {
			return math.NaN()
		}
		return 10
	})
	svc := New(nan, constant(5))

	res, err := svc.RecommendAdmitted(context.Background(), fiveCars(), mustRequest(t, 100, 10, criteria.Criteria{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items()) != 4 || res.Items()[0].Listing.ID != "2" {
		t.Errorf("expected NaN-priced row dropped, got %v", ids(res.Items()))
	}
}

func TestRecommend_FromFrame(t *testing.T) {
	cols := append([]string{listing.ColumnID}, listing.FeatureColumns...)
	rec := []string{
		"F1", "Toyota", "Avanza", "MPV", "2019", "60000", "Manual", "Bensin",
		"1300", "Hitam", "Jakarta", "1", "Rutin", "Tidak", "Tidak", "Ya", "180",
	}
	incomplete := append([]string{}, rec...)
	incomplete[0] = "F2"
	incomplete[5] = "NaN"

	f, err := dataset.FromRecords(cols, [][]string{rec, incomplete})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	svc := New(constant(120), constant(80))
	res, err := svc.Recommend(context.Background(), f, mustRequest(t, 150, 5, criteria.Criteria{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(ids(res.Items())) != "[F1]" {
		t.Errorf("items = %v, want [F1]", ids(res.Items()))
	}
}

func TestRecommend_SchemaError(t *testing.T) {
	cols := []string{listing.ColumnID, listing.ColumnMake}
	f, err := dataset.FromRecords(cols, [][]string{{"1", "Toyota"}})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	price := constant(1)
	svc := New(price, constant(1))
	_, err = svc.Recommend(context.Background(), f, mustRequest(t, 150, 5, criteria.Criteria{}))
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	var se *domain.SchemaError
	if !errors.As(err, &se) || len(se.Missing) != 15 {
		t.Errorf("expected 15 missing columns, got %v", err)
	}
	if price.calls != 0 {
		t.Error("predictor must not run on schema failure")
	}
}
