package carmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/criteria"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/request"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
	"github.com/kailas-cloud/carmatch/internal/model/linear"
	recommenduc "github.com/kailas-cloud/carmatch/internal/usecase/recommend"
)

// Client is the carmatch SDK entry point. It is safe for concurrent use
// when its predictors are.
type Client struct {
	svc          *recommenduc.Service
	defaultLimit int
	obs          *observer
}

// New creates a Client around a price and a score predictor.
func New(price, score Predictor, opts ...Option) (*Client, error) {
	if price == nil || score == nil {
		return nil, errors.New("carmatch: price and score predictors are required")
	}

	cfg := &clientConfig{defaultLimit: request.DefaultLimit}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		svc:          recommenduc.New(price, score),
		defaultLimit: cfg.defaultLimit,
		obs:          obs,
	}, nil
}

// LoadLinearModel reads a YAML linear model usable as a Predictor.
func LoadLinearModel(path string) (Predictor, error) {
	m, err := linear.Load(path)
	if err != nil {
		return nil, fmt.Errorf("carmatch: %w", err)
	}
	return m, nil
}

// Recommend ranks already admitted listings. The input slice is not modified.
func (c *Client) Recommend(ctx context.Context, listings []Listing, q Query) (Result, error) {
	start := time.Now()

	res, err := c.recommend(q, func(req *request.Request) (result.Result, error) {
		return c.svc.RecommendAdmitted(ctx, listings, req)
	})
	c.obs.observe("recommend", start, len(listings), &res, err)
	return res, err
}

// RecommendTable admits raw tabular rows and ranks them. Rows missing
// required values are skipped; missing columns fail with ErrSchema.
// Empty cells and "NA" are treated as missing.
func (c *Client) RecommendTable(
	ctx context.Context, columns []string, records [][]string, q Query,
) (Result, error) {
	start := time.Now()

	res, err := c.recommend(q, func(req *request.Request) (result.Result, error) {
		f, err := dataset.FromRecords(columns, records)
		if err != nil {
			return result.Result{}, fmt.Errorf("read table: %w", err)
		}
		return c.svc.Recommend(ctx, f, req)
	})
	c.obs.observe("recommend_table", start, len(records), &res, err)
	return res, err
}

func (c *Client) recommend(q Query, run func(*request.Request) (result.Result, error)) (Result, error) {
	req, err := c.buildRequest(q)
	if err != nil {
		return Result{}, err
	}
	res, err := run(&req)
	if err != nil {
		return Result{}, fmt.Errorf("carmatch: %w", err)
	}
	return toResult(&res), nil
}

func (c *Client) buildRequest(q Query) (request.Request, error) {
	year, err := criteria.NewRange(q.YearMin, q.YearMax)
	if err != nil {
		return request.Request{}, fmt.Errorf("carmatch: %w: year %w", domain.ErrInvalidRequest, err)
	}
	odometer, err := criteria.NewRange(q.OdometerMin, q.OdometerMax)
	if err != nil {
		return request.Request{}, fmt.Errorf("carmatch: %w: odometer %w", domain.ErrInvalidRequest, err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = c.defaultLimit
	}

	req, err := request.New(q.Budget, limit, criteria.Criteria{
		Make:                   q.Make,
		Segment:                q.Segment,
		Transmission:           q.Transmission,
		Fuel:                   q.Fuel,
		City:                   q.City,
		Year:                   year,
		Odometer:               odometer,
		ExcludeFlood:           q.ExcludeFlood,
		ExcludeCollision:       q.ExcludeCollision,
		RegistrationActiveOnly: q.RegistrationActiveOnly,
	})
	if err != nil {
		return request.Request{}, fmt.Errorf("carmatch: %w", err)
	}
	return req, nil
}

func toResult(r *result.Result) Result {
	items := make([]Recommendation, len(r.Items()))
	for i, it := range r.Items() {
		items[i] = Recommendation{
			Listing:        it.Listing,
			PredictedPrice: it.PredictedPrice,
			PredictedScore: it.PredictedScore,
			Rank:           it.Rank,
		}
	}
	s := r.Summary()
	return Result{
		Items:        items,
		EmptyReason:  string(r.EmptyReason()),
		Message:      r.EmptyReason().Message(),
		Budget:       r.Budget(),
		Matched:      r.Matched(),
		WithinBudget: r.WithinBudget(),
		Summary: Summary{
			Count:     s.Count,
			MinPrice:  s.MinPrice,
			MaxPrice:  s.MaxPrice,
			MeanScore: s.MeanScore,
		},
	}
}
