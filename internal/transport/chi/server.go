// Package chi exposes the recommendation API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/criteria"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/request"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
	logpkg "github.com/kailas-cloud/carmatch/internal/logger"
	"github.com/kailas-cloud/carmatch/internal/metrics"
	cataloguc "github.com/kailas-cloud/carmatch/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/carmatch/internal/usecase/health"
	"github.com/kailas-cloud/carmatch/internal/version"
)

// maxBodyBytes bounds a recommendation request body.
const maxBodyBytes = 64 << 10

// Slider bounds offered to clients for the result size.
const (
	uiLimitMin = 3
	uiLimitMax = 20
)

// Catalog provides the admitted listing snapshot.
type Catalog interface {
	Snapshot() (*cataloguc.Snapshot, error)
	Reload(ctx context.Context) (*cataloguc.Snapshot, error)
}

// Recommender runs the pipeline on an admitted snapshot.
type Recommender interface {
	RecommendAdmitted(ctx context.Context, listings []listing.Listing, req *request.Request) (result.Result, error)
}

// Advisor writes optional advice; "" means none.
type Advisor interface {
	Advise(ctx context.Context, res *result.Result) string
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Limits are the configured result-size defaults.
type Limits struct {
	Default int
	Max     int
}

// Server holds the HTTP handlers.
type Server struct {
	catalog       Catalog
	recommender   Recommender
	advisor       Advisor
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	newID         func() string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. advisor may be nil.
func NewServer(
	catalog Catalog,
	recommender Recommender,
	advisor Advisor,
	health *healthuc.Service,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if limits.Max <= 0 || limits.Max > request.MaxLimit {
		limits.Max = request.MaxLimit
	}
	if limits.Default <= 0 {
		limits.Default = request.DefaultLimit
	}
	limits.Default = min(limits.Default, limits.Max)

	s := &Server{
		catalog:     catalog,
		recommender: recommender,
		advisor:     advisor,
		health:      health,
		limits:      limits,
		logger:      logger,
		newID:       uuid.NewString,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrSchema, http.StatusUnprocessableEntity, ErrorResponseCodeSchemaError),
		sentinelHandler(domain.ErrPredictor, http.StatusBadGateway, ErrorResponseCodePredictorError),
		sentinelHandler(domain.ErrCatalogNotLoaded,
			http.StatusServiceUnavailable, ErrorResponseCodeCatalogUnavailable),
	}
	return s
}

// CreateRecommendation handles POST /api/v1/recommendations.
func (s *Server) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.recommend(w, r, &req)
}

// GetRecommendations handles GET /api/v1/recommendations.
func (s *Server) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	req, err := bindRecommendationQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	s.recommend(w, r, &req)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, in *RecommendationRequest) {
	if msg := validateStruct(in); msg != "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, msg)
		return
	}

	req, err := s.requestFromAPI(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	snap, err := s.catalog.Snapshot()
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.recommender.RecommendAdmitted(r.Context(), snap.Listings(), &req)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, r, err)
		return
	}

	outcome := "ok"
	if res.IsEmpty() {
		outcome = string(res.EmptyReason())
	}
	metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()
	metrics.RecommendationItems.Observe(float64(len(res.Items())))

	id := s.newID()
	ctx := logpkg.WithFields(r.Context(), zap.String("recommendation_id", id))

	resp := recommendationToAPI(id, &res)
	if in.Advice && s.advisor != nil {
		resp.Advice = s.advisor.Advise(ctx, &res)
	}

	logpkg.FromContext(ctx).Debug("Recommendation served",
		zap.String("status", string(resp.Status)),
		zap.Int("matched", res.Matched()),
		zap.Int("within_budget", res.WithinBudget()),
		zap.Int("items", len(resp.Items)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// GetFacets handles GET /api/v1/facets.
func (s *Server) GetFacets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	f := snap.Facets()
	writeJSON(w, http.StatusOK, FacetsResponse{
		Makes:         f.Makes,
		Segments:      f.Segments,
		Transmissions: f.Transmissions,
		Fuels:         f.Fuels,
		Cities:        f.Cities,
		Year:          Bounds{Min: f.YearMin, Max: f.YearMax},
		Odometer:      Bounds{Min: f.OdometerMin, Max: f.OdometerMax},
		Budget:        BudgetBounds{Default: f.DefaultBudget, Min: f.MinBudget, Max: f.MaxBudget},
		Limit:         Bounds{Min: uiLimitMin, Max: min(uiLimitMax, s.limits.Max)},
		DefaultLimit:  s.limits.Default,
	})
}

// ReloadCatalog handles POST /api/v1/catalog/reload.
func (s *Server) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogReloadResponse{
		Source:   snap.Source(),
		Admitted: len(snap.Listings()),
		Dropped:  snap.Dropped(),
		LoadedAt: snap.LoadedAt().UTC().Format(time.RFC3339),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) requestFromAPI(in *RecommendationRequest) (request.Request, error) {
	year, err := criteria.NewRange(in.YearMin, in.YearMax)
	if err != nil {
		return request.Request{}, fmt.Errorf("year: %w", err)
	}
	odometer, err := criteria.NewRange(in.OdometerMin, in.OdometerMax)
	if err != nil {
		return request.Request{}, fmt.Errorf("odometer: %w", err)
	}

	c := criteria.Criteria{
		Make:                   in.Make,
		Segment:                in.Segment,
		Transmission:           in.Transmission,
		Fuel:                   in.Fuel,
		City:                   in.City,
		Year:                   year,
		Odometer:               odometer,
		ExcludeFlood:           boolOr(in.ExcludeFlood, true),
		ExcludeCollision:       boolOr(in.ExcludeCollision, true),
		RegistrationActiveOnly: boolOr(in.RegistrationActiveOnly, false),
	}

	limit := in.Limit
	if limit <= 0 {
		limit = s.limits.Default
	}
	limit = min(limit, s.limits.Max)

	req, err := request.New(in.Budget, limit, c)
	if err != nil {
		return request.Request{}, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

// bindRecommendationQuery binds form-style query parameters.
func bindRecommendationQuery(r *http.Request) (RecommendationRequest, error) {
	var p RecommendationRequest
	q := r.URL.Query()

	binds := []struct {
		name     string
		required bool
		dest     any
	}{
		{"budget", true, &p.Budget},
		{"limit", false, &p.Limit},
		{"make", false, &p.Make},
		{"segment", false, &p.Segment},
		{"transmission", false, &p.Transmission},
		{"fuel", false, &p.Fuel},
		{"city", false, &p.City},
		{"year_min", false, &p.YearMin},
		{"year_max", false, &p.YearMax},
		{"odometer_min", false, &p.OdometerMin},
		{"odometer_max", false, &p.OdometerMax},
		{"exclude_flood", false, &p.ExcludeFlood},
		{"exclude_collision", false, &p.ExcludeCollision},
		{"registration_active_only", false, &p.RegistrationActiveOnly},
		{"advice", false, &p.Advice},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			return RecommendationRequest{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

func recommendationToAPI(id string, res *result.Result) RecommendationResponse {
	resp := RecommendationResponse{
		ID:           id,
		Status:       RecommendationStatusOK,
		Budget:       res.Budget(),
		Matched:      res.Matched(),
		WithinBudget: res.WithinBudget(),
		Items:        make([]RecommendationItem, 0, len(res.Items())),
	}

	if res.IsEmpty() {
		resp.Status = RecommendationStatusEmpty
		resp.Reason = string(res.EmptyReason())
		resp.Message = res.EmptyReason().Message()
		return resp
	}

	for _, rec := range res.Items() {
		resp.Items = append(resp.Items, itemToAPI(&rec))
	}
	sum := res.Summary()
	resp.Summary = &RecommendationSummary{
		Count:     sum.Count,
		MinPrice:  sum.MinPrice,
		MaxPrice:  sum.MaxPrice,
		MeanScore: sum.MeanScore,
	}
	return resp
}

func itemToAPI(rec *result.Recommendation) RecommendationItem {
	l := &rec.Listing
	return RecommendationItem{
		Rank:           rec.Rank,
		ID:             l.ID,
		Make:           l.Make,
		Model:          l.Model,
		Segment:        l.Segment,
		Year:           l.Year,
		Odometer:       l.Odometer,
		Transmission:   l.Transmission,
		Fuel:           l.Fuel,
		Displacement:   l.Displacement,
		Color:          l.Color,
		City:           l.City,
		Owners:         l.Owners,
		ServiceHistory: l.ServiceHistory,
		PredictedPrice: rec.PredictedPrice,
		PredictedScore: rec.PredictedScore,
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client message without exposing internals.
// Schema errors keep their detail: the missing column names are the useful part.
func safeDomainMessage(err error) string {
	var se *domain.SchemaError
	if errors.As(err, &se) {
		return se.Error()
	}
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrSchema,
		domain.ErrPredictor,
		domain.ErrCatalogNotLoaded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, msg)
}
