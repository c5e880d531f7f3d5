package chi

// ErrorResponseCode is a stable machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeSchemaError        ErrorResponseCode = "schema_error"
	ErrorResponseCodePredictorError     ErrorResponseCode = "predictor_error"
	ErrorResponseCodeCatalogUnavailable ErrorResponseCode = "catalog_unavailable"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// RecommendationStatus tells whether a response carries items.
type RecommendationStatus string

// Recommendation statuses.
const (
	RecommendationStatusOK    RecommendationStatus = "ok"
	RecommendationStatusEmpty RecommendationStatus = "empty"
)

// RecommendationRequest is the POST body and the GET query of /api/v1/recommendations.
// Pointer flags distinguish "omitted" from false.
type RecommendationRequest struct {
	Budget                 float64 `json:"budget" validate:"gt=0"`
	Limit                  int     `json:"limit,omitempty" validate:"gte=0"`
	Make                   string  `json:"make,omitempty" validate:"max=64"`
	Segment                string  `json:"segment,omitempty" validate:"max=64"`
	Transmission           string  `json:"transmission,omitempty" validate:"max=64"`
	Fuel                   string  `json:"fuel,omitempty" validate:"max=64"`
	City                   string  `json:"city,omitempty" validate:"max=64"`
	YearMin                *int    `json:"year_min,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	YearMax                *int    `json:"year_max,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	OdometerMin            *int    `json:"odometer_min,omitempty" validate:"omitempty,gte=0"`
	OdometerMax            *int    `json:"odometer_max,omitempty" validate:"omitempty,gte=0"`
	ExcludeFlood           *bool   `json:"exclude_flood,omitempty"`
	ExcludeCollision       *bool   `json:"exclude_collision,omitempty"`
	RegistrationActiveOnly *bool   `json:"registration_active_only,omitempty"`
	Advice                 bool    `json:"advice,omitempty"`
}

// RecommendationItem is one ranked listing.
type RecommendationItem struct {
	Rank           int     `json:"rank"`
	ID             string  `json:"id"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	Segment        string  `json:"segment"`
	Year           int     `json:"year"`
	Odometer       int     `json:"odometer"`
	Transmission   string  `json:"transmission"`
	Fuel           string  `json:"fuel"`
	Displacement   int     `json:"displacement"`
	Color          string  `json:"color"`
	City           string  `json:"city"`
	Owners         int     `json:"owners"`
	ServiceHistory string  `json:"service_history"`
	PredictedPrice float64 `json:"predicted_price"`
	PredictedScore float64 `json:"predicted_score"`
}

// RecommendationSummary aggregates the returned items.
type RecommendationSummary struct {
	Count     int     `json:"count"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	MeanScore float64 `json:"mean_score"`
}

// RecommendationResponse is the body of a successful recommendation call.
type RecommendationResponse struct {
	ID           string                 `json:"id"`
	Status       RecommendationStatus   `json:"status"`
	Reason       string                 `json:"reason,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Budget       float64                `json:"budget"`
	Matched      int                    `json:"matched"`
	WithinBudget int                    `json:"within_budget"`
	Items        []RecommendationItem   `json:"items"`
	Summary      *RecommendationSummary `json:"summary,omitempty"`
	Advice       string                 `json:"advice,omitempty"`
}

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// BudgetBounds describes the budget input.
type BudgetBounds struct {
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// FacetsResponse lists the filter choices for the current catalog.
type FacetsResponse struct {
	Makes         []string     `json:"makes"`
	Segments      []string     `json:"segments"`
	Transmissions []string     `json:"transmissions"`
	Fuels         []string     `json:"fuels"`
	Cities        []string     `json:"cities"`
	Year          Bounds       `json:"year"`
	Odometer      Bounds       `json:"odometer"`
	Budget        BudgetBounds `json:"budget"`
	Limit         Bounds       `json:"limit"`
	DefaultLimit  int          `json:"default_limit"`
}

// CatalogReloadResponse reports a completed reload.
type CatalogReloadResponse struct {
	Source   string `json:"source"`
	Admitted int    `json:"admitted"`
	Dropped  int    `json:"dropped"`
	LoadedAt string `json:"loaded_at"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
