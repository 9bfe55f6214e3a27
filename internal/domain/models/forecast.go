package models

import "time"

// DefaultHorizon is the number of future weeks projected per entity.
const DefaultHorizon = 4

// ForecastPoint is one projected week.
type ForecastPoint struct {
	Date     Date    `json:"date"`
	Quantity float64 `json:"quantity"`
}

// ForecastSeries is the projection for a single entity.
type ForecastSeries struct {
	EntityID     string          `json:"entity_id"`
	Observations int             `json:"observations"`
	Points       []ForecastPoint `json:"points"`
}

// Dates returns the forecast dates formatted as YYYY-MM-DD.
func (s ForecastSeries) Dates() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date.String()
	}
	return out
}

// Quantities returns the predicted quantities in date order.
func (s ForecastSeries) Quantities() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Quantity
	}
	return out
}

// FailureCode classifies why an entity could not be forecast.
type FailureCode string

const (
	FailureInsufficientData FailureCode = "ERR_INSUFFICIENT_DATA"
	FailureFit              FailureCode = "ERR_FIT_FAILED"
	FailureTimeout          FailureCode = "ERR_FIT_TIMEOUT"
)

// ForecastFailure records an entity that was not forecast.
type ForecastFailure struct {
	EntityID     string      `json:"entity_id"`
	Code         FailureCode `json:"code"`
	Message      string      `json:"message"`
	Observations int         `json:"observations"`
}

// EntityOutcome is either a Series or a Failure, never both.
type EntityOutcome struct {
	EntityID string
	Series   *ForecastSeries
	Failure  *ForecastFailure
}

// OK reports whether the outcome carries a forecast.
func (o EntityOutcome) OK() bool { return o.Series != nil && o.Failure == nil }

// ForecastResult is the assembled output of one forecast run.
type ForecastResult struct {
	ArtifactID  ArtifactID                 `json:"artifact_id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Forecasts   map[string]ForecastSeries  `json:"forecasts"`
	Failures    map[string]ForecastFailure `json:"failures"`
	Diagnostics NormalizeStats             `json:"diagnostics"`
}
