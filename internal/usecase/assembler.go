package usecase

import (
	"time"

	"StockSense/internal/domain/models"
	"StockSense/internal/services/aggregate"
)

// forecastPoints pairs predicted values with the week ends following last.
func forecastPoints(last models.Date, values []float64) []models.ForecastPoint {
	dates := aggregate.NextWeekEnds(last, len(values))
	pts := make([]models.ForecastPoint, len(values))
	for i, v := range values {
		pts[i] = models.ForecastPoint{Date: dates[i], Quantity: v}
	}
	return pts
}

// Assemble merges per-entity outcomes. Every entity lands in exactly one of
// Forecasts or Failures; an outcome with neither is reported as a fit failure.
func Assemble(id models.ArtifactID, outcomes []models.EntityOutcome, diag models.NormalizeStats, at time.Time) *models.ForecastResult {
	res := &models.ForecastResult{
		ArtifactID:  id,
		GeneratedAt: at.UTC(),
		Forecasts:   make(map[string]models.ForecastSeries, len(outcomes)),
		Failures:    make(map[string]models.ForecastFailure),
		Diagnostics: diag,
	}
	for _, o := range outcomes {
		switch {
		case o.OK():
			s := *o.Series
			s.EntityID = o.EntityID
			res.Forecasts[o.EntityID] = s
		case o.Failure != nil:
			f := *o.Failure
			f.EntityID = o.EntityID
			res.Failures[o.EntityID] = f
		default:
			res.Failures[o.EntityID] = models.ForecastFailure{
				EntityID: o.EntityID,
				Code:     models.FailureFit,
				Message:  "no forecast produced",
			}
		}
	}
	return res
}
