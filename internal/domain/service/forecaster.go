package service

import (
	"context"

	"StockSense/internal/domain/models"
)

// SeriesForecaster projects one entity's weekly series forward.
type SeriesForecaster interface {
	ForecastEntity(ctx context.Context, entityID string, series []models.WeeklyBucket) models.EntityOutcome
}
