package api

import (
	"time"

	"StockSense/internal/domain/models"
)

type seriesView struct {
	Dates        []string  `json:"dates"`
	Forecast     []float64 `json:"forecast"`
	Observations int       `json:"observations"`
}

type failureView struct {
	Code         models.FailureCode `json:"code"`
	Message      string             `json:"message"`
	Observations int                `json:"observations"`
}

type forecastView struct {
	ArtifactID  models.ArtifactID      `json:"artifact_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Forecasts   map[string]seriesView  `json:"forecasts"`
	Failures    map[string]failureView `json:"failures"`
	Diagnostics models.NormalizeStats  `json:"diagnostics"`
}

func newForecastView(res *models.ForecastResult) forecastView {
	v := forecastView{
		ArtifactID:  res.ArtifactID,
		GeneratedAt: res.GeneratedAt,
		Forecasts:   make(map[string]seriesView, len(res.Forecasts)),
		Failures:    make(map[string]failureView, len(res.Failures)),
		Diagnostics: res.Diagnostics,
	}
	for id, s := range res.Forecasts {
		v.Forecasts[id] = seriesView{Dates: s.Dates(), Forecast: s.Quantities(), Observations: s.Observations}
	}
	for id, f := range res.Failures {
		v.Failures[id] = failureView{Code: f.Code, Message: f.Message, Observations: f.Observations}
	}
	return v
}

type weeklyView struct {
	ArtifactID models.ArtifactID                `json:"artifact_id"`
	Series     map[string][]models.WeeklyBucket `json:"series"`
}
