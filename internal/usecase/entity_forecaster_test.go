package usecase

import (
	"context"
	"testing"
	"time"

	"StockSense/internal/domain/models"
	"StockSense/pkg/logger"
	"StockSense/pkg/metrics"
)

func weeks(n int) []models.WeeklyBucket {
	out := make([]models.WeeklyBucket, n)
	end := models.NewDate(2024, 1, 7)
	for i := range out {
		out[i] = models.WeeklyBucket{EntityID: "A", WeekEnd: end.AddDays(7 * i), TotalQuantity: weeklyQuantity(0, i)}
	}
	return out
}

func TestEntityForecasterSuccess(t *testing.T) {
	f := newForecaster(t)
	series := weeks(20)
	o := f.ForecastEntity(context.Background(), "A", series)
	if !o.OK() {
		t.Fatalf("expected success, got %+v", o.Failure)
	}
	if len(o.Series.Points) != 4 || o.Series.Observations != 20 {
		t.Fatalf("unexpected series %+v", o.Series)
	}
	last := series[len(series)-1].WeekEnd
	for i, p := range o.Series.Points {
		if want := last.AddDays(7 * (i + 1)); !p.Date.Equal(want) {
			t.Fatalf("point %d date %s, want %s", i, p.Date, want)
		}
		if p.Date.Weekday() != time.Sunday {
			t.Fatalf("forecast date %s is not a Sunday", p.Date)
		}
	}
}

func TestEntityForecasterFailureCodes(t *testing.T) {
	tests := []struct {
		name string
		fit  fitFunc
		n    int
		want models.FailureCode
	}{
		{name: "short series", n: 3, want: models.FailureInsufficientData},
		{name: "empty series", n: 0, want: models.FailureInsufficientData},
		{
			name: "fit error",
			n:    20,
			fit:  func([]float64, int) ([]float64, error) { return nil, models.ErrFitFailed },
			want: models.FailureFit,
		},
		{
			name: "panic",
			n:    20,
			fit:  func([]float64, int) ([]float64, error) { panic("boom") },
			want: models.FailureFit,
		},
		{
			name: "timeout",
			n:    20,
			fit: func([]float64, int) ([]float64, error) {
				time.Sleep(200 * time.Millisecond)
				return []float64{1, 2, 3, 4}, nil
			},
			want: models.FailureTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForecaster(t)
			f.timeout = 20 * time.Millisecond
			if tt.fit != nil {
				f.fit = tt.fit
			}
			o := f.ForecastEntity(context.Background(), "A", weeks(tt.n))
			if o.OK() || o.Failure == nil {
				t.Fatal("expected failure outcome")
			}
			if o.Failure.Code != tt.want {
				t.Fatalf("code = %s, want %s (%s)", o.Failure.Code, tt.want, o.Failure.Message)
			}
		})
	}
}

func TestEntityForecasterRejectsMovingAverage(t *testing.T) {
	cfg := forecastConfig()
	cfg.MAOrder = 1
	if _, err := NewEntityForecaster(cfg, metrics.Nop{}, logger.Nop()); err == nil {
		t.Fatal("expected error for q > 0")
	}
}

func TestAssembleNeverDropsEntities(t *testing.T) {
	outcomes := []models.EntityOutcome{
		{EntityID: "ok", Series: &models.ForecastSeries{Points: []models.ForecastPoint{{Quantity: 1}}}},
		{EntityID: "bad", Failure: &models.ForecastFailure{Code: models.FailureFit, Message: "x"}},
		{EntityID: "empty"},
	}
	res := Assemble("id", outcomes, models.NormalizeStats{}, time.Now())
	if len(res.Forecasts) != 1 || len(res.Failures) != 2 {
		t.Fatalf("forecasts %v failures %v", res.Forecasts, res.Failures)
	}
	if res.Forecasts["ok"].EntityID != "ok" || res.Failures["empty"].Code != models.FailureFit {
		t.Fatalf("unexpected result %+v", res)
	}
}
