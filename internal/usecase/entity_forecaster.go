package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/services/aggregate"
	"StockSense/internal/services/arima"
	"StockSense/pkg/config"
	"StockSense/pkg/logger"
)

// fitFunc fits a fresh model to series and returns steps predictions.
type fitFunc func(series []float64, steps int) ([]float64, error)

// EntityForecaster fits one model per entity under a time budget.
type EntityForecaster struct {
	horizon int
	timeout time.Duration
	fit     fitFunc
	metrics domrepo.Metrics
	log     *logger.Logger
}

var _ domsvc.SeriesForecaster = (*EntityForecaster)(nil)

// NewEntityForecaster validates the model order up front.
func NewEntityForecaster(cfg config.ForecastConfig, metrics domrepo.Metrics, log *logger.Logger) (*EntityForecaster, error) {
	if _, err := arima.New(cfg.AROrder, cfg.Diff, cfg.MAOrder); err != nil {
		return nil, err
	}
	p, d, q := cfg.AROrder, cfg.Diff, cfg.MAOrder
	return &EntityForecaster{
		horizon: cfg.Horizon,
		timeout: cfg.FitTimeout,
		metrics: metrics,
		log:     log,
		fit: func(series []float64, steps int) ([]float64, error) {
			m, err := arima.New(p, d, q)
			if err != nil {
				return nil, err
			}
			if err := m.Fit(series); err != nil {
				return nil, err
			}
			return m.Forecast(steps)
		},
	}, nil
}

type fitResult struct {
	values []float64
	err    error
}

func (f *EntityForecaster) ForecastEntity(ctx context.Context, entityID string, series []models.WeeklyBucket) models.EntityOutcome {
	start := time.Now()
	n := len(series)
	if n == 0 {
		return f.failed(entityID, n, fmt.Errorf("%w: empty series", models.ErrInsufficientData))
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	done := make(chan fitResult, 1)
	values := aggregate.Quantities(series)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.log.Error("forecast panic",
					logger.String("entity", entityID),
					logger.Any("panic", r),
					logger.String("stack", string(debug.Stack())),
				)
				done <- fitResult{err: fmt.Errorf("%w: panic: %v", models.ErrFitFailed, r)}
			}
		}()
		v, err := f.fit(values, f.horizon)
		done <- fitResult{values: v, err: err}
	}()

	var res fitResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w after %s", models.ErrFitTimeout, time.Since(start).Round(time.Millisecond))
	}
	f.metrics.RecordLatency("entity_fit", time.Since(start).Seconds())

	if res.err != nil {
		return f.failed(entityID, n, res.err)
	}
	f.metrics.RecordForecast("success")
	return models.EntityOutcome{
		EntityID: entityID,
		Series: &models.ForecastSeries{
			EntityID:     entityID,
			Observations: n,
			Points:       forecastPoints(series[n-1].WeekEnd, res.values),
		},
	}
}

func (f *EntityForecaster) failed(entityID string, n int, err error) models.EntityOutcome {
	code := failureCode(err)
	f.metrics.RecordForecast(string(code))
	f.log.Debug("entity not forecast",
		logger.String("entity", entityID),
		logger.String("code", string(code)),
		logger.Error(err),
	)
	return models.EntityOutcome{
		EntityID: entityID,
		Failure: &models.ForecastFailure{
			EntityID:     entityID,
			Code:         code,
			Message:      err.Error(),
			Observations: n,
		},
	}
}

func failureCode(err error) models.FailureCode {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return models.FailureInsufficientData
	case errors.Is(err, models.ErrFitTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	default:
		return models.FailureFit
	}
}
