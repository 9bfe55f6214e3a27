package usecase

import (
	"context"
	"sync"
	"time"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/services/aggregate"
	"StockSense/pkg/logger"
)

// ForecastOptions carries the resampling and concurrency settings of a run.
type ForecastOptions struct {
	WeekEnd  time.Weekday
	ZeroFill bool
	Workers  int
}

// ForecastService runs the projection stage over a stored artifact.
type ForecastService struct {
	store      domrepo.HandoffStore
	forecaster domsvc.SeriesForecaster
	publisher  domrepo.ForecastPublisher
	observer   domrepo.RunObserver
	metrics    domrepo.Metrics
	log        *logger.Logger
	opts       ForecastOptions

	now func() time.Time
}

// NewForecastService accepts a nil publisher or observer.
func NewForecastService(
	store domrepo.HandoffStore,
	forecaster domsvc.SeriesForecaster,
	publisher domrepo.ForecastPublisher,
	observer domrepo.RunObserver,
	metrics domrepo.Metrics,
	log *logger.Logger,
	opts ForecastOptions,
) *ForecastService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &ForecastService{
		store:      store,
		forecaster: forecaster,
		publisher:  publisher,
		observer:   observer,
		metrics:    metrics,
		log:        log,
		opts:       opts,
		now:        time.Now,
	}
}

// Forecast loads id (or the latest artifact), resamples weekly and projects
// every entity. Entity failures are reported in the result, never returned.
func (s *ForecastService) Forecast(ctx context.Context, id models.ArtifactID) (*models.ForecastResult, error) {
	start := s.now()
	s.emit(models.RunEvent{Stage: models.StageForecast, Status: models.RunStarted, ArtifactID: id})

	art, series, err := s.load(ctx, id)
	if err != nil {
		s.metrics.RecordError("forecast_load")
		s.emit(models.RunEvent{Stage: models.StageForecast, Status: models.RunFailed, ArtifactID: id, Message: err.Error()})
		return nil, err
	}

	outcomes := s.forecastAll(ctx, series)
	if err := ctx.Err(); err != nil {
		s.emit(models.RunEvent{Stage: models.StageForecast, Status: models.RunFailed, ArtifactID: art.ID, Message: err.Error()})
		return nil, err
	}
	res := Assemble(art.ID, outcomes, art.Diagnostics, s.now())
	s.metrics.RecordLatency("forecast", time.Since(start).Seconds())

	if s.publisher != nil {
		if err := s.publisher.PublishForecast(ctx, res); err != nil {
			s.metrics.RecordError("forecast_publish")
			s.log.Error("publish forecast failed", logger.String("artifact_id", art.ID.String()), logger.Error(err))
		}
	}
	s.emit(models.RunEvent{
		Stage:      models.StageForecast,
		Status:     models.RunSucceeded,
		ArtifactID: art.ID,
		Entities:   len(res.Forecasts),
		Failures:   len(res.Failures),
	})
	return res, nil
}

// Series returns the weekly buckets the model would be fit on.
func (s *ForecastService) Series(ctx context.Context, id models.ArtifactID) (models.ArtifactID, map[string][]models.WeeklyBucket, error) {
	art, series, err := s.load(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return art.ID, series, nil
}

// Artifact returns the stored daily aggregation.
func (s *ForecastService) Artifact(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error) {
	return s.store.Load(ctx, id)
}

// Artifacts lists stored artifacts, newest first.
func (s *ForecastService) Artifacts(ctx context.Context, limit int) ([]models.ArtifactSummary, error) {
	return s.store.List(ctx, limit)
}

func (s *ForecastService) load(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, map[string][]models.WeeklyBucket, error) {
	art, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	weekly, err := aggregate.Weekly(art.Buckets, s.opts.WeekEnd, s.opts.ZeroFill)
	if err != nil {
		return nil, nil, err
	}
	return art, aggregate.SeriesByEntity(weekly), nil
}

// forecastAll runs entities on a bounded pool. Outcomes are keyed by entity,
// so scheduling order does not change the result.
func (s *ForecastService) forecastAll(ctx context.Context, series map[string][]models.WeeklyBucket) []models.EntityOutcome {
	entities := aggregate.Entities(series)
	out := make([]models.EntityOutcome, len(entities))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(s.opts.Workers, len(entities))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				e := entities[i]
				out[i] = s.forecaster.ForecastEntity(ctx, e, series[e])
			}
		}()
	}
	for i := range entities {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func (s *ForecastService) emit(ev models.RunEvent) {
	if s.observer == nil {
		return
	}
	ev.At = s.now().UTC()
	s.observer.OnRunEvent(ev)
}
