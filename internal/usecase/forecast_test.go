package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"StockSense/internal/domain/models"
	"StockSense/pkg/logger"
	"StockSense/pkg/metrics"
)

func newForecastService(t *testing.T, workers int, pub *fakePublisher, obs *recordingObserver) *ForecastService {
	t.Helper()
	svc := NewForecastService(newStore(t), newForecaster(t), nil, nil, metrics.Nop{}, logger.Nop(),
		ForecastOptions{WeekEnd: time.Sunday, ZeroFill: true, Workers: workers})
	if pub != nil {
		svc.publisher = pub
	}
	if obs != nil {
		svc.observer = obs
	}
	fixed := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestForecastIsolatesShortSeries(t *testing.T) {
	pub := &fakePublisher{}
	obs := &recordingObserver{}
	svc := newForecastService(t, 1, pub, obs)
	art := seedArtifact(t, svc.store, map[string]int{"Alpha": 20, "Beta": 24, "Gamma": 18, "Tiny": 3})

	res, err := svc.Forecast(context.Background(), models.LatestArtifact)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if res.ArtifactID != art.ID {
		t.Fatalf("artifact id = %s", res.ArtifactID)
	}
	if len(res.Forecasts) != 3 || len(res.Failures) != 1 {
		t.Fatalf("forecasts %d failures %d: %+v", len(res.Forecasts), len(res.Failures), res.Failures)
	}
	fail, ok := res.Failures["Tiny"]
	if !ok || fail.Code != models.FailureInsufficientData || fail.Observations != 3 {
		t.Fatalf("unexpected failure %+v", res.Failures)
	}
	alpha := res.Forecasts["Alpha"]
	// 20 Mondays from 2024-01-01 end in the week of 2024-05-19.
	if got := alpha.Dates(); !reflect.DeepEqual(got, []string{"2024-05-26", "2024-06-02", "2024-06-09", "2024-06-16"}) {
		t.Fatalf("alpha dates = %v", got)
	}
	if len(pub.results) != 1 || pub.results[0] != res {
		t.Fatal("result was not published")
	}
	if got := obs.statuses(); !reflect.DeepEqual(got, []models.RunStatus{models.RunStarted, models.RunSucceeded}) {
		t.Fatalf("events = %v", got)
	}
}

func TestForecastDeterministicAcrossWorkers(t *testing.T) {
	weeks := map[string]int{"A": 20, "B": 22, "C": 16, "D": 30, "E": 2}

	seq := newForecastService(t, 1, nil, nil)
	seedArtifact(t, seq.store, weeks)
	par := newForecastService(t, 4, nil, nil)
	seedArtifact(t, par.store, weeks)

	r1, err := seq.Forecast(context.Background(), models.LatestArtifact)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := seq.Forecast(context.Background(), models.LatestArtifact)
	if err != nil {
		t.Fatal(err)
	}
	r3, err := par.Forecast(context.Background(), models.LatestArtifact)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r1, r2) {
		t.Fatal("repeated runs differ")
	}
	if !reflect.DeepEqual(r1.Forecasts, r3.Forecasts) || !reflect.DeepEqual(r1.Failures, r3.Failures) {
		t.Fatal("parallel run differs from sequential run")
	}
}

func TestForecastMissingArtifact(t *testing.T) {
	obs := &recordingObserver{}
	svc := newForecastService(t, 1, nil, obs)
	_, err := svc.Forecast(context.Background(), models.LatestArtifact)
	if !errors.Is(err, models.ErrArtifactNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := obs.statuses(); len(got) != 2 || got[1] != models.RunFailed {
		t.Fatalf("events = %v", got)
	}
}

func TestForecastPublishErrorDoesNotFailRun(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newForecastService(t, 1, pub, nil)
	seedArtifact(t, svc.store, map[string]int{"A": 20})
	if _, err := svc.Forecast(context.Background(), models.LatestArtifact); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}

func TestSeriesZeroFilled(t *testing.T) {
	svc := newForecastService(t, 1, nil, nil)
	art := &models.HandoffArtifact{
		SchemaVersion: models.ArtifactSchemaVersion,
		ID:            models.NewArtifactID(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "0000beef"),
		Buckets: []models.DailyBucket{
			{EntityID: "A", Date: models.NewDate(2024, 1, 1), TotalQuantity: 2},
			{EntityID: "A", Date: models.NewDate(2024, 1, 22), TotalQuantity: 5},
		},
	}
	if err := svc.store.Save(context.Background(), art); err != nil {
		t.Fatal(err)
	}
	id, series, err := svc.Series(context.Background(), art.ID)
	if err != nil || id != art.ID {
		t.Fatalf("series: %v %v", id, err)
	}
	var got []int64
	for _, b := range series["A"] {
		got = append(got, b.TotalQuantity)
	}
	if !reflect.DeepEqual(got, []int64{2, 0, 0, 5}) {
		t.Fatalf("weekly quantities = %v", got)
	}
}
