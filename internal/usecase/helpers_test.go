package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/internal/repository"
	"StockSense/pkg/config"
	"StockSense/pkg/logger"
	"StockSense/pkg/metrics"
)

type fakeSource struct {
	raw   string
	err   error
	calls int
	cred  domrepo.Credential
}

func (f *fakeSource) FetchTransactions(_ context.Context, cred domrepo.Credential) (json.RawMessage, error) {
	f.calls++
	f.cred = cred
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

type fakeCred struct{ secret string }

func (fakeCred) Kind() string   { return "fake" }
func (fakeCred) String() string { return "fake(****)" }

type recordingObserver struct {
	mu     sync.Mutex
	events []models.RunEvent
}

func (o *recordingObserver) OnRunEvent(ev models.RunEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) statuses() []models.RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.RunStatus, len(o.events))
	for i, ev := range o.events {
		out[i] = ev.Status
	}
	return out
}

type fakePublisher struct {
	results []*models.ForecastResult
	err     error
}

func (p *fakePublisher) PublishForecast(_ context.Context, res *models.ForecastResult) error {
	p.results = append(p.results, res)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func newStore(t *testing.T) *repository.FileHandoffStore {
	t.Helper()
	s, err := repository.NewFileHandoffStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func forecastConfig() config.ForecastConfig {
	return config.ForecastConfig{AROrder: 5, Diff: 1, Horizon: 4, WeekEnd: "sunday", FitTimeout: 5 * time.Second, Workers: 1}
}

func newForecaster(t *testing.T) *EntityForecaster {
	t.Helper()
	f, err := NewEntityForecaster(forecastConfig(), metrics.Nop{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// weeklyQuantity is a deterministic, non-degenerate demand pattern.
func weeklyQuantity(entity, week int) int64 {
	return int64(20 + (entity*37+week*week*13)%17 + week)
}

// seedArtifact stores weeks of one-sale-per-Monday buckets per entity,
// starting Monday 2024-01-01.
func seedArtifact(t *testing.T, s domrepo.HandoffStore, weeks map[string]int) *models.HandoffArtifact {
	t.Helper()
	start := models.NewDate(2024, 1, 1)
	var buckets []models.DailyBucket
	names := make([]string, 0, len(weeks))
	for entity := range weeks {
		names = append(names, entity)
	}
	sort.Strings(names)
	for i, entity := range names {
		for w := 0; w < weeks[entity]; w++ {
			q := weeklyQuantity(i, w)
			buckets = append(buckets, models.DailyBucket{
				EntityID:      entity,
				Date:          start.AddDays(7 * w),
				TotalQuantity: q,
				TotalAmount:   decimal.NewFromInt(q * 2),
			})
		}
	}
	a := &models.HandoffArtifact{
		SchemaVersion: models.ArtifactSchemaVersion,
		ID:            models.NewArtifactID(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "facade01"),
		CreatedAt:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Buckets:       buckets,
	}
	if err := s.Save(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}
