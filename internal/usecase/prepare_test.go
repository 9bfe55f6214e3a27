package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"StockSense/internal/domain/models"
	"StockSense/internal/services/normalize"
	"StockSense/pkg/cache"
	"StockSense/pkg/logger"
	"StockSense/pkg/metrics"
)

const widgetPayload = `[
	{"productName":"Widget","transactionType":"sale","date":"2024-01-01T10:00:00Z","quantity":3,"amount":"30.00"},
	{"productName":"Widget","transactionType":"sale","date":"2024-01-02T10:00:00Z","quantity":5,"amount":"50.00"},
	{"productName":"Widget","transactionType":"return","date":"2024-01-02T11:00:00Z","quantity":1,"amount":"10.00"},
	{"productName":"Widget","transactionType":"sale","quantity":9,"amount":"90.00"}
]`

func newPrepareService(t *testing.T, src *fakeSource, obs *recordingObserver, buf *bytes.Buffer) (*PrepareService, *cache.MemoryCache) {
	t.Helper()
	lock := cache.NewMemoryCache()
	t.Cleanup(func() { _ = lock.Close() })
	log := logger.Nop()
	if buf != nil {
		log = logger.NewWriter(buf, zerolog.DebugLevel)
	}
	svc := NewPrepareService(src, normalize.New(normalize.DefaultFields(), time.UTC), newStore(t), lock, time.Minute, nil, metrics.Nop{}, log)
	if obs != nil {
		svc.observer = obs
	}
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC) }
	svc.suffix = func() string { return "abcdef12" }
	return svc, lock
}

func TestPrepareWidgetExample(t *testing.T) {
	var buf bytes.Buffer
	src := &fakeSource{raw: widgetPayload}
	obs := &recordingObserver{}
	svc, _ := newPrepareService(t, src, obs, &buf)
	cred := fakeCred{secret: "hunter2-secret"}

	res, err := svc.Prepare(context.Background(), cred)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if res.ArtifactID != "20240201T083000Z-abcdef12" {
		t.Fatalf("artifact id = %s", res.ArtifactID)
	}
	if res.Buckets != 2 || res.Entities != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Diagnostics.Filtered != 1 || res.Diagnostics.Dropped != 1 || res.Diagnostics.DropReasons[normalize.ReasonMissingTimestamp] != 1 {
		t.Fatalf("diagnostics = %+v", res.Diagnostics)
	}
	if src.cred != cred {
		t.Fatal("credential not forwarded to source")
	}

	art, err := svc.store.Load(context.Background(), res.ArtifactID)
	if err != nil {
		t.Fatal(err)
	}
	if art.Buckets[0].Date.String() != "2024-01-01" || art.Buckets[0].TotalQuantity != 3 ||
		art.Buckets[1].Date.String() != "2024-01-02" || art.Buckets[1].TotalQuantity != 5 {
		t.Fatalf("buckets = %+v", art.Buckets)
	}
	if strings.Contains(buf.String(), "hunter2-secret") {
		t.Fatal("credential leaked into logs")
	}
	if got := obs.statuses(); len(got) != 2 || got[1] != models.RunSucceeded {
		t.Fatalf("events = %v", got)
	}
}

func TestPrepareRunInProgress(t *testing.T) {
	src := &fakeSource{raw: widgetPayload}
	svc, lock := newPrepareService(t, src, nil, nil)
	ok, _ := lock.TryLock(context.Background(), cache.LockKey(string(models.StagePrepare)), cache.NewLockToken(), time.Minute)
	if !ok {
		t.Fatal("could not take lock")
	}
	if _, err := svc.Prepare(context.Background(), fakeCred{}); !errors.Is(err, models.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if src.calls != 0 {
		t.Fatal("source called while locked")
	}
}

func TestPrepareReleasesLockAfterFailure(t *testing.T) {
	src := &fakeSource{err: &models.CollaboratorError{Op: "fetch", Status: 500}}
	obs := &recordingObserver{}
	svc, _ := newPrepareService(t, src, obs, nil)

	_, err := svc.Prepare(context.Background(), fakeCred{})
	var ce *models.CollaboratorError
	if !errors.As(err, &ce) || ce.Status != 500 {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if got := obs.statuses(); len(got) != 2 || got[1] != models.RunFailed {
		t.Fatalf("events = %v", got)
	}

	src.err, src.raw = nil, widgetPayload
	if _, err := svc.Prepare(context.Background(), fakeCred{}); err != nil {
		t.Fatalf("lock not released: %v", err)
	}
}

func TestPrepareStructuralFailureWritesNothing(t *testing.T) {
	src := &fakeSource{raw: `{"error":"maintenance"}`}
	svc, _ := newPrepareService(t, src, nil, nil)
	if _, err := svc.Prepare(context.Background(), fakeCred{}); !errors.Is(err, models.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if list, _ := svc.store.List(context.Background(), 0); len(list) != 0 {
		t.Fatalf("artifact written after structural failure: %v", list)
	}
}

func TestPrepareQuantityOverflowWritesNothing(t *testing.T) {
	src := &fakeSource{raw: `[
	{"productName":"Widget","transactionType":"sale","date":"2024-01-01T10:00:00Z","quantity":9223372036854775807,"amount":"1"},
	{"productName":"Widget","transactionType":"sale","date":"2024-01-01T11:00:00Z","quantity":1,"amount":"1"}
]`}
	svc, _ := newPrepareService(t, src, nil, nil)
	if _, err := svc.Prepare(context.Background(), fakeCred{}); !errors.Is(err, models.ErrQuantityOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if list, _ := svc.store.List(context.Background(), 0); len(list) != 0 {
		t.Fatalf("artifact written after overflow: %v", list)
	}
}
