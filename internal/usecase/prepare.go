package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/internal/services/aggregate"
	"StockSense/internal/services/normalize"
	"StockSense/pkg/cache"
	"StockSense/pkg/logger"
)

// PrepareService runs the ingest stage: fetch, normalize, aggregate daily, persist.
type PrepareService struct {
	source     domrepo.TransactionSource
	normalizer *normalize.Normalizer
	store      domrepo.HandoffStore
	lock       cache.Service
	lockTTL    time.Duration
	observer   domrepo.RunObserver
	metrics    domrepo.Metrics
	log        *logger.Logger

	now    func() time.Time
	suffix func() string
}

func NewPrepareService(
	source domrepo.TransactionSource,
	normalizer *normalize.Normalizer,
	store domrepo.HandoffStore,
	lock cache.Service,
	lockTTL time.Duration,
	observer domrepo.RunObserver,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *PrepareService {
	return &PrepareService{
		source:     source,
		normalizer: normalizer,
		store:      store,
		lock:       lock,
		lockTTL:    lockTTL,
		observer:   observer,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
		suffix:     randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Prepare produces a new hand-off artifact. Concurrent calls are rejected
// with models.ErrRunInProgress rather than queued.
func (s *PrepareService) Prepare(ctx context.Context, cred domrepo.Credential) (*models.PrepareResult, error) {
	var res *models.PrepareResult
	held, err := cache.WithLock(ctx, s.lock, cache.LockKey(string(models.StagePrepare)), s.lockTTL, func() error {
		var err error
		res, err = s.run(ctx, cred)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !held {
		s.metrics.RecordError("prepare_locked")
		return nil, models.ErrRunInProgress
	}
	return res, nil
}

func (s *PrepareService) run(ctx context.Context, cred domrepo.Credential) (*models.PrepareResult, error) {
	start := s.now()
	s.emit(models.RunEvent{Stage: models.StagePrepare, Status: models.RunStarted})

	res, err := s.prepare(ctx, cred, start)
	if err != nil {
		s.metrics.RecordError("prepare_" + prepareErrorKind(err))
		s.emit(models.RunEvent{Stage: models.StagePrepare, Status: models.RunFailed, Message: err.Error()})
		return nil, err
	}

	s.metrics.RecordLatency("prepare", time.Since(start).Seconds())
	s.emit(models.RunEvent{
		Stage:      models.StagePrepare,
		Status:     models.RunSucceeded,
		ArtifactID: res.ArtifactID,
		Entities:   res.Entities,
	})
	return res, nil
}

func (s *PrepareService) prepare(ctx context.Context, cred domrepo.Credential, start time.Time) (*models.PrepareResult, error) {
	raw, err := s.source.FetchTransactions(ctx, cred)
	if err != nil {
		return nil, err
	}

	records, stats, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecords("accepted", stats.Accepted)
	s.metrics.RecordRecords("filtered", stats.Filtered)
	s.metrics.RecordRecords("dropped", stats.Dropped)
	if stats.Dropped > 0 {
		s.log.Warn("records dropped during normalization",
			logger.Int("dropped", stats.Dropped),
			logger.Any("reasons", stats.DropReasons),
		)
	}

	daily, err := aggregate.Daily(records, s.normalizer.Location())
	if err != nil {
		return nil, err
	}
	art := &models.HandoffArtifact{
		SchemaVersion: models.ArtifactSchemaVersion,
		ID:            models.NewArtifactID(start, s.suffix()),
		CreatedAt:     start.UTC(),
		Diagnostics:   stats,
		Buckets:       daily,
	}
	if err := s.store.Save(ctx, art); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	entities := make(map[string]struct{})
	for _, b := range daily {
		entities[b.EntityID] = struct{}{}
	}
	return &models.PrepareResult{
		ArtifactID:  art.ID,
		Buckets:     len(daily),
		Entities:    len(entities),
		Diagnostics: stats,
	}, nil
}

func (s *PrepareService) emit(ev models.RunEvent) {
	if s.observer == nil {
		return
	}
	ev.At = s.now().UTC()
	s.observer.OnRunEvent(ev)
}

func prepareErrorKind(err error) string {
	var ce *models.CollaboratorError
	switch {
	case errors.As(err, &ce):
		return "source"
	case errors.Is(err, models.ErrStructural):
		return "structural"
	case errors.Is(err, models.ErrQuantityOverflow):
		return "overflow"
	case errors.Is(err, models.ErrNoCredential):
		return "credential"
	default:
		return "store"
	}
}
