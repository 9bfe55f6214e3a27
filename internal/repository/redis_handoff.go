package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/pkg/cache"
	applogger "StockSense/pkg/logger"
)

// RedisHandoffStore keeps each artifact under its own key plus a sorted-set
// index of ids. Members share score 0, so the index sorts lexically by id.
type RedisHandoffStore struct {
	rc    *redis.Client
	key   func(string) string
	index string
	l     *applogger.Logger
}

var _ domrepo.HandoffStore = (*RedisHandoffStore)(nil)

// NewRedisHandoffStore reuses the connection and key prefix of c.
func NewRedisHandoffStore(c *cache.RedisCache, l *applogger.Logger) *RedisHandoffStore {
	return &RedisHandoffStore{
		rc:    c.Client(),
		key:   c.Key,
		index: c.Key(cache.GenerateKey("handoff", "index")),
		l:     l,
	}
}

func (s *RedisHandoffStore) artifactKey(id models.ArtifactID) string {
	return s.key(cache.GenerateKey("handoff", id.String()))
}

func (s *RedisHandoffStore) Save(ctx context.Context, a *models.HandoffArtifact) error {
	b, err := encodeArtifact(a)
	if err != nil {
		return err
	}
	ok, err := s.rc.SetNX(ctx, s.artifactKey(a.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("redis handoff: set: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrArtifactExists, a.ID)
	}
	if err := s.rc.ZAdd(ctx, s.index, redis.Z{Score: 0, Member: a.ID.String()}).Err(); err != nil {
		return fmt.Errorf("redis handoff: index: %w", err)
	}

	if s.l != nil {
		s.l.Info("handoff artifact saved",
			applogger.String("backend", "redis"),
			applogger.String("artifact_id", a.ID.String()),
			applogger.Int("buckets", len(a.Buckets)),
		)
	}
	return nil
}

func (s *RedisHandoffStore) Load(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error) {
	if id.IsLatest() {
		ids, err := s.newest(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: no artifacts indexed", models.ErrArtifactNotFound)
		}
		id = ids[0]
	} else if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
	}

	b, err := s.rc.Get(ctx, s.artifactKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
		}
		return nil, fmt.Errorf("redis handoff: get %s: %w", id, err)
	}
	return decodeArtifact(b, id)
}

func (s *RedisHandoffStore) List(ctx context.Context, limit int) ([]models.ArtifactSummary, error) {
	ids, err := s.newest(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]models.ArtifactSummary, 0, len(ids))
	for _, id := range ids {
		a, err := s.Load(ctx, id)
		if err != nil {
			if s.l != nil {
				s.l.Warn("skipping unreadable artifact", applogger.String("artifact_id", id.String()), applogger.Error(err))
			}
			continue
		}
		out = append(out, summarize(a))
	}
	return out, nil
}

func (s *RedisHandoffStore) newest(ctx context.Context, n int) ([]models.ArtifactID, error) {
	members, err := s.rc.ZRevRangeByLex(ctx, s.index, &redis.ZRangeBy{Max: "+", Min: "-", Count: int64(n)}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis handoff: index: %w", err)
	}
	ids := make([]models.ArtifactID, 0, len(members))
	for _, m := range members {
		ids = append(ids, models.ArtifactID(m))
	}
	return ids, nil
}

// Close is a no-op; the connection belongs to the cache.
func (s *RedisHandoffStore) Close() error { return nil }
