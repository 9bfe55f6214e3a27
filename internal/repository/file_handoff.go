package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	applogger "StockSense/pkg/logger"
)

const artifactExt = ".json"

// FileHandoffStore keeps one JSON file per artifact in a directory.
type FileHandoffStore struct {
	dir string
	l   *applogger.Logger
}

var _ domrepo.HandoffStore = (*FileHandoffStore)(nil)

// NewFileHandoffStore creates dir if needed.
func NewFileHandoffStore(dir string, l *applogger.Logger) (*FileHandoffStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file handoff: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file handoff: create dir: %w", err)
	}
	return &FileHandoffStore{dir: dir, l: l}, nil
}

func (s *FileHandoffStore) path(id models.ArtifactID) string {
	return filepath.Join(s.dir, string(id)+artifactExt)
}

// Save writes to a temp file and links it into place, so readers never see a
// partial artifact and an existing artifact is never replaced.
func (s *FileHandoffStore) Save(ctx context.Context, a *models.HandoffArtifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encodeArtifact(a)
	if err != nil {
		return err
	}

	final := s.path(a.ID)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("%w: %s", ErrArtifactExists, a.ID)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(a.ID)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("file handoff: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file handoff: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file handoff: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file handoff: close: %w", err)
	}
	if err := os.Link(tmp.Name(), final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrArtifactExists, a.ID)
		}
		return fmt.Errorf("file handoff: publish: %w", err)
	}

	if s.l != nil {
		s.l.Info("handoff artifact saved",
			applogger.String("backend", "file"),
			applogger.String("artifact_id", a.ID.String()),
			applogger.Int("buckets", len(a.Buckets)),
		)
	}
	return nil
}

func (s *FileHandoffStore) Load(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.IsLatest() {
		ids, err := s.ids()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: no artifacts in %s", models.ErrArtifactNotFound, s.dir)
		}
		id = ids[len(ids)-1]
	} else if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
	}

	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
		}
		return nil, fmt.Errorf("file handoff: read %s: %w", id, err)
	}
	return decodeArtifact(b, id)
}

func (s *FileHandoffStore) List(ctx context.Context, limit int) ([]models.ArtifactSummary, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	out := make([]models.ArtifactSummary, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := s.Load(ctx, ids[i])
		if err != nil {
			if s.l != nil {
				s.l.Warn("skipping unreadable artifact", applogger.String("artifact_id", ids[i].String()), applogger.Error(err))
			}
			continue
		}
		out = append(out, summarize(a))
	}
	return out, nil
}

// ids returns stored artifact ids in ascending (creation) order.
func (s *FileHandoffStore) ids() ([]models.ArtifactID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file handoff: list: %w", err)
	}
	ids := make([]models.ArtifactID, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		id := models.ArtifactID(strings.TrimSuffix(name, artifactExt))
		if id.Valid() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FileHandoffStore) Close() error { return nil }
