package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"StockSense/internal/domain/models"
)

// ErrArtifactExists is returned when saving over an existing artifact.
var ErrArtifactExists = errors.New("hand-off artifact already exists")

func encodeArtifact(a *models.HandoffArtifact) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil artifact")
	}
	if !a.ID.Valid() {
		return nil, fmt.Errorf("invalid artifact id %q", a.ID)
	}
	if a.SchemaVersion == 0 {
		a.SchemaVersion = models.ArtifactSchemaVersion
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return b, nil
}

// decodeArtifact parses and checks a stored artifact. Any failure is reported
// as models.ErrArtifactCorrupt so callers can tell it apart from a missing one.
func decodeArtifact(b []byte, want models.ArtifactID) (*models.HandoffArtifact, error) {
	var a models.HandoffArtifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrArtifactCorrupt, want, err)
	}
	if a.SchemaVersion != models.ArtifactSchemaVersion {
		return nil, fmt.Errorf("%w: %s: unsupported schema version %d", models.ErrArtifactCorrupt, want, a.SchemaVersion)
	}
	if want != "" && a.ID != want {
		return nil, fmt.Errorf("%w: %s: embedded id %q does not match", models.ErrArtifactCorrupt, want, a.ID)
	}
	for i, bk := range a.Buckets {
		if bk.EntityID == "" || bk.Date.IsZero() || bk.TotalQuantity < 0 || bk.TotalAmount.IsNegative() {
			return nil, fmt.Errorf("%w: %s: bucket %d is invalid", models.ErrArtifactCorrupt, want, i)
		}
	}
	return &a, nil
}

func summarize(a *models.HandoffArtifact) models.ArtifactSummary {
	return models.ArtifactSummary{ID: a.ID, CreatedAt: a.CreatedAt, BucketCount: len(a.Buckets)}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
