package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"StockSense/internal/domain/models"
)

func sampleArtifact(t *testing.T, at time.Time, suffix string) *models.HandoffArtifact {
	t.Helper()
	d1, _ := models.ParseDate("2024-01-01")
	d2, _ := models.ParseDate("2024-01-02")
	return &models.HandoffArtifact{
		SchemaVersion: models.ArtifactSchemaVersion,
		ID:            models.NewArtifactID(at, suffix),
		CreatedAt:     at.UTC(),
		Diagnostics:   models.NormalizeStats{Total: 3, Accepted: 2, Filtered: 1},
		Buckets: []models.DailyBucket{
			{EntityID: "Widget", Date: d1, TotalQuantity: 3, TotalAmount: decimal.RequireFromString("30.10")},
			{EntityID: "Widget", Date: d2, TotalQuantity: 5, TotalAmount: decimal.RequireFromString("50.25")},
		},
	}
}

// handoffContract exercises behavior every HandoffStore backend shares.
func handoffContract(t *testing.T, s interface {
	Save(context.Context, *models.HandoffArtifact) error
	Load(context.Context, models.ArtifactID) (*models.HandoffArtifact, error)
	List(context.Context, int) ([]models.ArtifactSummary, error)
}) {
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.Load(ctx, models.LatestArtifact); !errors.Is(err, models.ErrArtifactNotFound) {
		t.Fatalf("empty store latest: expected not found, got %v", err)
	}

	older := sampleArtifact(t, base, "0000000a")
	newer := sampleArtifact(t, base.Add(time.Hour), "0000000b")
	newer.Buckets = newer.Buckets[:1]
	for _, a := range []*models.HandoffArtifact{older, newer} {
		if err := s.Save(ctx, a); err != nil {
			t.Fatalf("save %s: %v", a.ID, err)
		}
	}

	got, err := s.Load(ctx, older.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != older.ID || len(got.Buckets) != 2 || got.TotalQuantity() != 8 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.TotalAmount().Equal(decimal.RequireFromString("80.35")) {
		t.Fatalf("amount lost precision: %s", got.TotalAmount())
	}
	if got.Buckets[0].Date.String() != "2024-01-01" || got.Diagnostics.Filtered != 1 {
		t.Fatalf("unexpected buckets %+v", got.Buckets)
	}

	latest, err := s.Load(ctx, models.LatestArtifact)
	if err != nil || latest.ID != newer.ID {
		t.Fatalf("latest = %v, %v", latest, err)
	}

	if err := s.Save(ctx, older); !errors.Is(err, ErrArtifactExists) {
		t.Fatalf("overwrite: expected ErrArtifactExists, got %v", err)
	}

	if _, err := s.Load(ctx, models.NewArtifactID(base, "deadbeef")); !errors.Is(err, models.ErrArtifactNotFound) {
		t.Fatalf("missing id: expected not found, got %v", err)
	}

	list, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].BucketCount != 2 {
		t.Fatalf("list = %+v", list)
	}
}

func TestFileHandoffStoreContract(t *testing.T) {
	s, err := NewFileHandoffStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	handoffContract(t, s)
}

func TestFileHandoffStoreCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileHandoffStore(dir, nil)
	ctx := context.Background()
	id := models.NewArtifactID(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "0badf00d")

	cases := map[string]string{
		"not json":       `{"schema_version":1,`,
		"wrong version":  `{"schema_version":99,"artifact_id":"` + id.String() + `","buckets":[]}`,
		"id mismatch":    `{"schema_version":1,"artifact_id":"20240101T000000Z-00000000","buckets":[]}`,
		"negative qty":   `{"schema_version":1,"artifact_id":"` + id.String() + `","buckets":[{"entity_id":"A","date":"2024-01-01","total_quantity":-1,"total_amount":"0"}]}`,
		"malformed date": `{"schema_version":1,"artifact_id":"` + id.String() + `","buckets":[{"entity_id":"A","date":"01/02/2024","total_quantity":1,"total_amount":"0"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(dir, id.String()+".json"), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := s.Load(ctx, id)
			if !errors.Is(err, models.ErrArtifactCorrupt) {
				t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
			}
			if errors.Is(err, models.ErrArtifactNotFound) {
				t.Fatal("corrupt artifact reported as missing")
			}
		})
	}
}

func TestFileHandoffStoreIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileHandoffStore(dir, nil)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".20240101T000000Z-00000000-123.tmp"), []byte("x"), 0o644)

	if _, err := s.Load(context.Background(), models.LatestArtifact); !errors.Is(err, models.ErrArtifactNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
