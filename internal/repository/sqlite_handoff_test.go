package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"StockSense/internal/domain/models"
)

func newSQLiteStore(t *testing.T) *SQLiteHandoffStore {
	t.Helper()
	s, err := NewSQLiteHandoffStore(filepath.Join(t.TempDir(), "handoff.db"), "", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteHandoffStoreContract(t *testing.T) {
	handoffContract(t, newSQLiteStore(t))
}

func TestSQLiteHandoffStoreCorruptPayload(t *testing.T) {
	s := newSQLiteStore(t)
	id := models.NewArtifactID(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "c0ffee00")
	_, err := s.db.Exec(`INSERT INTO handoff_artifacts (id, schema_version, created_at, bucket_count, payload) VALUES (?, 1, ?, 0, ?)`,
		id.String(), time.Now().UTC().Format(time.RFC3339Nano), []byte("{not json"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(context.Background(), id); !errors.Is(err, models.ErrArtifactCorrupt) {
		t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
	}
	list, err := s.List(context.Background(), 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("corrupt row should still be listed: %v %v", list, err)
	}
}

func TestSQLiteHandoffStoreRejectsBadTable(t *testing.T) {
	if _, err := NewSQLiteHandoffStore(":memory:", "x; DROP TABLE y", nil); err == nil {
		t.Fatal("expected error for invalid table name")
	}
}
