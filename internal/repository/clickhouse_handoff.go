package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/pkg/clickhouse"
	applogger "StockSense/pkg/logger"
)

// ClickHouseHandoffStore keeps artifacts in a MergeTree table. ClickHouse has
// no transactions; an insert is a single row, so readers see it whole or not at all.
type ClickHouseHandoffStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.HandoffStore = (*ClickHouseHandoffStore)(nil)

// NewClickHouseHandoffStore creates the table if it does not exist.
func NewClickHouseHandoffStore(ctx context.Context, c *clickhouse.Client, table string, l *applogger.Logger) (*ClickHouseHandoffStore, error) {
	if table == "" {
		table = "handoff_artifacts"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("clickhouse handoff: invalid table name %q", table)
	}
	err := c.InitSchema(ctx, []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id String,
			schema_version UInt16,
			created_at DateTime64(3, 'UTC'),
			bucket_count UInt32,
			payload String
		) ENGINE = MergeTree ORDER BY id`, table),
	})
	if err != nil {
		return nil, err
	}
	return &ClickHouseHandoffStore{db: c.DB(), table: table, l: l}, nil
}

func (s *ClickHouseHandoffStore) Save(ctx context.Context, a *models.HandoffArtifact) error {
	b, err := encodeArtifact(a)
	if err != nil {
		return err
	}

	var n uint64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count() FROM %s WHERE id = ?", s.table), a.ID.String()).Scan(&n); err != nil {
		return fmt.Errorf("clickhouse handoff: exists: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrArtifactExists, a.ID)
	}

	q := fmt.Sprintf("INSERT INTO %s (id, schema_version, created_at, bucket_count, payload) VALUES (?, ?, ?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q,
		a.ID.String(), uint16(a.SchemaVersion), a.CreatedAt.UTC(), uint32(len(a.Buckets)), string(b),
	); err != nil {
		return fmt.Errorf("clickhouse handoff: insert: %w", err)
	}

	if s.l != nil {
		s.l.Info("handoff artifact saved",
			applogger.String("backend", "clickhouse"),
			applogger.String("artifact_id", a.ID.String()),
			applogger.Int("buckets", len(a.Buckets)),
		)
	}
	return nil
}

func (s *ClickHouseHandoffStore) Load(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error) {
	var row *sql.Row
	if id.IsLatest() {
		row = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT id, payload FROM %s ORDER BY id DESC LIMIT 1", s.table))
	} else {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
		}
		row = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT id, payload FROM %s WHERE id = ? LIMIT 1", s.table), id.String())
	}

	var key, payload string
	if err := row.Scan(&key, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
		}
		return nil, fmt.Errorf("clickhouse handoff: load %s: %w", id, err)
	}
	return decodeArtifact([]byte(payload), models.ArtifactID(key))
}

func (s *ClickHouseHandoffStore) List(ctx context.Context, limit int) ([]models.ArtifactSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, created_at, bucket_count FROM %s ORDER BY id DESC LIMIT %d", s.table, clampLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("clickhouse handoff: list: %w", err)
	}
	defer rows.Close()

	var out []models.ArtifactSummary
	for rows.Next() {
		var (
			sum   models.ArtifactSummary
			id    string
			count uint32
		)
		if err := rows.Scan(&id, &sum.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("clickhouse handoff: scan: %w", err)
		}
		sum.ID = models.ArtifactID(id)
		sum.BucketCount = int(count)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close is a no-op; the pool belongs to the clickhouse client.
func (s *ClickHouseHandoffStore) Close() error { return nil }
