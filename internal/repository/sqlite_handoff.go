package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	applogger "StockSense/pkg/logger"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteHandoffStore keeps artifacts as rows of a single SQLite table.
type SQLiteHandoffStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.HandoffStore = (*SQLiteHandoffStore)(nil)

// NewSQLiteHandoffStore opens path (":memory:" is allowed) and migrates the table.
func NewSQLiteHandoffStore(path, table string, l *applogger.Logger) (*SQLiteHandoffStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite handoff: path is required")
	}
	if table == "" {
		table = "handoff_artifacts"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("sqlite handoff: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite handoff: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteHandoffStore{db: db, table: table, l: l}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHandoffStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id TEXT NOT NULL PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			bucket_count INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return fmt.Errorf("sqlite handoff: migrate: %w", err)
		}
	}
	return nil
}

// Save inserts the artifact in one transaction. An existing id is left untouched.
func (s *SQLiteHandoffStore) Save(ctx context.Context, a *models.HandoffArtifact) (err error) {
	b, err := encodeArtifact(a)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite handoff: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+s.table+` (id, schema_version, created_at, bucket_count, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		a.ID.String(), a.SchemaVersion, a.CreatedAt.UTC().Format(time.RFC3339Nano), len(a.Buckets), b,
	)
	if err != nil {
		return fmt.Errorf("sqlite handoff: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite handoff: insert: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", ErrArtifactExists, a.ID)
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite handoff: commit: %w", err)
	}

	if s.l != nil {
		s.l.Info("handoff artifact saved",
			applogger.String("backend", "sqlite"),
			applogger.String("artifact_id", a.ID.String()),
			applogger.Int("buckets", len(a.Buckets)),
		)
	}
	return nil
}

func (s *SQLiteHandoffStore) Load(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error) {
	var (
		row *sql.Row
		key string
		b   []byte
	)
	if id.IsLatest() {
		row = s.db.QueryRowContext(ctx, `SELECT id, payload FROM `+s.table+` ORDER BY id DESC LIMIT 1`)
	} else {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
		}
		row = s.db.QueryRowContext(ctx, `SELECT id, payload FROM `+s.table+` WHERE id = ?`, id.String())
	}
	if err := row.Scan(&key, &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, id)
		}
		return nil, fmt.Errorf("sqlite handoff: load %s: %w", id, err)
	}
	return decodeArtifact(b, models.ArtifactID(key))
}

// List reads the indexed columns only, so a corrupt payload does not hide its row.
func (s *SQLiteHandoffStore) List(ctx context.Context, limit int) ([]models.ArtifactSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, bucket_count FROM `+s.table+` ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("sqlite handoff: list: %w", err)
	}
	defer rows.Close()

	var out []models.ArtifactSummary
	for rows.Next() {
		var (
			id, created string
			count       int
		)
		if err := rows.Scan(&id, &created, &count); err != nil {
			return nil, fmt.Errorf("sqlite handoff: scan: %w", err)
		}
		at, _ := time.Parse(time.RFC3339Nano, created)
		out = append(out, models.ArtifactSummary{ID: models.ArtifactID(id), CreatedAt: at, BucketCount: count})
	}
	return out, rows.Err()
}

func (s *SQLiteHandoffStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
