package repository

import (
	"context"
	"encoding/json"

	"StockSense/internal/domain/models"
)

// Credential authenticates calls to the transaction source. Implementations
// must not expose secret material through String or logging.
type Credential interface {
	// Kind names the credential type for diagnostics, e.g. "bearer".
	Kind() string
}

// TransactionSource supplies raw transaction records from the upstream service.
// The payload is returned undecoded; the normalizer owns its interpretation.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, cred Credential) (json.RawMessage, error)
}

// HandoffStore persists daily-aggregation artifacts between stages.
// Saved artifacts are immutable; Save on an existing id is an error.
type HandoffStore interface {
	Save(ctx context.Context, a *models.HandoffArtifact) error
	// Load resolves models.LatestArtifact to the newest artifact.
	Load(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error)
	List(ctx context.Context, limit int) ([]models.ArtifactSummary, error)
	Close() error
}

// ForecastPublisher fans out assembled results to downstream consumers.
type ForecastPublisher interface {
	PublishForecast(ctx context.Context, res *models.ForecastResult) error
	Close() error
}

// RunObserver is notified as runs progress.
type RunObserver interface {
	OnRunEvent(ev models.RunEvent)
}

// Metrics records pipeline counters and latencies.
type Metrics interface {
	RecordRecords(outcome string, n int)
	RecordForecast(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
