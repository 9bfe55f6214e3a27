package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ArtifactSchemaVersion is bumped whenever the hand-off layout changes.
const ArtifactSchemaVersion = 1

// LatestArtifact asks a store to resolve the newest artifact.
const LatestArtifact ArtifactID = "latest"

// ArtifactIDLayout prefixes ids so that lexical order is creation order.
const ArtifactIDLayout = "20060102T150405Z"

var artifactIDPattern = regexp.MustCompile(`^\d{8}T\d{6}Z-[0-9a-f]{8}$`)

// ArtifactID identifies one immutable hand-off artifact.
type ArtifactID string

// NewArtifactID builds an id from the creation time and a random hex suffix.
func NewArtifactID(createdAt time.Time, suffix string) ArtifactID {
	return ArtifactID(createdAt.UTC().Format(ArtifactIDLayout) + "-" + suffix)
}

// Valid reports whether id is a well-formed concrete artifact id.
func (id ArtifactID) Valid() bool { return artifactIDPattern.MatchString(string(id)) }

// IsLatest reports whether id is the "latest" alias (or empty).
func (id ArtifactID) IsLatest() bool { return id == "" || id == LatestArtifact }

func (id ArtifactID) String() string { return string(id) }

// HandoffArtifact is the durable output of the daily aggregation stage.
type HandoffArtifact struct {
	SchemaVersion int            `json:"schema_version"`
	ID            ArtifactID     `json:"artifact_id"`
	CreatedAt     time.Time      `json:"created_at"`
	Diagnostics   NormalizeStats `json:"diagnostics"`
	Buckets       []DailyBucket  `json:"buckets"`
}

// TotalQuantity sums quantity over all buckets.
func (a *HandoffArtifact) TotalQuantity() int64 {
	var n int64
	for _, b := range a.Buckets {
		n += b.TotalQuantity
	}
	return n
}

// TotalAmount sums amount over all buckets.
func (a *HandoffArtifact) TotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, b := range a.Buckets {
		sum = sum.Add(b.TotalAmount)
	}
	return sum
}

// ArtifactSummary is the listing view of an artifact.
type ArtifactSummary struct {
	ID          ArtifactID `json:"artifact_id"`
	CreatedAt   time.Time  `json:"created_at"`
	BucketCount int        `json:"bucket_count"`
}
