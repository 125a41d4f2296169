package repository

import (
	"context"

	"NTIWatch/internal/domain/models"
)

// PriceSource supplies ordered price history per instrument.
// Implementations report per-symbol failures instead of dropping symbols.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]models.PriceFetch, error)
}

// DocumentSource supplies tokenized narrative documents per instrument.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, symbols []string) (map[string]models.DocumentFetch, error)
}

// StateStore persists the persistence counter keyed by a fixed name.
// Read returns the zero state when the key has never been written.
// CompareAndSwap writes next only if the stored version equals expected,
// otherwise it returns ErrStateConflict.
type StateStore interface {
	Read(ctx context.Context, key string) (models.PersistenceState, error)
	Write(ctx context.Context, key string, st models.PersistenceState) error
	CompareAndSwap(ctx context.Context, key string, expected int64, next models.PersistenceState) error
}

// RunIDStore remembers the run id of the last fired evaluation.
type RunIDStore interface {
	SaveLastRunID(ctx context.Context, key, runID string) error
	LastRunID(ctx context.Context, key string) (string, error)
}

// ArtifactSink receives a finished trigger artifact.
type ArtifactSink interface {
	Name() string
	Write(ctx context.Context, a *models.TriggerArtifact) error
}

// EvaluationLog keeps an append-only history of evaluations.
type EvaluationLog interface {
	Append(ctx context.Context, a *models.TriggerArtifact) error
}

type Metrics interface {
	RecordEvaluation(result string)
	RecordIndex(index float64, qualifies bool)
	RecordCounter(counter int)
	RecordTrigger()
	RecordExcluded(kind, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
