package store

import (
	"context"
	"errors"

	"conf-compose/pkg/model"
)

// ErrUnavailable is returned when a backend was not compiled in.
var ErrUnavailable = errors.New("backend not available in this build")

// Ledger keeps the history of successful compile runs.
// List calls return the most recent entries, oldest first.
type Ledger interface {
	RecordRun(ctx context.Context, run model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	ListNodeHistory(ctx context.Context, node string, limit int) ([]model.ArtifactRecord, error)
	Close() error
}

// Publisher pushes a rendered output set to a shared store.
type Publisher interface {
	Publish(ctx context.Context, docs []model.Document) error
}

// NewMemory is a helper to construct the in-memory implementation without importing it directly.
func NewMemory() Ledger {
	return NewMemoryLedger()
}

// tail returns the last limit items; limit <= 0 means all.
func tail[T any](items []T, limit int) []T {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	return append([]T(nil), items[len(items)-limit:]...)
}

// stamp copies the run's artifacts with RunID and CreatedAt taken from the run.
func stamp(run model.Run) []model.ArtifactRecord {
	out := make([]model.ArtifactRecord, len(run.Artifacts))
	for i, a := range run.Artifacts {
		a.RunID = run.ID
		a.CreatedAt = run.CreatedAt
		out[i] = a
	}
	return out
}
