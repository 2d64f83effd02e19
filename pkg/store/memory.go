package store

import (
	"context"
	"fmt"
	"sync"

	"conf-compose/pkg/model"
)

// MemoryLedger is an in-memory Ledger for tests and dry runs.
type MemoryLedger struct {
	mu   sync.RWMutex
	runs []model.Run
	ids  map[string]bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{ids: make(map[string]bool)}
}

func (m *MemoryLedger) RecordRun(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if m.ids[run.ID] {
		return fmt.Errorf("run %s already recorded", run.ID)
	}
	run.Artifacts = stamp(run)
	m.runs = append(m.runs, run)
	m.ids[run.ID] = true
	return nil
}

func (m *MemoryLedger) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := tail(m.runs, limit)
	for i := range out {
		out[i].Artifacts = append([]model.ArtifactRecord(nil), out[i].Artifacts...)
	}
	return out, nil
}

func (m *MemoryLedger) ListNodeHistory(_ context.Context, node string, limit int) ([]model.ArtifactRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hist []model.ArtifactRecord
	for _, r := range m.runs {
		for _, a := range r.Artifacts {
			if a.Node == node {
				hist = append(hist, a)
			}
		}
	}
	return tail(hist, limit), nil
}

func (m *MemoryLedger) Close() error { return nil }
