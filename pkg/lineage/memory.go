package lineage

import (
	"context"
	"sync"

	"github.com/aerolex/aerolex/pkg/types"
)

// MemoryRecorder keeps lineage records in memory, grouped by regulation.
// Suitable for tests and single-process deployments without audit
// durability requirements.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records map[string][]types.LineageRecord
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[string][]types.LineageRecord)}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, rec types.LineageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.RegulationID] = append(m.records[rec.RegulationID], rec)
	return nil
}

// History implements Recorder. Records come back in insertion order, which
// matches recording order because Record appends under the lock.
func (m *MemoryRecorder) History(_ context.Context, regulationID string) ([]types.LineageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.LineageRecord, len(m.records[regulationID]))
	copy(out, m.records[regulationID])
	return out, nil
}

// Close implements Recorder.
func (m *MemoryRecorder) Close(context.Context) error {
	return nil
}
