package vectorstore

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryIndex keeps records in process memory. Used for tests and for
// deployments that re-ingest on startup.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]Record
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]Record)}
}

// Add implements Index.
func (m *MemoryIndex) Add(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		r.Metadata = maps.Clone(r.Metadata)
		r.Embedding = slices.Clone(r.Embedding)
		m.records[r.ID] = r
	}
	return nil
}

// Query implements Index.
func (m *MemoryIndex) Query(_ context.Context, embedding []float32, n int) (*QueryResult, error) {
	m.mu.RLock()
	candidates := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		candidates = append(candidates, r)
	}
	m.mu.RUnlock()

	return nearest(candidates, embedding, n), nil
}

// Count implements Index.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close implements Index.
func (m *MemoryIndex) Close() error {
	return nil
}
