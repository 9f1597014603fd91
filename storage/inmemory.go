// In-memory research memory.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/richinex/deepresearch/research"
)

// InMemoryMemory implements ResearchMemory with a map.
// Data is lost when the process terminates.
type InMemoryMemory struct {
	mu       sync.RWMutex
	embedder Embedder
	records  map[string]scored
	now      func() time.Time
}

var _ ResearchMemory = (*InMemoryMemory)(nil)

// NewInMemoryMemory creates an empty in-memory memory. A nil embedder
// selects a HashEmbedder.
func NewInMemoryMemory(embedder Embedder) *InMemoryMemory {
	if embedder == nil {
		embedder = NewHashEmbedder(0)
	}
	return &InMemoryMemory{
		embedder: embedder,
		records:  make(map[string]scored),
		now:      time.Now,
	}
}

// Store implements ResearchMemory.
func (m *InMemoryMemory) Store(ctx context.Context, query string, results []research.ResearchResult, metadata map[string]any) (string, error) {
	content, err := encodeResults(results)
	if err != nil {
		return "", err
	}
	vec, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("failed to embed research results: %w", err)
	}

	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	id := memoryID(query, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = scored{
		record: MemoryRecord{
			ID:        id,
			Query:     query,
			Content:   content,
			Metadata:  meta,
			CreatedAt: m.now(),
		},
		vector: vec,
	}
	return id, nil
}

// RetrieveSimilar implements ResearchMemory.
func (m *InMemoryMemory) RetrieveSimilar(ctx context.Context, query string, n int) ([]MemoryRecord, error) {
	qvec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	candidates := make([]scored, 0, len(m.records))
	for _, rec := range m.records {
		candidates = append(candidates, rec)
	}
	m.mu.RUnlock()

	return rankBySimilarity(qvec, candidates, n), nil
}

// Clear implements ResearchMemory.
func (m *InMemoryMemory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]scored)
	return nil
}

// Close implements ResearchMemory.
func (m *InMemoryMemory) Close() error {
	return nil
}
