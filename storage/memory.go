// Package storage provides the similarity memory for past research results.
//
// Information Hiding:
// - How results are serialized into a memory document
// - Document id derivation
// - Embedding and similarity ranking
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/deepresearch/research"
)

// DefaultSimilarResults is how many records RetrieveSimilar returns by default.
const DefaultSimilarResults = 3

// ErrNoEmbedder is returned when a memory is built without an embedder.
var ErrNoEmbedder = errors.New("embedder is required")

// MemoryRecord is one stored research result set.
type MemoryRecord struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Score     float64        `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}

// ResearchMemory stores past results and finds those similar to a query.
// It is independent of the research workflow.
type ResearchMemory interface {
	// Store saves results and returns the record id. Storing the same query
	// and results twice yields the same id and a single record.
	Store(ctx context.Context, query string, results []research.ResearchResult, metadata map[string]any) (string, error)

	// RetrieveSimilar returns up to n records ranked by similarity to query.
	RetrieveSimilar(ctx context.Context, query string, n int) ([]MemoryRecord, error)

	// Clear removes every record.
	Clear(ctx context.Context) error

	Close() error
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// encodeResults renders results as the stored document.
func encodeResults(results []research.ResearchResult) (string, error) {
	if results == nil {
		results = []research.ResearchResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode research results: %w", err)
	}
	return string(data), nil
}

// memoryID derives a stable id from the query and document.
func memoryID(query, content string) string {
	return "research_" + strconv.FormatUint(xxhash.Sum64String(query+content), 16)
}

type scored struct {
	record MemoryRecord
	vector []float32
}

// rankBySimilarity scores candidates against the query vector and returns
// the n best, newest first on ties.
func rankBySimilarity(query []float32, candidates []scored, n int) []MemoryRecord {
	for i := range candidates {
		candidates[i].record.Score = cosine(query, candidates[i].vector)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].record, candidates[j].record
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if n <= 0 {
		n = DefaultSimilarResults
	}
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]MemoryRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.record
	}
	return out
}
