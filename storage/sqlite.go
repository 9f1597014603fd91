// SQLite-backed research memory.
//
// Information Hiding:
// - Schema and embedding blob encoding
// - Thread-safe via sql.DB's built-in connection pooling
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/deepresearch/research"
)

// SqliteMemory implements ResearchMemory in a SQLite database file.
// Similarity is computed in process over every stored embedding.
type SqliteMemory struct {
	db       *sql.DB
	embedder Embedder
	now      func() time.Time
}

var _ ResearchMemory = (*SqliteMemory)(nil)

// OpenSqlite opens or creates a memory database at path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string, embedder Embedder) (*SqliteMemory, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteMemory(db, embedder)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(embedder Embedder) (*SqliteMemory, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteMemory(db, embedder)
}

func newSqliteMemory(db *sql.DB, embedder Embedder) (*SqliteMemory, error) {
	m := &SqliteMemory{db: db, embedder: embedder, now: time.Now}
	if err := m.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return m, nil
}

// Close closes the database connection.
func (m *SqliteMemory) Close() error {
	return m.db.Close()
}

func (m *SqliteMemory) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS research_memory (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_research_memory_created
		ON research_memory(created_at DESC);
	`
	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Store implements ResearchMemory. The document is embedded, not the query.
func (m *SqliteMemory) Store(ctx context.Context, query string, results []research.ResearchResult, metadata map[string]any) (string, error) {
	content, err := encodeResults(results)
	if err != nil {
		return "", err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	vec, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("failed to embed research results: %w", err)
	}

	id := memoryID(query, content)
	_, err = m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO research_memory (id, query, content, metadata, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, query, content, string(meta), encodeVector(vec), m.now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store research memory: %w", err)
	}
	return id, nil
}

// RetrieveSimilar implements ResearchMemory.
func (m *SqliteMemory) RetrieveSimilar(ctx context.Context, query string, n int) ([]MemoryRecord, error) {
	qvec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx,
		"SELECT id, query, content, metadata, embedding, created_at FROM research_memory")
	if err != nil {
		return nil, fmt.Errorf("failed to query research memory: %w", err)
	}
	defer rows.Close()

	var candidates []scored
	for rows.Next() {
		var (
			rec       MemoryRecord
			meta      string
			blob      []byte
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Content, &meta, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan research memory: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", rec.ID, err)
		}
		rec.CreatedAt = time.Unix(0, createdAt)
		candidates = append(candidates, scored{record: rec, vector: decodeVector(blob)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate research memory: %w", err)
	}

	return rankBySimilarity(qvec, candidates, n), nil
}

// Clear implements ResearchMemory.
func (m *SqliteMemory) Clear(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM research_memory"); err != nil {
		return fmt.Errorf("failed to clear research memory: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (m *SqliteMemory) Count(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM research_memory").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count research memory: %w", err)
	}
	return n, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
