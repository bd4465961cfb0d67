package rag

import (
	"context"
	"fmt"

	"md2lang-oai/internal/textutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// VectorStore keeps earlier translations with their source embeddings in
// PostgreSQL (pgvector) for similarity search.
type VectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewVectorStore creates a new vector store.
func NewVectorStore(pool *pgxpool.Pool, dimensions int) *VectorStore {
	return &VectorStore{pool: pool, dimensions: dimensions}
}

// MemoryRecord is one translated chunk with its source embedding.
type MemoryRecord struct {
	Locale     string
	Source     string
	Translated string
	Vector     []float32
}

// SearchResult represents a similarity search match.
type SearchResult struct {
	Source     string
	Translated string
	Score      float64
}

// EnsureSchema creates the extension, table and index used by the store.
func (vs *VectorStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS translation_memory (
			hash       TEXT PRIMARY KEY,
			locale     TEXT NOT NULL,
			source     TEXT NOT NULL,
			translated TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, vs.dimensions),
		`CREATE INDEX IF NOT EXISTS translation_memory_locale_idx ON translation_memory (locale)`,
	}
	for _, stmt := range stmts {
		if _, err := vs.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure translation_memory schema: %w", err)
		}
	}
	return nil
}

// Store upserts records in one batch.
func (vs *VectorStore) Store(ctx context.Context, records []MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO translation_memory (hash, locale, source, translated, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (hash) DO UPDATE SET translated = EXCLUDED.translated, embedding = EXCLUDED.embedding`,
			textutil.Hash(r.Locale, r.Source), r.Locale, r.Source, r.Translated, pgvector.NewVector(r.Vector))
	}

	br := vs.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert translation memory %d: %w", i, err)
		}
	}

	log.Debug().Int("count", len(records)).Msg("Stored translation memory")
	return nil
}

// Search finds the topK entries for locale closest to queryVector by cosine
// distance.
func (vs *VectorStore) Search(ctx context.Context, locale string, queryVector []float32, topK int) ([]SearchResult, error) {
	rows, err := vs.pool.Query(ctx, `
		SELECT source, translated, 1 - (embedding <=> $1) AS similarity
		FROM translation_memory
		WHERE locale = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(queryVector), locale, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Source, &r.Translated, &r.Score); err != nil {
			return nil, fmt.Errorf("scan vector search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search rows: %w", err)
	}
	return results, nil
}
