package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"md2lang-oai/internal/textutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TranslationCache provides in-memory + PostgreSQL-backed caching for
// translated chunks. Entries are keyed by locale, model and source text.
type TranslationCache struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	memory map[string]string // hash → translated text
}

// NewTranslationCache creates a new cache. A nil pool keeps the cache in
// memory only.
func NewTranslationCache(pool *pgxpool.Pool) *TranslationCache {
	return &TranslationCache{
		pool:   pool,
		memory: make(map[string]string),
	}
}

// Key returns the cache key for a chunk.
func Key(locale, model, sourceText string) string {
	return textutil.Hash(locale, model, sourceText)
}

// EnsureSchema creates the cache table. It is a no-op in memory-only mode.
func (c *TranslationCache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS translation_cache (
			hash       TEXT PRIMARY KEY,
			locale     TEXT NOT NULL,
			model      TEXT NOT NULL,
			source     TEXT NOT NULL,
			translated TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure translation_cache schema: %w", err)
	}
	return nil
}

// Get retrieves a cached translation. Returns empty string and false if not
// found.
func (c *TranslationCache) Get(ctx context.Context, locale, model, sourceText string) (string, bool) {
	hash := Key(locale, model, sourceText)

	c.mu.RLock()
	if v, ok := c.memory[hash]; ok {
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	if c.pool == nil {
		return "", false
	}

	var translated string
	err := c.pool.QueryRow(ctx, `SELECT translated FROM translation_cache WHERE hash = $1`, hash).Scan(&translated)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Msg("Cache lookup failed")
		}
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	return translated, true
}

// Set stores a translation in memory and, when configured, in PostgreSQL.
func (c *TranslationCache) Set(ctx context.Context, locale, model, sourceText, translated string) error {
	hash := Key(locale, model, sourceText)

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	if c.pool == nil {
		return nil
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO translation_cache (hash, locale, model, source, translated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO UPDATE SET translated = EXCLUDED.translated, updated_at = now()`,
		hash, locale, model, sourceText, translated)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *TranslationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// Preload loads every cached translation for locale and model into memory.
func (c *TranslationCache) Preload(ctx context.Context, locale, model string) error {
	if c.pool == nil {
		return nil
	}

	rows, err := c.pool.Query(ctx, `SELECT hash, translated FROM translation_cache WHERE locale = $1 AND model = $2`, locale, model)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for rows.Next() {
		var hash, translated string
		if err := rows.Scan(&hash, &translated); err != nil {
			return fmt.Errorf("preload cache: %w", err)
		}
		c.memory[hash] = translated
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	log.Info().Int("count", count).Str("locale", locale).Msg("Preloaded translation cache")
	return nil
}
