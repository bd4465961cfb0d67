package cli

import (
	"context"
	"errors"
	"fmt"

	"md2lang-oai/internal/cache"
	"md2lang-oai/internal/config"
	"md2lang-oai/internal/graph"
	"md2lang-oai/internal/pipeline"
	"md2lang-oai/internal/rag"
	"md2lang-oai/internal/translation"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// dependencies holds the optional backing services. Either field is nil when
// its service is not configured.
type dependencies struct {
	pgPool      *pgxpool.Pool
	neo4jDriver neo4j.DriverWithContext
}

// initDependencies connects to PostgreSQL when DATABASE_URL is set and to
// Neo4j when NEO4J_URI is set.
func initDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}

	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect PostgreSQL: %w", err)
		}
		if err := pgPool.Ping(ctx); err != nil {
			pgPool.Close()
			return nil, fmt.Errorf("ping PostgreSQL: %w", err)
		}
		deps.pgPool = pgPool
		log.Info().Msg("Connected to PostgreSQL")
	}

	if cfg.Neo4jURI != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
		if err != nil {
			deps.Close(ctx)
			return nil, fmt.Errorf("connect Neo4j: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			driver.Close(ctx)
			deps.Close(ctx)
			return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
		}
		deps.neo4jDriver = driver
		log.Info().Msg("Connected to Neo4j")
	}

	return deps, nil
}

// Close releases every connected service.
func (d *dependencies) Close(ctx context.Context) {
	if d.pgPool != nil {
		d.pgPool.Close()
	}
	if d.neo4jDriver != nil {
		if err := d.neo4jDriver.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Close Neo4j driver")
		}
	}
}

// pipelineSettings are the per-command choices applied on top of the config.
type pipelineSettings struct {
	workers int
	memory  bool
	// preloadLocale, when set, warms the cache with every stored chunk for
	// that locale and the configured model.
	preloadLocale string
}

// buildPipeline wires the translation client, cache and retrieval sources into a
// pipeline.
func (d *dependencies) buildPipeline(ctx context.Context, cfg *config.Config, apiKey string, ps pipelineSettings) (*pipeline.Pipeline, error) {
	client := translation.NewClient(cfg.BaseURL, apiKey,
		translation.WithTimeout(cfg.Timeout),
		translation.WithMaxRetries(cfg.MaxRetries),
		translation.WithTemperature(cfg.Temperature),
	)

	translationCache := cache.NewTranslationCache(d.pgPool)
	if err := translationCache.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if ps.preloadLocale != "" {
		if err := translationCache.Preload(ctx, ps.preloadLocale, cfg.Model); err != nil {
			log.Warn().Err(err).Msg("Failed to preload cache")
		}
	}

	opts := []pipeline.Option{
		pipeline.WithCache(translationCache),
		pipeline.WithChunkSize(cfg.ChunkSize),
		pipeline.WithWorkers(ps.workers),
	}

	var terms rag.TermFinder
	if d.neo4jDriver != nil {
		terms = graph.NewGraphQuerier(d.neo4jDriver)
	}

	var (
		memoryStore rag.MemoryStore
		embedder    rag.Embedder
	)
	if ps.memory {
		if d.pgPool == nil {
			return nil, errors.New("--memory requires DATABASE_URL")
		}
		vectorStore := rag.NewVectorStore(d.pgPool, cfg.EmbeddingDimensions)
		if err := vectorStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		memoryStore = vectorStore
		embedder = rag.NewEmbeddingClient(apiKey, cfg.EmbeddingModel, cfg.BaseURL, cfg.EmbeddingDimensions)
	}

	if terms != nil || memoryStore != nil {
		opts = append(opts, pipeline.WithRetriever(rag.NewRetriever(terms, memoryStore, embedder, cfg.MemoryTopK)))
	}

	return pipeline.New(client, opts...), nil
}
