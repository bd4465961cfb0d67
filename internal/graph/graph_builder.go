package graph

import (
	"context"
	"fmt"

	"md2lang-oai/internal/worker"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Term is a glossary entry: how source text should read in locale.
type Term struct {
	Source   string   `yaml:"source"`
	Target   string   `yaml:"target"`
	Locale   string   `yaml:"locale,omitempty"`
	Category string   `yaml:"category,omitempty"`
	Related  []string `yaml:"related,omitempty"`
}

// GraphBuilder writes glossary terms to the Neo4j graph.
type GraphBuilder struct {
	driver    neo4j.DriverWithContext
	batchSize int
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver, batchSize: 200}
}

// EnsureSchema creates constraints and indexes on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT term_source_locale IF NOT EXISTS FOR (t:Term) REQUIRE (t.source, t.locale) IS UNIQUE",
		"CREATE INDEX term_locale IF NOT EXISTS FOR (t:Term) ON (t.locale)",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Debug().Msg("Graph schema ensured")
	return nil
}

// UpsertTerms merges terms into the graph in batches, then links every term
// to the terms it names as related in the same locale.
func (gb *GraphBuilder) UpsertTerms(ctx context.Context, terms []Term) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	var links []map[string]any
	for i, batch := range worker.Batch(terms, gb.batchSize) {
		rows := make([]map[string]any, 0, len(batch))
		for _, t := range batch {
			rows = append(rows, map[string]any{
				"source":   t.Source,
				"target":   t.Target,
				"locale":   t.Locale,
				"category": t.Category,
			})
			for _, r := range t.Related {
				links = append(links, map[string]any{"from": t.Source, "to": r, "locale": t.Locale})
			}
		}

		_, err := session.Run(ctx, `
			UNWIND $rows AS row
			MERGE (t:Term {source: row.source, locale: row.locale})
			SET t.target = row.target,
			    t.category = row.category
		`, map[string]any{"rows": rows})
		if err != nil {
			return fmt.Errorf("upsert term batch %d: %w", i+1, err)
		}
	}

	log.Info().Int("terms", len(terms)).Msg("Upserted glossary terms")

	if len(links) == 0 {
		return nil
	}
	for i, batch := range worker.Batch(links, gb.batchSize) {
		_, err := session.Run(ctx, `
			UNWIND $links AS link
			MATCH (a:Term {source: link.from, locale: link.locale})
			MATCH (b:Term {source: link.to, locale: link.locale})
			MERGE (a)-[:RELATED_TO]->(b)
		`, map[string]any{"links": batch})
		if err != nil {
			log.Warn().Err(err).Int("batch", i+1).Msg("Failed to link related terms")
		}
	}

	log.Info().Int("relationships", len(links)).Msg("Linked related glossary terms")
	return nil
}
