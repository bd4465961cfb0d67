package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// TermResult represents a glossary match from the graph.
type TermResult struct {
	Source   string
	Target   string
	Category string
}

// RelationshipResult represents a graph relationship.
type RelationshipResult struct {
	From string
	Type string
	To   string
}

// QueryResult holds the combined results from a graph query.
type QueryResult struct {
	Terms         []TermResult
	Relationships []RelationshipResult
}

// GraphQuerier queries the Neo4j glossary graph for translation context.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
	limit  int
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver, limit: 50}
}

// localeKeys returns the term locales that apply to locale: the locale itself
// and, for xx-YY, the bare language.
func localeKeys(locale string) []string {
	keys := []string{locale}
	if len(locale) > 2 && locale[2] == '-' {
		keys = append(keys, locale[:2])
	}
	return keys
}

// FindTerms finds the glossary terms whose source occurs in text (ignoring
// case) for locale, longest first, and the relationships between them.
func (gq *GraphQuerier) FindTerms(ctx context.Context, text, locale string) (*QueryResult, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	params := map[string]any{
		"text":    text,
		"locales": localeKeys(locale),
		"limit":   gq.limit,
	}
	result := &QueryResult{}

	termsResult, err := session.Run(ctx, `
		MATCH (t:Term)
		WHERE t.locale IN $locales AND toLower($text) CONTAINS toLower(t.source)
		RETURN t.source AS source, t.target AS target, t.category AS category
		ORDER BY size(t.source) DESC
		LIMIT $limit
	`, params)
	if err != nil {
		return nil, fmt.Errorf("query terms: %w", err)
	}

	for termsResult.Next(ctx) {
		record := termsResult.Record()
		source, _ := record.Get("source")
		target, _ := record.Get("target")
		category, _ := record.Get("category")

		result.Terms = append(result.Terms, TermResult{
			Source:   asString(source),
			Target:   asString(target),
			Category: asString(category),
		})
	}
	if err := termsResult.Err(); err != nil {
		return nil, fmt.Errorf("read terms: %w", err)
	}

	if len(result.Terms) == 0 {
		return result, nil
	}

	relsResult, err := session.Run(ctx, `
		MATCH (t:Term)-[r]->(neighbor:Term)
		WHERE t.locale IN $locales AND toLower($text) CONTAINS toLower(t.source)
		RETURN t.source AS from_node, type(r) AS rel_type, neighbor.source AS to_node
		LIMIT $limit
	`, params)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to query relationships")
		return result, nil
	}

	for relsResult.Next(ctx) {
		record := relsResult.Record()
		from, _ := record.Get("from_node")
		relType, _ := record.Get("rel_type")
		to, _ := record.Get("to_node")

		result.Relationships = append(result.Relationships, RelationshipResult{
			From: asString(from),
			Type: asString(relType),
			To:   asString(to),
		})
	}

	log.Debug().
		Int("terms", len(result.Terms)).
		Int("relationships", len(result.Relationships)).
		Msg("Graph query complete")

	return result, nil
}

// CountTerms returns the number of glossary terms stored for locale.
func (gq *GraphQuerier) CountTerms(ctx context.Context, locale string) (int64, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (t:Term)
		WHERE t.locale IN $locales
		RETURN count(t) AS n
	`, map[string]any{"locales": localeKeys(locale)})
	if err != nil {
		return 0, fmt.Errorf("count terms: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("count terms: %w", err)
	}
	n, _ := record.Get("n")
	count, _ := n.(int64)
	return count, nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
