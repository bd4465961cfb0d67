package rag

import (
	"context"
	"fmt"
	"strings"

	"md2lang-oai/internal/graph"
	"md2lang-oai/internal/textutil"

	"github.com/rs/zerolog/log"
)

// TermFinder looks up glossary terms that occur in a text.
type TermFinder interface {
	FindTerms(ctx context.Context, text, locale string) (*graph.QueryResult, error)
}

// MemoryStore persists and searches earlier translations by embedding.
type MemoryStore interface {
	Store(ctx context.Context, records []MemoryRecord) error
	Search(ctx context.Context, locale string, queryVector []float32, topK int) ([]SearchResult, error)
}

// RetrievalResult combines glossary and translation memory context for one
// chunk.
type RetrievalResult struct {
	// GraphContext holds glossary terms found in the chunk.
	GraphContext *graph.QueryResult
	// SimilarTexts are earlier translations of similar chunks.
	SimilarTexts []SearchResult
}

// Empty reports whether r carries no context at all.
func (r *RetrievalResult) Empty() bool {
	return r == nil || (len(r.SimilarTexts) == 0 && (r.GraphContext == nil || len(r.GraphContext.Terms) == 0))
}

// Pair is a source chunk and its accepted translation.
type Pair struct {
	Source     string
	Translated string
}

// Retriever combines the glossary graph and the translation memory. Either
// source may be absent.
type Retriever struct {
	terms    TermFinder
	memory   MemoryStore
	embedder Embedder
	topK     int
}

// NewRetriever creates a new combined retriever. Pass nil for terms to skip
// the glossary, and nil for memory or embedder to skip the translation
// memory.
func NewRetriever(terms TermFinder, memory MemoryStore, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		terms:    terms,
		memory:   memory,
		embedder: embedder,
		topK:     topK,
	}
}

func (r *Retriever) memoryEnabled() bool {
	return r.memory != nil && r.embedder != nil
}

// Retrieve fetches context for sourceText. Lookup failures are logged and
// skipped; translation goes ahead without that context.
func (r *Retriever) Retrieve(ctx context.Context, sourceText, locale string) *RetrievalResult {
	result := &RetrievalResult{}

	if r.terms != nil {
		graphCtx, err := r.terms.FindTerms(ctx, sourceText, locale)
		if err != nil {
			log.Warn().Err(err).Msg("Glossary query failed")
		} else {
			result.GraphContext = graphCtx
		}
	}

	if r.memoryEnabled() {
		queryVec, err := EmbedQuery(ctx, r.embedder, sourceText)
		if err != nil {
			log.Warn().Err(err).Str("text", textutil.Truncate(sourceText, 50)).Msg("Failed to embed query, skipping translation memory")
		} else {
			similar, err := r.memory.Search(ctx, locale, queryVec, r.topK)
			if err != nil {
				log.Warn().Err(err).Msg("Translation memory search failed")
			} else {
				result.SimilarTexts = similar
			}
		}
	}

	return result
}

// Remember stores accepted translations in the translation memory. It is a
// no-op when the memory is not configured.
func (r *Retriever) Remember(ctx context.Context, locale string, pairs []Pair) error {
	if !r.memoryEnabled() || len(pairs) == 0 {
		return nil
	}

	sources := make([]string, len(pairs))
	for i, p := range pairs {
		sources[i] = p.Source
	}
	vectors, err := r.embedder.Embed(ctx, sources)
	if err != nil {
		return fmt.Errorf("embed translation memory: %w", err)
	}

	records := make([]MemoryRecord, 0, len(pairs))
	for i, p := range pairs {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		records = append(records, MemoryRecord{
			Locale:     locale,
			Source:     p.Source,
			Translated: p.Translated,
			Vector:     vectors[i],
		})
	}
	return r.memory.Store(ctx, records)
}

// BuildContextString formats retrieval results into reference text for the
// prompt. It returns "" when there is nothing to add.
func BuildContextString(result *RetrievalResult) string {
	if result.Empty() {
		return ""
	}
	var sb strings.Builder

	if result.GraphContext != nil && len(result.GraphContext.Terms) > 0 {
		sb.WriteString("=== Glossary (use these translations) ===\n")
		for _, term := range result.GraphContext.Terms {
			sb.WriteString(fmt.Sprintf("• %s → %s", term.Source, term.Target))
			if term.Category != "" {
				sb.WriteString(fmt.Sprintf(" [%s]", term.Category))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")

		if len(result.GraphContext.Relationships) > 0 {
			sb.WriteString("=== Related Terms ===\n")
			for _, rel := range result.GraphContext.Relationships {
				sb.WriteString(fmt.Sprintf("• %s -[%s]-> %s\n", rel.From, rel.Type, rel.To))
			}
			sb.WriteString("\n")
		}
	}

	if len(result.SimilarTexts) > 0 {
		sb.WriteString("=== Earlier Translations ===\n")
		for i, st := range result.SimilarTexts {
			sb.WriteString(fmt.Sprintf("%d. [Score: %.3f]\n%s\n→\n%s\n", i+1, st.Score, st.Source, st.Translated))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
