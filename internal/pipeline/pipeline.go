// Package pipeline runs one document through protection, chunked
// translation and restoration.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"md2lang-oai/internal/locale"
	"md2lang-oai/internal/placeholder"
	"md2lang-oai/internal/rag"
	"md2lang-oai/internal/textutil"
	"md2lang-oai/internal/translation"
	"md2lang-oai/internal/worker"

	"github.com/rs/zerolog/log"
)

const DefaultChunkSize = 6000

// Cache stores translated chunks.
type Cache interface {
	Get(ctx context.Context, locale, model, sourceText string) (string, bool)
	Set(ctx context.Context, locale, model, sourceText, translated string) error
}

// Retriever supplies reference context for a chunk and learns from accepted
// translations.
type Retriever interface {
	Retrieve(ctx context.Context, sourceText, locale string) *rag.RetrievalResult
	Remember(ctx context.Context, locale string, pairs []rag.Pair) error
}

// Pipeline translates Markdown documents without letting the model touch
// code, links or markup.
type Pipeline struct {
	translator translation.Translator
	cache      Cache
	retriever  Retriever
	workers    int
	chunkSize  int
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

func WithRetriever(r Retriever) Option {
	return func(p *Pipeline) { p.retriever = r }
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithChunkSize bounds the bytes sent to the model per request.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) { p.chunkSize = n }
}

// New creates a pipeline around translator.
func New(translator translation.Translator, opts ...Option) *Pipeline {
	p := &Pipeline{
		translator: translator,
		workers:    1,
		chunkSize:  DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.chunkSize <= 0 {
		p.chunkSize = DefaultChunkSize
	}
	return p
}

// Result is the outcome of translating one document.
type Result struct {
	Output string
	Report placeholder.Report
	// Chunks counts every chunk; Translated those sent to the model and
	// Cached those answered from the cache.
	Chunks     int
	Translated int
	Cached     int
}

type chunkResult struct {
	text   string
	cached bool
}

// Document translates src into loc with model.
func (p *Pipeline) Document(ctx context.Context, src string, loc locale.Locale, model string) (*Result, error) {
	protected, m := placeholder.Protect(src)
	log.Debug().Int("spans", m.Len()).Str("tag", m.Tag()).Msg("Protected document")

	pieces := splitChunks(protected, p.chunkSize)
	chunks := make([]chunk, len(pieces))
	var pending []int
	for i, piece := range pieces {
		chunks[i] = newChunk(piece)
		if textutil.HasLetters(placeholder.Strip(chunks[i].Body, m)) {
			pending = append(pending, i)
		}
	}

	res := &Result{Chunks: len(chunks)}
	lang := loc.String()

	pool := worker.NewPool[int, chunkResult](p.workers, func(ctx context.Context, i int) (chunkResult, error) {
		body := chunks[i].Body
		if p.cache != nil {
			if out, ok := p.cache.Get(ctx, lang, model, body); ok {
				return chunkResult{text: out, cached: true}, nil
			}
		}

		req := translation.Request{
			Text:   body,
			Locale: loc,
			Model:  model,
			Tag:    m.Tag(),
		}
		if p.retriever != nil {
			req.Reference = rag.BuildContextString(p.retriever.Retrieve(ctx, placeholder.Expand(body, m), lang))
		}

		out, err := p.translator.Translate(ctx, req)
		if err != nil {
			return chunkResult{}, err
		}
		out = strings.TrimSpace(out)
		if sent, got := len(placeholder.Residual(body, m)), len(placeholder.Residual(out, m)); sent != got {
			log.Debug().Int("chunk", i+1).Int("sent", sent).Int("returned", got).Msg("Placeholder count changed in chunk")
		}
		return chunkResult{text: out}, nil
	})

	tasks := pool.Execute(ctx, pending)

	translated := make(map[int]string, len(tasks))
	var pairs []rag.Pair
	for _, task := range tasks {
		i := task.Input
		if task.Err != nil {
			return nil, fmt.Errorf("translate chunk %d of %d: %w", i+1, len(chunks), task.Err)
		}
		translated[i] = task.Result.text
		if task.Result.cached {
			res.Cached++
			continue
		}
		res.Translated++
		if p.cache != nil {
			if err := p.cache.Set(ctx, lang, model, chunks[i].Body, task.Result.text); err != nil {
				log.Warn().Err(err).Int("chunk", i+1).Msg("Failed to cache translation")
			}
		}
		pairs = append(pairs, rag.Pair{
			Source:     placeholder.Expand(chunks[i].Body, m),
			Translated: placeholder.Expand(task.Result.text, m),
		})
	}

	var b strings.Builder
	for i, c := range chunks {
		if out, ok := translated[i]; ok {
			b.WriteString(c.join(out))
		} else {
			b.WriteString(c.join(c.Body))
		}
	}

	res.Output, res.Report = placeholder.RestoreWithReport(b.String(), m)
	logReport(res.Report, m)

	if p.retriever != nil {
		if err := p.retriever.Remember(ctx, lang, pairs); err != nil {
			log.Warn().Err(err).Msg("Failed to store translation memory")
		}
	}

	log.Debug().
		Int("chunks", res.Chunks).
		Int("translated", res.Translated).
		Int("cached", res.Cached).
		Msg("Document translated")

	return res, nil
}

func logReport(rep placeholder.Report, m *placeholder.Mapping) {
	for _, i := range rep.Missing {
		e := m.At(i)
		log.Warn().
			Str("token", e.Token).
			Str("class", e.Span.Class.String()).
			Str("text", textutil.Truncate(e.Span.Text, 40)).
			Msg("Placeholder lost in translation, appended original at end")
	}
	for _, i := range rep.Duplicated {
		log.Warn().Str("token", m.At(i).Token).Msg("Placeholder repeated in translation, later copies left as is")
	}
	for _, token := range rep.Unknown {
		log.Warn().Str("token", token).Msg("Unknown placeholder in translation")
	}
}
