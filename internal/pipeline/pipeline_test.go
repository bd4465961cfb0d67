package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"md2lang-oai/internal/cache"
	"md2lang-oai/internal/graph"
	"md2lang-oai/internal/locale"
	"md2lang-oai/internal/rag"
	"md2lang-oai/internal/translation"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTranslator struct {
	mu   sync.Mutex
	reqs []translation.Request
	fn   func(translation.Request) (string, error)
}

func (f *fakeTranslator) Translate(ctx context.Context, req translation.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeTranslator) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.reqs))
	for i, r := range f.reqs {
		out[i] = r.Text
	}
	return out
}

func identity(req translation.Request) (string, error) { return req.Text, nil }

func upper(req translation.Request) (string, error) { return strings.ToUpper(req.Text), nil }

func mustLocale(t *testing.T, s string) locale.Locale {
	t.Helper()
	l, err := locale.Normalize(s)
	require.NoError(t, err)
	return l
}

func TestDocument_IdentityRoundTrip(t *testing.T) {
	src := "---\ntitle: Guide\n---\n# Install\n\nRun `go install` from [the repo](https://example.com/x \"X\").\n\n" +
		"```sh\nmake build\n```\n\nSee <https://example.com> and <kbd>Ctrl</kbd>.\n\n[ref]: https://example.com/ref\n"

	tr := &fakeTranslator{fn: identity}
	p := New(tr, WithWorkers(3), WithChunkSize(40))
	res, err := p.Document(context.Background(), src, mustLocale(t, "es"), "gpt-4o-mini")
	require.NoError(t, err)

	assert.Equal(t, src, res.Output)
	assert.True(t, res.Report.Clean())
	assert.Greater(t, res.Chunks, 1)
	for _, text := range tr.texts() {
		assert.NotContains(t, text, "`")
		assert.NotContains(t, text, "https://")
	}
}

func TestDocument_TokenOnlyChunksSkipped(t *testing.T) {
	src := "```go\nfmt.Println(1)\n```\n"
	tr := &fakeTranslator{fn: upper}

	res, err := New(tr).Document(context.Background(), src, mustLocale(t, "de"), "m")
	require.NoError(t, err)
	assert.Equal(t, src, res.Output)
	assert.Empty(t, tr.texts())
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 0, res.Translated)
}

func TestDocument_WhitespaceKeptAside(t *testing.T) {
	src := "\n\n# Hello `x`\n\nWorld  \n"
	tr := &fakeTranslator{fn: upper}

	res, err := New(tr).Document(context.Background(), src, mustLocale(t, "fr"), "m")
	require.NoError(t, err)
	assert.Equal(t, "\n\n# HELLO `x`\n\nWORLD  \n", res.Output)
	assert.Equal(t, []string{"# Hello {{md_0}}\n\nWorld"}, tr.texts())
	assert.Equal(t, "md", tr.reqs[0].Tag)
	assert.Equal(t, "fr", tr.reqs[0].Locale.String())
}

func TestDocument_Chunked(t *testing.T) {
	src := "Para one.\n\nPara two.\n\nPara three.\n"
	tr := &fakeTranslator{fn: upper}

	res, err := New(tr, WithChunkSize(12), WithWorkers(2)).Document(context.Background(), src, mustLocale(t, "it"), "m")
	require.NoError(t, err)
	assert.Equal(t, "PARA ONE.\n\nPARA TWO.\n\nPARA THREE.\n", res.Output)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.Translated)
	assert.ElementsMatch(t, []string{"Para one.", "Para two.", "Para three."}, tr.texts())
}

func TestDocument_ErrorFailsDocument(t *testing.T) {
	boom := errors.New("boom")
	tr := &fakeTranslator{fn: func(translation.Request) (string, error) { return "", boom }}

	_, err := New(tr).Document(context.Background(), "Hello", mustLocale(t, "es"), "m")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "translate chunk 1 of 1")
}

func TestDocument_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &fakeTranslator{fn: identity}
	_, err := New(tr).Document(ctx, "Hello", mustLocale(t, "es"), "m")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocument_LostTokenAppended(t *testing.T) {
	tr := &fakeTranslator{fn: func(translation.Request) (string, error) { return "Ejecuta ahora.", nil }}

	res, err := New(tr).Document(context.Background(), "Run `a` now.\n", mustLocale(t, "es"), "m")
	require.NoError(t, err)
	assert.Equal(t, "Ejecuta ahora.\n\n`a`\n", res.Output)
	assert.Equal(t, []int{0}, res.Report.Missing)
}

func TestDocument_Cache(t *testing.T) {
	tr := &fakeTranslator{fn: upper}
	p := New(tr, WithCache(cache.NewTranslationCache(nil)))
	loc := mustLocale(t, "pt-BR")

	first, err := p.Document(context.Background(), "Hello `x`", loc, "m")
	require.NoError(t, err)
	second, err := p.Document(context.Background(), "Hello `x`", loc, "m")
	require.NoError(t, err)

	assert.Equal(t, "HELLO `x`", first.Output)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, 0, second.Translated)
	assert.Len(t, tr.texts(), 1)

	_, err = p.Document(context.Background(), "Hello `x`", loc, "other-model")
	require.NoError(t, err)
	assert.Len(t, tr.texts(), 2)
}

type fakeRetriever struct {
	mu        sync.Mutex
	retrieved []string
	pairs     []rag.Pair
}

func (f *fakeRetriever) Retrieve(_ context.Context, text, _ string) *rag.RetrievalResult {
	f.mu.Lock()
	f.retrieved = append(f.retrieved, text)
	f.mu.Unlock()
	return &rag.RetrievalResult{GraphContext: &graph.QueryResult{
		Terms: []graph.TermResult{{Source: "commit", Target: "confirmación"}},
	}}
}

func (f *fakeRetriever) Remember(_ context.Context, _ string, pairs []rag.Pair) error {
	f.pairs = append(f.pairs, pairs...)
	return nil
}

func TestDocument_Retriever(t *testing.T) {
	tr := &fakeTranslator{fn: upper}
	r := &fakeRetriever{}

	res, err := New(tr, WithRetriever(r)).Document(context.Background(), "Use `git commit` daily.\n", mustLocale(t, "es"), "m")
	require.NoError(t, err)
	assert.Equal(t, "USE `git commit` DAILY.\n", res.Output)

	assert.Equal(t, []string{"Use `git commit` daily."}, r.retrieved)
	require.Len(t, tr.reqs, 1)
	assert.Contains(t, tr.reqs[0].Reference, "• commit → confirmación")

	want := []rag.Pair{{Source: "Use `git commit` daily.", Translated: "USE `git commit` DAILY."}}
	if diff := cmp.Diff(want, r.pairs); diff != "" {
		t.Errorf("remembered pairs mismatch (-want +got):\n%s", diff)
	}
}
