package graph

import (
	"os"
	"path/filepath"
	"testing"

	"md2lang-oai/internal/locale"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGlossary(t *testing.T) {
	data := []byte(`
locale: es_es
terms:
  - source: pull request
    target: solicitud de incorporación
    category: git
    related: [commit]
  - source: commit
    target: confirmación
  - source: branch
    target: Zweig
    locale: DE
`)
	terms, err := ParseGlossary(data, "")
	require.NoError(t, err)

	want := []Term{
		{Source: "pull request", Target: "solicitud de incorporación", Locale: "es-ES", Category: "git", Related: []string{"commit"}},
		{Source: "commit", Target: "confirmación", Locale: "es-ES"},
		{Source: "branch", Target: "Zweig", Locale: "de"},
	}
	if diff := cmp.Diff(want, terms); diff != "" {
		t.Errorf("ParseGlossary() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGlossary_FallbackLocale(t *testing.T) {
	terms, err := ParseGlossary([]byte("terms:\n  - source: a\n    target: b\n"), "fr")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "fr", terms[0].Locale)
}

func TestParseGlossary_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"missing target", "locale: es\nterms:\n  - source: a\n", "source and target are required"},
		{"no locale", "terms:\n  - source: a\n    target: b\n", "no locale given"},
		{"duplicate", "locale: es\nterms:\n  - {source: A, target: x}\n  - {source: a, target: y}\n", "duplicate"},
		{"bad yaml", "terms: [", "parse glossary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGlossary([]byte(tt.data), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseGlossary_InvalidLocale(t *testing.T) {
	_, err := ParseGlossary([]byte("locale: english\nterms:\n  - {source: a, target: b}\n"), "")
	assert.ErrorIs(t, err, locale.ErrInvalid)
}

func TestLoadGlossaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locale: ja\nterms:\n  - {source: cache, target: キャッシュ}\n"), 0o644))

	terms, err := LoadGlossaryFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, []Term{{Source: "cache", Target: "キャッシュ", Locale: "ja"}}, terms)

	_, err = LoadGlossaryFile(filepath.Join(t.TempDir(), "missing.yaml"), "es")
	assert.Error(t, err)
}

func TestLocaleKeys(t *testing.T) {
	assert.Equal(t, []string{"es"}, localeKeys("es"))
	assert.Equal(t, []string{"pt-BR", "pt"}, localeKeys("pt-BR"))
}
