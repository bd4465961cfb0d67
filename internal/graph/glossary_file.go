package graph

import (
	"fmt"
	"os"
	"strings"

	"md2lang-oai/internal/locale"

	"gopkg.in/yaml.v3"
)

// GlossaryFile is the YAML layout accepted by `glossary import`:
//
//	locale: es
//	terms:
//	  - source: pull request
//	    target: solicitud de incorporación
//	    category: git
//	    related: [commit]
//
// A term may override the file locale with its own locale key.
type GlossaryFile struct {
	Locale string `yaml:"locale"`
	Terms  []Term `yaml:"terms"`
}

// LoadGlossaryFile reads a glossary file and returns its terms with
// normalized locales. fallbackLocale applies when neither the file nor the
// term names one.
func LoadGlossaryFile(path, fallbackLocale string) ([]Term, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	return ParseGlossary(data, fallbackLocale)
}

// ParseGlossary decodes glossary YAML. Terms without a source or target are
// rejected, as are duplicate sources within one locale.
func ParseGlossary(data []byte, fallbackLocale string) ([]Term, error) {
	var gf GlossaryFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parse glossary: %w", err)
	}

	fileLocale := gf.Locale
	if fileLocale == "" {
		fileLocale = fallbackLocale
	}

	seen := make(map[string]bool, len(gf.Terms))
	terms := make([]Term, 0, len(gf.Terms))
	for i, t := range gf.Terms {
		t.Source = strings.TrimSpace(t.Source)
		t.Target = strings.TrimSpace(t.Target)
		if t.Source == "" || t.Target == "" {
			return nil, fmt.Errorf("glossary term %d: source and target are required", i+1)
		}

		raw := t.Locale
		if raw == "" {
			raw = fileLocale
		}
		if raw == "" {
			return nil, fmt.Errorf("glossary term %q: no locale given", t.Source)
		}
		loc, err := locale.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("glossary term %q: %w", t.Source, err)
		}
		t.Locale = loc.String()

		key := t.Locale + "\x00" + strings.ToLower(t.Source)
		if seen[key] {
			return nil, fmt.Errorf("glossary term %q: duplicate for locale %s", t.Source, t.Locale)
		}
		seen[key] = true
		terms = append(terms, t)
	}
	return terms, nil
}
