package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

const baseTag = "md"

// Entry pairs a placeholder token with the span it stands in for.
type Entry struct {
	Token string
	Span  Span
}

// Mapping is the ordered token → span table produced by Protect and consumed
// by Restore. Entry i always carries token index i, so position order equals
// first-occurrence order in the source.
type Mapping struct {
	tag     string
	pattern *regexp.Regexp
	entries []Entry
	index   map[string]int
}

func newMapping(tag string) *Mapping {
	return &Mapping{
		tag:     tag,
		pattern: tokenPattern(tag),
		index:   make(map[string]int),
	}
}

// tokenPattern matches a token of the given tag together with the usual ways
// a model perturbs it: case changes, spaces inside the braces, a different or
// dropped separator and markdown-escaped braces. A pair of braces only counts
// as escaped when both carry a backslash, so a source backslash in front of a
// token is never taken for part of it.
func tokenPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:\\\{\s*\\\{|\{\s*\{)\s*` + regexp.QuoteMeta(tag) + `\s*[_\- ]?\s*(\d+)\s*(?:\\\}\s*\\\}|\}\s*\})`)
}

// chooseTag returns the first tag in md, mdx, mdxx, ... that cannot be
// confused with anything already present in src.
func chooseTag(src string) string {
	tag := baseTag
	for tokenPattern(tag).MatchString(src) {
		tag += "x"
	}
	return tag
}

func formatToken(tag string, n int) string {
	return "{{" + tag + "_" + strconv.Itoa(n) + "}}"
}

func (m *Mapping) add(span Span) string {
	token := formatToken(m.tag, len(m.entries))
	if _, dup := m.index[token]; dup {
		panic(fmt.Sprintf("placeholder: token %s issued twice", token))
	}
	m.index[token] = len(m.entries)
	m.entries = append(m.entries, Entry{Token: token, Span: span})
	return token
}

// Len returns the number of recorded spans.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Tag returns the token tag chosen for this mapping.
func (m *Mapping) Tag() string {
	if m == nil {
		return baseTag
	}
	return m.tag
}

// At returns the i-th entry in source order.
func (m *Mapping) At(i int) Entry {
	return m.entries[i]
}

// Entries returns a copy of all entries in source order.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Lookup resolves a token, exact or perturbed, to its span.
func (m *Mapping) Lookup(token string) (Span, bool) {
	if m == nil {
		return Span{}, false
	}
	if i, ok := m.index[token]; ok {
		return m.entries[i].Span, true
	}
	loc := m.pattern.FindStringSubmatchIndex(token)
	if loc == nil || loc[0] != 0 || loc[1] != len(token) {
		return Span{}, false
	}
	i, ok := m.position(token[loc[2]:loc[3]])
	if !ok {
		return Span{}, false
	}
	return m.entries[i].Span, true
}

func (m *Mapping) position(digits string) (int, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n >= len(m.entries) {
		return 0, false
	}
	return n, true
}
