package placeholder

import (
	"sort"
	"strings"
)

// Report describes how faithfully a translated text kept its placeholders.
type Report struct {
	// Missing lists mapping positions whose token never came back. Their
	// spans are appended to the end of the restored text.
	Missing []int
	// Duplicated lists mapping positions whose token came back more than
	// once. Only the first occurrence is resolved; copies stay verbatim.
	Duplicated []int
	// Unknown lists token-shaped strings with no mapping entry. They stay
	// verbatim.
	Unknown []string
}

// Clean reports whether restoration resolved every token exactly once.
func (r Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Duplicated) == 0 && len(r.Unknown) == 0
}

// Restore substitutes the original spans back into translated. See
// RestoreWithReport for the handling of lost and duplicated tokens.
func Restore(translated string, m *Mapping) string {
	out, _ := RestoreWithReport(translated, m)
	return out
}

// RestoreWithReport substitutes the original spans back into translated and
// reports every anomaly it met. Tokens are recognized even when the model
// changed their case, spacing or separator.
//
// The first occurrence of a token wins. Spans whose token is absent are
// appended in mapping order, each separated from the preceding text by a
// blank line, so no protected content is ever lost.
func RestoreWithReport(translated string, m *Mapping) (string, Report) {
	var rep Report
	if m == nil {
		return translated, rep
	}

	used := make([]bool, len(m.entries))
	seenDup := make(map[int]bool)
	var b strings.Builder
	last := 0
	for _, loc := range m.pattern.FindAllStringSubmatchIndex(translated, -1) {
		b.WriteString(translated[last:loc[0]])
		last = loc[1]
		token := translated[loc[0]:loc[1]]
		i, ok := m.position(translated[loc[2]:loc[3]])
		switch {
		case !ok:
			rep.Unknown = append(rep.Unknown, token)
			b.WriteString(token)
		case used[i]:
			if !seenDup[i] {
				seenDup[i] = true
				rep.Duplicated = append(rep.Duplicated, i)
			}
			b.WriteString(token)
		default:
			used[i] = true
			b.WriteString(m.entries[i].Span.Text)
		}
	}
	b.WriteString(translated[last:])

	for i, ok := range used {
		if ok {
			continue
		}
		rep.Missing = append(rep.Missing, i)
		if cur := b.String(); cur != "" {
			if !strings.HasSuffix(cur, "\n") {
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
		b.WriteString(m.entries[i].Span.Text)
	}
	if len(rep.Missing) > 0 && strings.HasSuffix(translated, "\n") {
		b.WriteByte('\n')
	}
	sort.Ints(rep.Duplicated)
	return b.String(), rep
}

// Residual returns the token-shaped strings of m still present in text.
func Residual(text string, m *Mapping) []string {
	if m == nil {
		return nil
	}
	return m.pattern.FindAllString(text, -1)
}

// Strip removes every token of m from text, leaving only what a translator
// would actually see as prose.
func Strip(text string, m *Mapping) string {
	if m == nil {
		return text
	}
	return m.pattern.ReplaceAllString(text, "")
}

// Expand replaces every token of m found in text with its span and leaves
// everything else, unknown tokens included, as it is. Unlike Restore it
// never appends lost spans, so it suits fragments of a protected document.
func Expand(text string, m *Mapping) string {
	if m == nil {
		return text
	}
	return m.pattern.ReplaceAllStringFunc(text, func(token string) string {
		span, ok := m.Lookup(token)
		if !ok {
			return token
		}
		return span.Text
	})
}
