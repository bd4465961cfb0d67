// Package placeholder shields syntax-sensitive Markdown from a translation
// model. Protect swaps code, link destinations, raw HTML and similar spans for
// opaque tokens; Restore puts the original spans back into the model output.
//
// Link anchor text and image alt text are prose and stay exposed: only the
// non-prose parts of a construct are tokenized.
package placeholder

import (
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Protect replaces every protected span of src with a placeholder token, in
// order of first appearance, and returns the rewritten text together with
// the mapping needed to undo it.
//
// An unterminated code fence runs to the end of the document.
func Protect(src string) (string, *Mapping) {
	s := &scanner{
		src:     src,
		m:       newMapping(chooseTag(src)),
		pending: make(map[int]pendingSpan),
		breaks:  paragraphBreaks(src),
		ahead:   newLookahead(src),
		closers: make(map[int]int),
	}
	s.run()
	return s.out.String(), s.m
}

type pendingSpan struct {
	end   int
	class Class
}

type scanner struct {
	src string
	pos int
	out strings.Builder
	m   *Mapping
	// pending holds link destinations and reference labels discovered while
	// matching link text, keyed by start offset. They are emitted when the
	// scan reaches them so tokens stay in source order.
	pending map[int]pendingSpan
	// breaks are the start offsets of blank lines and fence openers; inline
	// constructs never extend past the next one.
	breaks []int
	ahead  *lookahead
	// closers records the ']' matching each '[' already examined, or -1
	// when there is none before the paragraph ends.
	closers map[int]int
}

func (s *scanner) run() {
	if end, ok := frontMatterEnd(s.src); ok {
		s.emit(FrontMatter, 0, end)
	}
	lineStart := true
	for s.pos < len(s.src) {
		if lineStart {
			lineStart = false
			if end, ok := fenceEnd(s.src, s.pos); ok {
				s.emit(FencedCode, s.pos, end)
				continue
			}
			if end, ok := linkDefinitionEnd(s.src, s.pos); ok {
				s.emit(LinkDefinition, s.pos, end)
				continue
			}
		}
		if p, ok := s.pending[s.pos]; ok {
			delete(s.pending, s.pos)
			s.emit(p.class, s.pos, p.end)
			continue
		}
		switch s.src[s.pos] {
		case '\n':
			s.literal(s.pos + 1)
			lineStart = true
		case '\\':
			s.literal(escapeEnd(s.src, s.pos))
		case '`':
			s.backticks()
		case '[':
			s.bracket()
		case '<':
			if end, class, ok := s.ahead.angleEnd(s.pos); ok {
				s.emit(class, s.pos, end)
			} else {
				s.literal(s.pos + 1)
			}
		default:
			s.literal(s.pos + 1)
		}
	}
}

func (s *scanner) emit(class Class, start, end int) {
	s.out.WriteString(s.m.add(Span{Class: class, Text: s.src[start:end], Offset: start}))
	s.pos = end
}

func (s *scanner) literal(end int) {
	s.out.WriteString(s.src[s.pos:end])
	s.pos = end
}

func (s *scanner) backticks() {
	if end, ok := s.ahead.codeSpanEnd(s.pos, s.paragraphEnd(s.pos)); ok {
		s.emit(InlineCode, s.pos, end)
		return
	}
	s.literal(s.pos + runLen(s.src, s.pos, '`'))
}

// bracket handles a '[' that may open link text or image alt text. The text
// itself is left to the main loop; only what follows the closing ']' is
// scheduled for protection.
func (s *scanner) bracket() {
	open := s.pos
	limit := s.paragraphEnd(open)
	if closeAt, ok := s.closeBracket(open, limit); ok {
		next := closeAt + 1
		if end, ok := inlineDestinationEnd(s.src, next, limit); ok {
			s.pending[next] = pendingSpan{end: end, class: LinkDestination}
		} else if end, ok := referenceLabelEnd(s.src, next, limit); ok {
			s.pending[next] = pendingSpan{end: end, class: LinkReference}
		}
	}
	s.literal(open + 1)
}

func (s *scanner) paragraphEnd(from int) int {
	i := sort.SearchInts(s.breaks, from+1)
	if i == len(s.breaks) {
		return len(s.src)
	}
	return s.breaks[i]
}

func paragraphBreaks(src string) []int {
	var breaks []int
	for start := 0; start < len(src); {
		end := lineEnd(src, start)
		if strings.TrimSpace(src[start:end]) == "" {
			breaks = append(breaks, start)
		} else if _, _, ok := fenceOpen(src, start); ok {
			breaks = append(breaks, start)
		}
		start = end + 1
	}
	return breaks
}

// lineEnd returns the offset of the newline ending the line containing i, or
// len(src) for the last line.
func lineEnd(src string, i int) int {
	if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(src)
}

func runLen(src string, i int, c byte) int {
	n := 0
	for i+n < len(src) && src[i+n] == c {
		n++
	}
	return n
}

func indentEnd(src string, at int) int {
	i := at
	for i < len(src) && i-at < 3 && src[i] == ' ' {
		i++
	}
	return i
}

// fenceOpen reports whether the line at offset at opens a fenced code block.
func fenceOpen(src string, at int) (fence byte, n int, ok bool) {
	i := indentEnd(src, at)
	if i >= len(src) || (src[i] != '`' && src[i] != '~') {
		return 0, 0, false
	}
	fence = src[i]
	n = runLen(src, i, fence)
	if n < 3 {
		return 0, 0, false
	}
	if fence == '`' && strings.IndexByte(src[i+n:lineEnd(src, i)], '`') >= 0 {
		return 0, 0, false
	}
	return fence, n, true
}

// fenceEnd returns the end of the fenced block opened at at, excluding the
// newline after the closing fence. Without a closing fence the block runs to
// the end of src.
func fenceEnd(src string, at int) (int, bool) {
	fence, n, ok := fenceOpen(src, at)
	if !ok {
		return 0, false
	}
	for start := lineEnd(src, at) + 1; start < len(src); {
		end := lineEnd(src, start)
		i := indentEnd(src, start)
		if m := runLen(src, i, fence); m >= n && strings.TrimSpace(src[i+m:end]) == "" {
			return end, true
		}
		start = end + 1
	}
	return len(src), true
}

var linkDefinitionPattern = regexp.MustCompile(
	`^( {0,3}\[[^\^\s\[\]\\](?:[^\[\]\\\n]|\\.)*\]:[ \t]*` +
		`(?:<[^<>\n]*>|[^\s<]\S*)` +
		`(?:[ \t]+(?:"[^"\n]*"|'[^'\n]*'|\([^()\n]*\)))?[ \t]*)(?:\r?\n|$)`)

func linkDefinitionEnd(src string, at int) (int, bool) {
	loc := linkDefinitionPattern.FindStringSubmatchIndex(src[at:])
	if loc == nil {
		return 0, false
	}
	return at + loc[3], true
}

var frontMatterPattern = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n(---|\.\.\.)[ \t]*(?:\r?\n|$)`)

// frontMatterEnd detects a YAML front matter block at the start of src. The
// block only counts when its body is a YAML mapping, which keeps a leading
// thematic break followed by a setext heading out.
func frontMatterEnd(src string) (int, bool) {
	loc := frontMatterPattern.FindStringSubmatchIndex(src)
	if loc == nil {
		return 0, false
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src[loc[2]:loc[3]]), &doc); err != nil {
		return 0, false
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return 0, false
	}
	return loc[5], true
}
