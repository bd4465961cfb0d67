package placeholder

import (
	"regexp"
	"sort"
	"strings"
)

func isASCIIPunct(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}

// escapeEnd returns the end of the backslash escape at i. A backslash only
// escapes ASCII punctuation; otherwise it is a plain character.
func escapeEnd(src string, i int) int {
	if i+1 < len(src) && isASCIIPunct(src[i+1]) {
		return i + 2
	}
	return i + 1
}

// lookahead holds offsets gathered in one pass over the document, so that
// matching a construct never rescans the rest of the input.
type lookahead struct {
	src string
	// ticks maps a backtick run length to the start offsets of the maximal
	// runs of that length.
	ticks        map[int][]int
	comments     []int
	instructions []int
	cdata        []int
	gts          []int
}

func newLookahead(src string) *lookahead {
	a := &lookahead{
		src:          src,
		ticks:        make(map[int][]int),
		comments:     offsetsOf(src, "-->"),
		instructions: offsetsOf(src, "?>"),
		cdata:        offsetsOf(src, "]]>"),
		gts:          offsetsOf(src, ">"),
	}
	for i := 0; i < len(src); {
		if src[i] != '`' {
			i++
			continue
		}
		n := runLen(src, i, '`')
		a.ticks[n] = append(a.ticks[n], i)
		i += n
	}
	return a
}

// offsetsOf lists every offset of sub in src, overlapping ones included.
func offsetsOf(src, sub string) []int {
	var out []int
	for i := 0; i < len(src); {
		j := strings.Index(src[i:], sub)
		if j < 0 {
			break
		}
		out = append(out, i+j)
		i += j + 1
	}
	return out
}

// nextAt returns the first offset in sorted at or after from.
func nextAt(sorted []int, from int) (int, bool) {
	i := sort.SearchInts(sorted, from)
	if i == len(sorted) {
		return 0, false
	}
	return sorted[i], true
}

// codeSpanEnd matches an inline code span opened by the backtick run at
// start. The closing run must have the same length and lie before limit. A
// lone double backtick is an empty code span.
func (a *lookahead) codeSpanEnd(start, limit int) (int, bool) {
	n := runLen(a.src, start, '`')
	if i, ok := nextAt(a.ticks[n], start+n); ok && i < limit {
		return i + n, true
	}
	if n == 2 {
		return start + 2, true
	}
	return 0, false
}

// closeBracket finds the ']' matching the '[' at open. Brackets inside
// escapes, code spans, autolinks and raw HTML do not count. Every bracket
// passed on the way is settled as well, so nested and unmatched brackets
// are never scanned twice.
func (s *scanner) closeBracket(open, limit int) (int, bool) {
	if end, ok := s.closers[open]; ok {
		return end, end >= 0
	}
	var stack []int
	for i := open; i < limit; {
		switch s.src[i] {
		case '\\':
			i = escapeEnd(s.src, i)
			continue
		case '`':
			if end, ok := s.ahead.codeSpanEnd(i, limit); ok {
				i = end
			} else {
				i += runLen(s.src, i, '`')
			}
			continue
		case '<':
			if end, _, ok := s.ahead.angleEnd(i); ok && end <= limit {
				i = end
				continue
			}
		case '[':
			stack = append(stack, i)
		case ']':
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			s.closers[top] = i
			if len(stack) == 0 {
				return i, true
			}
		}
		i++
	}
	for _, at := range stack {
		s.closers[at] = -1
	}
	return 0, false
}

func skipSpace(src string, i, limit int) int {
	for i < limit && strings.IndexByte(" \t\r\n", src[i]) >= 0 {
		i++
	}
	return i
}

// maxParenDepth bounds the nesting of parentheses inside a bare link
// destination.
const maxParenDepth = 32

// inlineDestinationEnd matches `(destination "title")` starting at at.
func inlineDestinationEnd(src string, at, limit int) (int, bool) {
	if at >= limit || src[at] != '(' {
		return 0, false
	}
	i := skipSpace(src, at+1, limit)
	if i < limit && src[i] == '<' {
		j := i + 1
		for j < limit && src[j] != '>' && src[j] != '<' && src[j] != '\n' {
			if src[j] == '\\' {
				j++
			}
			j++
		}
		if j >= limit || src[j] != '>' {
			return 0, false
		}
		i = j + 1
	} else {
		depth := 0
		for i < limit {
			c := src[i]
			if c == '\\' {
				i = escapeEnd(src, i)
				continue
			}
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				break
			}
			if c == '(' {
				depth++
				if depth > maxParenDepth {
					return 0, false
				}
			} else if c == ')' {
				if depth == 0 {
					break
				}
				depth--
			}
			i++
		}
		if depth != 0 {
			return 0, false
		}
	}
	j := skipSpace(src, i, limit)
	if j > i && j < limit && (src[j] == '"' || src[j] == '\'' || src[j] == '(') {
		closer := src[j]
		if closer == '(' {
			closer = ')'
		}
		k := j + 1
		for k < limit && src[k] != closer {
			if closer == ')' && src[k] == '(' {
				return 0, false
			}
			if src[k] == '\\' {
				k++
			}
			k++
		}
		if k >= limit {
			return 0, false
		}
		j = skipSpace(src, k+1, limit)
	}
	if j < limit && src[j] == ')' {
		return j + 1, true
	}
	return 0, false
}

// referenceLabelEnd matches the `[label]` of a full reference link. An empty
// label (collapsed reference) is left alone, as is a bracket that is itself
// followed by an inline destination.
func referenceLabelEnd(src string, at, limit int) (int, bool) {
	if at >= limit || src[at] != '[' {
		return 0, false
	}
	i := at + 1
	for i < limit && src[i] != ']' {
		if src[i] == '[' {
			return 0, false
		}
		if src[i] == '\\' {
			i++
		}
		i++
	}
	if i >= limit || strings.TrimSpace(src[at+1:i]) == "" {
		return 0, false
	}
	end := i + 1
	if end < len(src) && src[end] == '(' {
		return 0, false
	}
	return end, true
}

type anglePattern struct {
	class Class
	re    *regexp.Regexp
}

var anglePatterns = []anglePattern{
	{Autolink, regexp.MustCompile(`^<[A-Za-z][A-Za-z0-9+.\-]{1,31}:[^\s<>]*>`)},
	{Autolink, regexp.MustCompile("^<[A-Za-z0-9.!#$%&'*+/=?^_`{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*>")},
	{HTML, regexp.MustCompile("^<[A-Za-z][A-Za-z0-9-]*(?:\\s+[A-Za-z_:][A-Za-z0-9_.:-]*(?:\\s*=\\s*(?:[^\\s\"'=<>`]+|'[^']*'|\"[^\"]*\"))?)*\\s*/?>")},
	{HTML, regexp.MustCompile(`^</[A-Za-z][A-Za-z0-9-]*\s*>`)},
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// angleEnd matches an autolink or a raw HTML construct starting at the '<'
// at offset at. Comments, processing instructions, CDATA sections and
// declarations end at the first terminator after the opener.
func (a *lookahead) angleEnd(at int) (int, Class, bool) {
	rest := a.src[at:]
	var (
		ends   []int
		from   int
		suffix int
	)
	switch {
	case strings.HasPrefix(rest, "<!--"):
		ends, from, suffix = a.comments, at+4, 3
	case strings.HasPrefix(rest, "<?"):
		ends, from, suffix = a.instructions, at+2, 2
	case strings.HasPrefix(rest, "<![CDATA["):
		ends, from, suffix = a.cdata, at+9, 3
	case len(rest) > 2 && rest[1] == '!' && isASCIILetter(rest[2]):
		ends, from, suffix = a.gts, at+3, 1
	default:
		for _, p := range anglePatterns {
			if loc := p.re.FindStringIndex(rest); loc != nil {
				return at + loc[1], p.class, true
			}
		}
		return 0, 0, false
	}
	if end, ok := nextAt(ends, from); ok {
		return end + suffix, HTML, true
	}
	return 0, 0, false
}
