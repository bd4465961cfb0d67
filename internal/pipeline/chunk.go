package pipeline

import "strings"

// chunk is one slice of a protected document. Lead and Trail hold the
// whitespace around Body; they never reach the model.
type chunk struct {
	Lead  string
	Body  string
	Trail string
}

func (c chunk) join(body string) string {
	return c.Lead + body + c.Trail
}

func newChunk(s string) chunk {
	body := strings.TrimSpace(s)
	if body == "" {
		return chunk{Lead: s}
	}
	start := strings.Index(s, body)
	return chunk{
		Lead:  s[:start],
		Body:  body,
		Trail: s[start+len(body):],
	}
}

// splitChunks cuts text at blank lines into pieces of at most size bytes.
// A block longer than size is cut at line ends instead, and a single line
// longer than size stays whole. Concatenating the result yields text.
func splitChunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, block := range splitBlocks(text) {
		if len(block) > size {
			flush()
			chunks = append(chunks, splitLines(block, size)...)
			continue
		}
		if cur.Len()+len(block) > size {
			flush()
		}
		cur.WriteString(block)
	}
	flush()
	return chunks
}

// splitBlocks cuts text before every non-blank line that follows a blank
// line, so each block carries its trailing blank lines.
func splitBlocks(text string) []string {
	var blocks []string
	var cur strings.Builder
	prevBlank := false
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		blank := strings.TrimSpace(line) == ""
		if !blank && prevBlank && cur.Len() > 0 {
			blocks = append(blocks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
		prevBlank = blank
	}
	if cur.Len() > 0 {
		blocks = append(blocks, cur.String())
	}
	return blocks
}

func splitLines(block string, size int) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(block, "\n") {
		if line == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(line) > size {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
