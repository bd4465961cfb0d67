package pipeline

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "", 10, nil},
		{"fits", "a\n\nb\n", 100, []string{"a\n\nb\n"}},
		{"blank line boundaries", "Para one.\n\nPara two.\n\nPara three.\n", 12,
			[]string{"Para one.\n\n", "Para two.\n\n", "Para three.\n"}},
		{"blocks merged up to size", "a\n\nb\n\nccccccc\n", 8,
			[]string{"a\n\nb\n\n", "ccccccc\n"}},
		{"oversized block cut at lines", "aaaaaaaaaa\nbb\n\ncc\n", 5,
			[]string{"aaaaaaaaaa\n", "bb\n\n", "cc\n"}},
		{"no trailing newline", "one\n\ntwo", 5, []string{"one\n\n", "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitChunks(tt.text, tt.size)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("splitChunks() mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestSplitChunks_KeepsTokensWhole(t *testing.T) {
	text := "Intro {{md_0}} text\n\n{{md_1}}\n\nMore {{md_2}}\n"
	for size := 1; size < len(text); size++ {
		for _, c := range splitChunks(text, size) {
			assert.Equal(t, strings.Count(c, "{{"), strings.Count(c, "}}"), "size %d chunk %q", size, c)
		}
	}
}

func TestNewChunk(t *testing.T) {
	assert.Equal(t, chunk{Lead: "\n\n", Body: "# Title", Trail: "\n\n"}, newChunk("\n\n# Title\n\n"))
	assert.Equal(t, chunk{Lead: "  \n"}, newChunk("  \n"))
	assert.Equal(t, "\n\nX\n\n", newChunk("\n\n# Title\n\n").join("X"))
}
