package filewalker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# x\n"), 0o644))
}

func TestWalker_Walk(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"README.md",
		"docs/guide.markdown",
		"docs/intro.MDX",
		"docs/notes.txt",
		"docs/image.png",
		".git/HEAD.md",
		"docs/.draft.md",
	} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)))
	}

	entries, err := NewWalker().Walk(root)
	require.NoError(t, err)

	var rels []string
	for _, e := range entries {
		rels = append(rels, filepath.ToSlash(e.Rel))
	}
	assert.Equal(t, []string{"README.md", "docs/guide.markdown", "docs/intro.MDX", "docs/notes.txt"}, rels)
	assert.Equal(t, ".mdx", entries[2].Ext)

	out := entries[1].OutputPath("/out")
	assert.Equal(t, filepath.Join("/out", "docs", "guide.markdown"), out)
}

func TestWalker_Errors(t *testing.T) {
	_, err := NewWalker().Walk(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "stat root")

	file := filepath.Join(t.TempDir(), "a.md")
	writeFile(t, file)
	_, err = NewWalker().Walk(file)
	assert.ErrorContains(t, err, "not a directory")
}
