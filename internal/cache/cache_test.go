package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslationCache_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewTranslationCache(nil)
	require.NoError(t, c.EnsureSchema(ctx))
	require.NoError(t, c.Preload(ctx, "es", "gpt-4o-mini"))

	_, ok := c.Get(ctx, "es", "gpt-4o-mini", "Hello")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "es", "gpt-4o-mini", "Hello", "Hola"))
	got, ok := c.Get(ctx, "es", "gpt-4o-mini", "Hello")
	require.True(t, ok)
	assert.Equal(t, "Hola", got)

	_, ok = c.Get(ctx, "fr", "gpt-4o-mini", "Hello")
	assert.False(t, ok, "locale is part of the key")
	_, ok = c.Get(ctx, "es", "gpt-4o", "Hello")
	assert.False(t, ok, "model is part of the key")
}

func TestKey(t *testing.T) {
	assert.NotEqual(t, Key("es", "ab", "c"), Key("es", "a", "bc"))
	assert.Equal(t, Key("es", "m", "x"), Key("es", "m", "x"))
	assert.Len(t, Key("es", "m", "x"), 64)
}

func TestTranslationCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewTranslationCache(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf("text %d", i)
			_ = c.Set(ctx, "de", "m", src, "übersetzt")
			_, _ = c.Get(ctx, "de", "m", src)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
