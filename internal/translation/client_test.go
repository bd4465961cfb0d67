package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"md2lang-oai/internal/locale"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocale(t *testing.T, s string) locale.Locale {
	t.Helper()
	l, err := locale.Normalize(s)
	require.NoError(t, err)
	return l
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func TestClient_Translate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply("  Hola {{md_0}}  ")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "sk-test")
	out, err := c.Translate(context.Background(), Request{
		Text:   "Hello {{md_0}}",
		Locale: mustLocale(t, "es"),
		Model:  "gpt-4o-mini",
		Tag:    "md",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola {{md_0}}", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Spanish (es)")
	assert.Contains(t, got.Messages[0].Content, "{{md_0}}")
	assert.Equal(t, "Hello {{md_0}}", got.Messages[1].Content)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(chatReply("Bonjour")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithBackoff(time.Millisecond), WithMaxRetries(3))
	out, err := c.Translate(context.Background(), Request{Text: "Hello", Locale: mustLocale(t, "fr"), Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", WithBackoff(time.Millisecond))
	_, err := c.Translate(context.Background(), Request{Text: "Hello", Locale: mustLocale(t, "fr"), Model: "m"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithBackoff(time.Millisecond), WithMaxRetries(2))
	_, err := c.Translate(context.Background(), Request{Text: "x", Locale: mustLocale(t, "de"), Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithMaxRetries(1))
	_, err := c.Translate(context.Background(), Request{Text: "x", Locale: mustLocale(t, "de"), Model: "m"})
	assert.ErrorContains(t, err, "no choices")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(srv.URL, "k", WithBackoff(time.Hour))
	_, err := c.Translate(ctx, Request{Text: "x", Locale: mustLocale(t, "de"), Model: "m"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnwrapFence(t *testing.T) {
	assert.Equal(t, "Hola {{md_0}}", unwrapFence("```markdown\nHola {{md_0}}\n```"))
	assert.Equal(t, "Hola", unwrapFence("```\nHola\n```"))
	assert.Equal(t, "```go\nx\n```", unwrapFence("```go\nx\n```"))
	assert.Equal(t, "plain", unwrapFence("plain"))
}

func TestPromptBuilder(t *testing.T) {
	pb := NewPromptBuilder()
	sys := pb.SystemPrompt(mustLocale(t, "de"), "mdx")
	assert.Contains(t, sys, "German (de)")
	assert.Contains(t, sys, "{{mdx_0}}")
	assert.NotContains(t, sys, "{{targetLang}}")

	assert.Equal(t, "text", pb.UserPrompt("text", " "))
	user := pb.UserPrompt("text", "=== Glossary ===\n• a → b")
	assert.Equal(t, "=== Glossary ===\n• a → b\n=== Text to translate ===\ntext", user)
}
