package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"md2lang-oai/internal/translation"

	"github.com/rs/zerolog/log"
)

const defaultDimensions = 1536

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingClient calls the /embeddings endpoint of the same
// OpenAI-compatible API the translator talks to. Failures come back as
// *translation.APIError, and rate limits or server errors are retried.
type EmbeddingClient struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

// EmbeddingOption customizes an EmbeddingClient.
type EmbeddingOption func(*EmbeddingClient)

// WithEmbeddingRetries sets how many attempts a batch gets.
func WithEmbeddingRetries(n int, backoff time.Duration) EmbeddingOption {
	return func(ec *EmbeddingClient) {
		if n > 0 {
			ec.maxRetries = n
		}
		ec.backoff = backoff
	}
}

// NewEmbeddingClient creates an embedding client for baseURL, the API root
// (e.g. https://api.openai.com/v1). A non-positive dimensions asks for 1536.
func NewEmbeddingClient(apiKey, model, baseURL string, dimensions int, opts ...EmbeddingOption) *EmbeddingClient {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	ec := &EmbeddingClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		dimensions: dimensions,
		maxRetries: 3,
		backoff:    time.Second,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// Dimensions returns the vector size requested from the API.
func (ec *EmbeddingClient) Dimensions() int {
	return ec.dimensions
}

type embedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns one vector per text, in the order of texts.
func (ec *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Input: texts, Model: ec.model, Dimensions: ec.dimensions})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < ec.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * ec.backoff
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("backoff", wait).Msg("Retrying embeddings")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		vecs, err := ec.doEmbed(ctx, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *translation.APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return nil, fmt.Errorf("embeddings: %w", err)
		}
	}
	return nil, fmt.Errorf("embeddings failed after %d attempts: %w", ec.maxRetries, lastErr)
}

func (ec *EmbeddingClient) doEmbed(ctx context.Context, body []byte, want int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ec.apiKey)

	resp, err := ec.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out embedResponse
	jsonErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if jsonErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return nil, &translation.APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", jsonErr)
	}
	if out.Error != nil {
		return nil, &translation.APIError{StatusCode: resp.StatusCode, Message: out.Error.Message}
	}

	vecs := make([][]float32, want)
	for _, d := range out.Data {
		if d.Index >= 0 && d.Index < want {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("no vector for input %d of %d", i+1, want)
		}
	}

	log.Debug().Int("texts", want).Int("tokens", out.Usage.TotalTokens).Msg("Generated embeddings")
	return vecs, nil
}

// EmbedQuery embeds a single text.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	if len(vecs) == 0 || vecs[0] == nil {
		return nil, errors.New("no embedding returned for query")
	}
	return vecs[0], nil
}
