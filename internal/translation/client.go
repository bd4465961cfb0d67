package translation

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

	"md2lang-oai/internal/locale"

	"github.com/rs/zerolog/log"
)

// Request is a single translation call.
type Request struct {
	Text   string
	Locale locale.Locale
	Model  string
	// Tag is the placeholder tag used in Text (see placeholder.Mapping.Tag).
	Tag string
	// Reference is optional retrieval context: glossary terms and earlier
	// translations.
	Reference string
}

// Translator turns text into the requested locale.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// APIError is a non-2xx answer from the chat completions endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed when sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to an OpenAI-compatible Chat Completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	temperature float64
	maxRetries  int
	backoff     time.Duration
	prompts     *PromptBuilder
	httpClient  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithBackoff sets the base delay between attempts; attempt n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient creates a chat completions client. baseURL is the API root,
// e.g. https://api.openai.com/v1.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		temperature: 0.2,
		maxRetries:  3,
		backoff:     2 * time.Second,
		prompts:     NewPromptBuilder(),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Chat Completions request/response types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Translate sends req to the model and returns the translated text.
func (c *Client) Translate(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.prompts.SystemPrompt(req.Locale, req.Tag)},
			{Role: "user", Content: c.prompts.UserPrompt(req.Text, req.Reference)},
		},
		Temperature: c.temperature,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal translation request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying translation")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := c.doRequest(ctx, bodyBytes)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", err
		}
	}

	return "", fmt.Errorf("translation failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, bodyBytes []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var apiResp chatResponse
	jsonErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if jsonErr == nil && apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if jsonErr != nil {
		return "", fmt.Errorf("unmarshal response: %w", jsonErr)
	}
	if apiResp.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error.Message}
	}
	if len(apiResp.Choices) == 0 {
		return "", errors.New("empty response: no choices")
	}

	if apiResp.Usage != nil {
		log.Debug().
			Int("prompt_tokens", apiResp.Usage.PromptTokens).
			Int("completion_tokens", apiResp.Usage.CompletionTokens).
			Str("finish_reason", apiResp.Choices[0].FinishReason).
			Msg("Translation complete")
	}

	return unwrapFence(strings.TrimSpace(apiResp.Choices[0].Message.Content)), nil
}

// unwrapFence removes a code fence the model wrapped around its whole answer.
// Protected input never starts with a fence, so a leading one is always added
// by the model.
func unwrapFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	info := strings.TrimSpace(s[3:nl])
	if info != "" && info != "markdown" && info != "md" && info != "text" {
		return s
	}
	inner := s[nl+1 : len(s)-3]
	return strings.TrimSpace(inner)
}
