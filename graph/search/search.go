// Package search provides the external web search engines used by search
// nodes behind a single Engine interface.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Engine names.
const (
	EngineTavily = "tavily"
	EngineExa    = "exa"
)

// ErrUnknownEngine is returned by New for unsupported engine names.
var ErrUnknownEngine = errors.New("unknown search engine")

// Query describes a single search.
type Query struct {
	Text string

	// Domain restricts results to one site when set.
	Domain string

	// MaxResults bounds the number of results. Zero uses the engine default.
	MaxResults int
}

// Result is a single search hit. Score is the engine's relevance in [0, 1],
// or nil when the engine did not report one.
type Result struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Content string   `json:"content"`
	Score   *float64 `json:"score,omitempty"`
}

// Engine runs web searches.
type Engine interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Option configures an engine created by New.
type Option func(*config)

type config struct {
	baseURL string
	client  *http.Client
}

// WithBaseURL overrides the engine endpoint.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// New returns the engine registered under name, authenticated with apiKey.
func New(name, apiKey string, opts ...Option) (Engine, error) {
	cfg := config{client: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for search engine %s", name)
	}

	switch name {
	case EngineTavily:
		return &Tavily{apiKey: apiKey, baseURL: orDefault(cfg.baseURL, TavilyURL), client: cfg.client}, nil
	case EngineExa:
		return &Exa{apiKey: apiKey, baseURL: orDefault(cfg.baseURL, ExaURL), client: cfg.client}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// postJSON sends payload to url and decodes a 2xx JSON answer into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx answer from a search API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search API returned status %d: %s", e.StatusCode, e.Body)
}
