// Package reelrank is a typed client for the reelrank HTTP API.
package reelrank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/reelrank/reelrank/internal/domain"
)

// Movie is the catalog record exchanged with the API.
type Movie = domain.Movie

// Result pairs a movie with its final pipeline score.
type Result struct {
	Movie *Movie  `json:"movie"`
	Score float64 `json:"score"`
}

// IngestResult reports a batch ingestion outcome.
type IngestResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Sizes  map[string]int    `json:"sizes"`
}

// Option configures the Client.
type Option interface {
	apply(*Client)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Client) {
		c.httpClient.Timeout = d
	})
}

// Client is the reelrank SDK entry point.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c
}

// Recommend returns up to k movies for a free-text query. genres biases the
// ranking toward the given genres and k=0 uses the server default.
func (c *Client) Recommend(ctx context.Context, query string, genres []string, k int) ([]Result, error) {
	req := struct {
		Query  string   `json:"query"`
		Genres []string `json:"genres,omitempty"`
		K      int      `json:"k,omitempty"`
	}{Query: query, Genres: genres, K: k}

	var resp struct {
		Results []Result `json:"results"`
	}
	if err := c.post(ctx, "/v1/recommend", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// AddMovies loads a batch of movies into the recommendation indexes.
func (c *Client) AddMovies(ctx context.Context, movies []*Movie) (IngestResult, error) {
	req := struct {
		Movies []*Movie `json:"movies"`
	}{Movies: movies}

	var res IngestResult
	if err := c.post(ctx, "/v1/movies", req, &res); err != nil {
		return IngestResult{}, err
	}
	return res, nil
}

// Health reports component status and index sizes. A degraded server answers
// 503 with a full report, which is returned without error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("reelrank: build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("reelrank: health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, parseAPIError(resp)
	}

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("reelrank: decode health response: %w", err)
	}
	return hs, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("reelrank: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("reelrank: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("reelrank: %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("reelrank: decode response: %w", err)
	}
	return nil
}
