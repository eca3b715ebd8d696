// Package client provides an HTTP client for the episearch server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/service"
)

// Client talks to a running episearch server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses the EPISEARCH_SERVER_URL env var or defaults to
// localhost:8080. Timeout can be configured via EPISEARCH_CLIENT_TIMEOUT
// (default 10m, ingestion re-embeds whole seasons).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("EPISEARCH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("EPISEARCH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type apiError struct {
	Error string `json:"error"`
}

// do sends a request and decodes the JSON response into result. Non-2xx
// responses are returned as errors carrying the server's error message.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Search runs a semantic query against the server.
func (c *Client) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	req := map[string]any{"query": query}
	if k > 0 {
		req["k"] = k
	}

	var resp struct {
		Results []models.SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetEpisode retrieves one episode with its embeddings.
func (c *Client) GetEpisode(ctx context.Context, season int, episode string) (*models.EpisodeDocument, error) {
	var doc models.EpisodeDocument
	path := fmt.Sprintf("/api/episodes/%d/%s", season, episode)
	if err := c.do(ctx, http.MethodGet, path, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetSeason retrieves a season's episodes, content only.
func (c *Client) GetSeason(ctx context.Context, season int) (map[string]models.EpisodeDocument, error) {
	var resp struct {
		Episodes map[string]models.EpisodeDocument `json:"episodes"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/seasons/%d", season), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Episodes, nil
}

// ListSeasons returns the season numbers present on the server.
func (c *Client) ListSeasons(ctx context.Context) ([]int, error) {
	var resp struct {
		Seasons []int `json:"seasons"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/seasons", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Seasons, nil
}

// Ingest submits a raw corpus for background ingestion and returns the job.
// Poll GetJob until the returned job reaches a terminal status.
func (c *Client) Ingest(ctx context.Context, corpus models.RawCorpus) (*service.JobView, error) {
	var job service.JobView
	if err := c.do(ctx, http.MethodPost, "/api/ingest", corpus, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// IngestFile reads a corpus file and submits it for ingestion.
func (c *Client) IngestFile(ctx context.Context, path string) (*service.JobView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var corpus models.RawCorpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return c.Ingest(ctx, corpus)
}

// GetJob retrieves a background job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*service.JobView, error) {
	var job service.JobView
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns all background jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]service.JobView, error) {
	var resp struct {
		Jobs []service.JobView `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Status returns the server's health summary.
func (c *Client) Status(ctx context.Context) (*service.Status, error) {
	var status service.Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Metrics returns the server's runtime statistics.
func (c *Client) Metrics(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/metrics", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Health reports whether the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
