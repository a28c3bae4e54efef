package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the hosted Firecrawl API endpoint.
const DefaultBaseURL = "https://api.firecrawl.dev"

// Client is a minimal Firecrawl v1 REST client covering the endpoints the
// toolkit needs: search, scrape, map and crawl.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Firecrawl client for the given API key.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

// Document is a scraped page in the requested formats.
type Document struct {
	Markdown string         `json:"markdown,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Links    []string       `json:"links,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchHit is one web search result.
type SearchHit struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Markdown    string `json:"markdown,omitempty"`
}

type searchResponse struct {
	Success bool        `json:"success"`
	Data    []SearchHit `json:"data"`
	Warning string      `json:"warning,omitempty"`
}

type scrapeResponse struct {
	Success bool     `json:"success"`
	Data    Document `json:"data"`
}

type mapResponse struct {
	Success bool     `json:"success"`
	Links   []string `json:"links"`
}

type crawlStartResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type crawlStatusResponse struct {
	Status    string     `json:"status"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Data      []Document `json:"data"`
}

// Search runs a web search returning at most limit hits.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	var out searchResponse
	err := c.post(ctx, "/v1/search", map[string]any{
		"query": query,
		"limit": limit,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("firecrawl search failed: %s", out.Warning)
	}
	return out.Data, nil
}

// Scrape fetches a single page in the requested formats.
func (c *Client) Scrape(ctx context.Context, url string, formats []string) (*Document, error) {
	var out scrapeResponse
	err := c.post(ctx, "/v1/scrape", map[string]any{
		"url":     url,
		"formats": formats,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("firecrawl scrape failed for %s", url)
	}
	return &out.Data, nil
}

// MapURL discovers up to limit URLs reachable from the given site.
func (c *Client) MapURL(ctx context.Context, url string, limit int) ([]string, error) {
	var out mapResponse
	err := c.post(ctx, "/v1/map", map[string]any{
		"url":   url,
		"limit": limit,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("firecrawl map failed for %s", url)
	}
	return out.Links, nil
}

// Crawl starts a bounded crawl and polls until it completes or ctx is done.
func (c *Client) Crawl(ctx context.Context, url string, limit int, formats []string) ([]Document, error) {
	var started crawlStartResponse
	err := c.post(ctx, "/v1/crawl", map[string]any{
		"url":   url,
		"limit": limit,
		"scrapeOptions": map[string]any{
			"formats": formats,
		},
	}, &started)
	if err != nil {
		return nil, err
	}
	if !started.Success || started.ID == "" {
		return nil, fmt.Errorf("firecrawl crawl failed to start for %s", url)
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var status crawlStatusResponse
		if err := c.get(ctx, "/v1/crawl/"+started.ID, &status); err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			return status.Data, nil
		case "failed", "cancelled":
			return nil, fmt.Errorf("firecrawl crawl %s: %s", started.ID, status.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("firecrawl %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(string(data), 200))
	}
	return json.Unmarshal(data, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
