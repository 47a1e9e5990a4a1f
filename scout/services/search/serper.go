// Package search wraps the Serper web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scout/scout/utils/logging"
	"scout/scout/utils/types"
)

const (
	defaultEndpoint    = "https://google.serper.dev/search"
	defaultResultCount = 10
)

type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithEndpoint overrides the API endpoint, mainly for tests.
func NewClientWithEndpoint(apiKey, endpoint string) *Client {
	c := NewClient(apiKey)
	c.endpoint = endpoint
	return c
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
}

// Search runs one query and returns the organic results in provider
// order. count caps the number of results; <=0 means the default.
func (c *Client) Search(ctx context.Context, query string, count int) ([]types.SearchResult, error) {
	defer logging.LogDuration(ctx, "search_web")()

	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if count <= 0 {
		count = defaultResultCount
	}

	body, err := json.Marshal(searchRequest{Query: query, Num: count})
	if err != nil {
		return nil, err
	}

	// Manual POST because Serper wants its key in X-API-KEY.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search request failed: %s - %s", resp.Status, string(b))
	}

	var parsed types.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := parsed.Organic
	if len(results) > count {
		results = results[:count]
	}
	return results, nil
}
