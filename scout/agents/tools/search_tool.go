package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scout/scout/services/llm"
	"scout/scout/utils/jsonutils"
	"scout/scout/utils/types"
)

// Searcher is the web search capability consumed by SearchTool.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]types.SearchResult, error)
}

type SearchTool struct {
	searcher   Searcher
	maxResults int
}

func NewSearchTool(searcher Searcher, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearchTool{searcher: searcher, maxResults: maxResults}
}

func (t *SearchTool) Name() string { return "search_web" }

func (t *SearchTool) Definition() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        t.Name(),
			Description: "Search the web. Returns ranked results with title, link, snippet and, when known, publication date.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "The search query."},
					"result_count": {"type": "integer", "description": "How many results to return.", "minimum": 1}
				},
				"required": ["query"]
			}`),
		},
	}
}

type searchArgs struct {
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
}

type searchPayload struct {
	Results []types.SearchResult `json:"results"`
}

func (t *SearchTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var parsed searchArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "", fmt.Errorf("invalid search_web arguments: %w", err)
	}
	parsed.Query = strings.TrimSpace(parsed.Query)
	if parsed.Query == "" {
		return "", fmt.Errorf("search_web requires a non-empty query")
	}
	if parsed.ResultCount <= 0 || parsed.ResultCount > t.maxResults {
		parsed.ResultCount = t.maxResults
	}

	results, err := t.searcher.Search(ctx, parsed.Query, parsed.ResultCount)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return jsonutils.ToJSON(searchPayload{Results: results}), nil
}
