package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"scout/scout/services/llm"
	"scout/scout/utils/jsonutils"
	"scout/scout/utils/types"
)

// PageScraper is the concurrent multi-URL retrieval capability consumed
// by ScrapeTool.
type PageScraper interface {
	ScrapePages(ctx context.Context, urls []string) (types.CrawlBatchResult, error)
}

type ScrapeTool struct {
	scraper PageScraper
	maxURLs int
}

func NewScrapeTool(scraper PageScraper, maxURLs int) *ScrapeTool {
	if maxURLs <= 0 {
		maxURLs = 6
	}
	return &ScrapeTool{scraper: scraper, maxURLs: maxURLs}
}

func (t *ScrapeTool) Name() string { return "scrape_pages" }

func (t *ScrapeTool) Definition() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        t.Name(),
			Description: "Fetch several pages concurrently and return their readable text. Prefer URLs from different domains. Individual URLs may fail; check each entry.",
			Parameters: json.RawMessage(fmt.Sprintf(`{
				"type": "object",
				"properties": {
					"urls": {
						"type": "array",
						"items": {"type": "string"},
						"minItems": 1,
						"maxItems": %d,
						"description": "Absolute http(s) URLs to fetch."
					}
				},
				"required": ["urls"]
			}`, t.maxURLs)),
		},
	}
}

type scrapeArgs struct {
	URLs []string `json:"urls"`
}

// scrapePayload carries both the raw batch and the flattened sources so
// the model never has to branch on the batch flag.
type scrapePayload struct {
	Success bool                `json:"success"`
	Results []types.CrawlResult `json:"results"`
	Sources []types.Source      `json:"sources"`
}

func (t *ScrapeTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var parsed scrapeArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "", fmt.Errorf("invalid scrape_pages arguments: %w", err)
	}
	if len(parsed.URLs) == 0 {
		return "", fmt.Errorf("scrape_pages requires at least one url")
	}
	if len(parsed.URLs) > t.maxURLs {
		parsed.URLs = parsed.URLs[:t.maxURLs]
	}
	for _, raw := range parsed.URLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return "", fmt.Errorf("scrape_pages urls must be absolute http(s) urls, got %q", raw)
		}
	}

	batch, err := t.scraper.ScrapePages(ctx, parsed.URLs)
	if err != nil {
		return "", fmt.Errorf("scrape failed: %w", err)
	}

	return jsonutils.ToJSON(scrapePayload{
		Success: batch.Success,
		Results: batch.Results,
		Sources: batch.Sources(),
	}), nil
}
