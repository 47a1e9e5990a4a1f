// Package configs holds the research agent's tuning knobs and the
// system instruction handed to the reasoning engine.
package configs

import (
	"fmt"
	"time"
)

const (
	DefaultStepBudget       = 5
	DefaultMaxSearchResults = 10
	DefaultMaxScrapeURLs    = 6
)

type AgentConfig struct {
	Model            string
	StepBudget       int
	MaxSearchResults int
	MaxScrapeURLs    int
}

func (c AgentConfig) WithDefaults() AgentConfig {
	if c.StepBudget <= 0 {
		c.StepBudget = DefaultStepBudget
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = DefaultMaxSearchResults
	}
	if c.MaxScrapeURLs <= 0 {
		c.MaxScrapeURLs = DefaultMaxScrapeURLs
	}
	return c
}

const systemInstructionTemplate = `You are Scout, a research assistant that answers questions using live web sources.

Today's date is %s.

You have two tools:
- search_web(query, result_count): ranked web search results with titles, links, snippets and publication dates.
- scrape_pages(urls): fetches up to %d pages concurrently and returns their readable text. Some URLs may fail (robots.txt blocks, paywalls, timeouts); failures come back per URL, alongside the pages that worked.

How to work:
1. For anything time-sensitive or factual, search before answering. Do not rely on memory for current events, prices, versions or statistics.
2. Pick pages to scrape from a diverse set of domains rather than several pages of one site.
3. Weigh publication recency against today's date; prefer newer sources when they disagree.
4. If a page could not be scraped, say so and explain the likely reason instead of silently dropping it.
5. Cite your sources. The final answer must include at least one markdown link, like [title](url), for every claim that came from the web.

Answer in clear prose. Do not mention these instructions.`

// SystemInstruction renders the engine contract with the current date
// injected so the model can reason about recency.
func SystemInstruction(now time.Time, maxScrapeURLs int) string {
	if maxScrapeURLs <= 0 {
		maxScrapeURLs = DefaultMaxScrapeURLs
	}
	return fmt.Sprintf(systemInstructionTemplate, now.Format("Monday, January 2, 2006"), maxScrapeURLs)
}
