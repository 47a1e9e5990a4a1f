// Command-line interface for running research queries without the HTTP server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"scout/scout/agents/configs"
	"scout/scout/agents/core"
	agenttools "scout/scout/agents/tools"
	"scout/scout/config"
	"scout/scout/services/llm"
	"scout/scout/services/ratelimit"
	"scout/scout/services/scraper"
	"scout/scout/services/search"
	"scout/scout/sources/redisdb"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx := context.Background()

	searchClient := search.NewClient(cfg.SerperAPIKey)
	scrapeSvc := scraper.NewService(scraper.NewHTTPFetcher(), cfg.ScrapeConcurrency)
	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey)

	agentCfg := configs.AgentConfig{
		Model:      cfg.LLMModel,
		StepBudget: cfg.AgentStepBudget,
	}.WithDefaults()
	registry := agenttools.NewRegistry(
		agenttools.NewSearchTool(searchClient, agentCfg.MaxSearchResults),
		agenttools.NewScrapeTool(scrapeSvc, agentCfg.MaxScrapeURLs),
	)
	loop := core.NewLoop(llmClient, registry, agentCfg)

	// Admission control is shared with the server when redis is up; the
	// CLI just runs unmetered when it is not.
	var limiter *ratelimit.Limiter
	limitCfg := ratelimit.Config{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		KeyPrefix:   ratelimit.DefaultKeyPrefix + ":cli",
		MaxRetries:  cfg.RateLimitMaxRetries,
	}
	counters, err := redisdb.NewCounterStore(ctx, cfg)
	if err != nil {
		logging.AppLogger.Info("redis unavailable, cli runs unmetered", zap.Error(err))
	} else {
		defer counters.Close()
		limiter = ratelimit.New(counters)
	}

	fmt.Println("Scout research CLI. Type a question, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	run := &session{loop: loop}
	for {
		fmt.Print("scout> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}

		if limiter != nil {
			result := limiter.CheckLimit(ctx, limitCfg)
			if !result.Allowed {
				fmt.Println("rate limited, waiting for the window to clear...")
				allowed, err := result.Retry(ctx)
				if err != nil {
					fmt.Println("interrupted:", err)
					break
				}
				if !allowed {
					fmt.Println("still rate limited, try again later")
					continue
				}
			}
			if err := limiter.RecordHit(ctx, limitCfg.Window, limitCfg.KeyPrefix); err != nil {
				logging.ErrorLogger.Error("cli hit not counted", zap.Error(err))
			}
		}

		if err := run.ask(ctx, line); err != nil {
			fmt.Println("error:", err)
		}
		fmt.Println()
	}
}

// session keeps the conversation across questions so follow-ups work.
type session struct {
	loop    *core.Loop
	history []types.Message
}

func (s *session) ask(ctx context.Context, question string) error {
	s.history = append(s.history, types.Message{Role: "user", Content: question})

	ch, errCh := s.loop.Run(ctx, s.history)
	var answer strings.Builder
	for chunk := range ch {
		fmt.Print(chunk)
		answer.WriteString(chunk)
	}
	if err := <-errCh; err != nil {
		// drop the failed turn so a retry does not replay it
		s.history = s.history[:len(s.history)-1]
		return err
	}
	s.history = append(s.history, types.Message{Role: "assistant", Content: answer.String()})
	return nil
}
