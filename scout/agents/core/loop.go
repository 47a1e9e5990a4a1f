// Package core runs the bounded research loop: the reasoning engine
// schedules tool calls (web search, page scraping) until it produces a
// final answer or the step budget forces one.
package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"scout/scout/agents/configs"
	"scout/scout/agents/tools"
	"scout/scout/services/llm"
	"scout/scout/utils/logging"
	"scout/scout/utils/metrics"
	"scout/scout/utils/types"
)

type Loop struct {
	llm   llm.Client
	tools *tools.Registry
	cfg   configs.AgentConfig
}

func NewLoop(client llm.Client, registry *tools.Registry, cfg configs.AgentConfig) *Loop {
	return &Loop{llm: client, tools: registry, cfg: cfg.WithDefaults()}
}

// Run drives the loop over the given conversation and streams the final
// answer. Each step is one engine turn: tool calls continue the loop,
// plain text ends it. The step budget caps tool-dispatching turns; once
// exhausted the engine is asked to answer with tools withheld, so the
// loop terminates deterministically no matter what the model wants.
func (l *Loop) Run(ctx context.Context, history []types.Message) (<-chan string, <-chan error) {
	ch := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(errCh)
		defer logging.LogDuration(ctx, "agent_loop_run")()

		msgs := make([]llm.Message, 0, len(history)+1)
		msgs = append(msgs, llm.Message{
			Role:    "system",
			Content: configs.SystemInstruction(time.Now(), l.cfg.MaxScrapeURLs),
		})
		for _, m := range history {
			msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
		}

		for step := 0; step < l.cfg.StepBudget; step++ {
			resp, err := l.llm.Run(ctx, llm.ChatRequest{
				Model:    l.cfg.Model,
				Messages: msgs,
				Tools:    l.tools.Definitions(),
			})
			if err != nil {
				errCh <- err
				return
			}

			if len(resp.ToolCalls) == 0 {
				// Terminal turn: the engine answered directly.
				metrics.AgentSteps.Observe(float64(step + 1))
				if resp.Content != "" {
					select {
					case ch <- resp.Content:
					case <-ctx.Done():
						errCh <- ctx.Err()
					}
				}
				return
			}

			msgs = append(msgs, resp)
			for _, call := range resp.ToolCalls {
				logging.AppLogger.Info("tool call",
					zap.Int("step", step+1),
					zap.String("tool", call.Function.Name),
				)
				out := l.tools.Dispatch(ctx, call)
				msgs = append(msgs, llm.Message{
					Role:       "tool",
					ToolCallID: call.ID,
					Name:       call.Function.Name,
					Content:    out,
				})
			}

			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
		}

		// Budget exhausted: force completion. No tools are offered, so
		// the engine can only produce text.
		metrics.AgentSteps.Observe(float64(l.cfg.StepBudget))
		logging.AppLogger.Info("step budget exhausted, forcing final answer",
			zap.Int("budget", l.cfg.StepBudget))

		stream, err := l.llm.RunStream(ctx, llm.ChatRequest{
			Model:    l.cfg.Model,
			Messages: msgs,
			Stream:   true,
		})
		if err != nil {
			errCh <- err
			return
		}
		for chunk := range stream {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return ch, errCh
}
