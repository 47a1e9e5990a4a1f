package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	httputils "scout/scout/utils/http"
	"scout/scout/utils/logging"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, Groq, Ollama's compat API) with tool-calling support.
type OpenAIClient struct {
	apiKey  string
	baseURL string
}

func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

type streamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Run executes a single non-streaming completion and returns the full
// assistant message, including any requested tool calls.
func (c *OpenAIClient) Run(ctx context.Context, req ChatRequest) (Message, error) {
	defer logging.LogDuration(ctx, "llm_run")()

	req.Stream = false
	var parsed completionResponse
	err := httputils.PostJSONWithAuth(ctx, c.baseURL+"/chat/completions", c.apiKey, req, &parsed)
	if err != nil {
		return Message{}, fmt.Errorf("llm request failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Message{}, fmt.Errorf("no choices in llm response")
	}
	return parsed.Choices[0].Message, nil
}

// RunStream executes a streaming completion, sending content deltas on
// the returned channel until the stream finishes or ctx is cancelled.
func (c *OpenAIClient) RunStream(ctx context.Context, req ChatRequest) (<-chan string, error) {
	defer logging.LogDuration(ctx, "llm_run_stream")()

	req.Stream = true
	body, err := httputils.PostStream(ctx, c.baseURL+"/chat/completions", c.apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("llm stream request failed: %w", err)
	}

	ch := make(chan string)

	go func() {
		defer func() {
			close(ch)
			body.Close()
		}()

		reader := bufio.NewReader(body)

		for {
			select {
			case <-ctx.Done():
				logging.AppLogger.Info("llm stream context cancelled")
				return
			default:
			}

			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return
				}
				logging.ErrorLogger.Error("llm stream read error", zap.Error(err))
				return
			}

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk streamResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				logging.ErrorLogger.Error("llm stream parse error",
					zap.Error(err), zap.String("raw_line", data))
				continue
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case ch <- choice.Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
