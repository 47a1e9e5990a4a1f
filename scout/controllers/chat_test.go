package controllers

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/scout/agents/configs"
	"scout/scout/agents/core"
	"scout/scout/agents/tools"
	"scout/scout/services/llm"
	"scout/scout/utils/types"
)

// streamingEngine burns its single tool turn and then streams chunks,
// stopping on ctx like the real client does.
type streamingEngine struct {
	chunks []string
}

func (e *streamingEngine) Run(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	return llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{{
			ID:       "call-1",
			Type:     "function",
			Function: llm.FunctionCall{Name: "search_web", Arguments: `{"query":"x"}`},
		}},
	}, nil
}

func (e *streamingEngine) RunStream(ctx context.Context, req llm.ChatRequest) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		for _, c := range e.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func TestResearchStreamStopsWhenReaderGone(t *testing.T) {
	engine := &streamingEngine{chunks: []string{"one ", "two ", "three"}}
	loop := core.NewLoop(engine, tools.NewRegistry(), configs.AgentConfig{Model: "test", StepBudget: 1})
	ctrl := NewChatController(nil, loop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chatID, ch, errCh := ctrl.ResearchStream(ctx, 1, types.ChatRequest{
		Messages: []types.Message{{Role: "user", Content: "q"}},
	})
	require.NotEmpty(t, chatID)

	assert.Equal(t, "one ", <-ch)

	// Stop reading and cancel, the way a disconnected client does. The
	// stream must wind down instead of blocking on the abandoned channel.
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				return
			}
			assert.ErrorIs(t, err, context.Canceled)
		case <-deadline:
			t.Fatal("stream did not shut down after cancellation")
		}
	}
}

func TestResearchStreamRejectsEmptyMessages(t *testing.T) {
	engine := &streamingEngine{}
	loop := core.NewLoop(engine, tools.NewRegistry(), configs.AgentConfig{Model: "test", StepBudget: 1})
	ctrl := NewChatController(nil, loop)

	chatID, ch, errCh := ctrl.ResearchStream(context.Background(), 1, types.ChatRequest{})
	require.NotEmpty(t, chatID)

	_, open := <-ch
	assert.False(t, open)
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messages must not be empty")
}

func TestChatTitleTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("é", titleMaxLen+20)
	got := chatTitle([]types.Message{{Role: "user", Content: long}})
	assert.Equal(t, strings.Repeat("é", titleMaxLen), got)
	assert.True(t, utf8.ValidString(got))
}

func TestChatTitleFallsBack(t *testing.T) {
	got := chatTitle([]types.Message{{Role: "assistant", Content: "hi"}})
	assert.Equal(t, "Untitled research", got)
}
