// scout/controllers/chat.go
package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"scout/scout/agents/core"
	"scout/scout/sources/psql/dao"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"
)

const titleMaxLen = 80

type ChatController struct {
	chatDAO *dao.ChatDAO
	loop    *core.Loop
}

func NewChatController(chatDAO *dao.ChatDAO, loop *core.Loop) *ChatController {
	return &ChatController{chatDAO: chatDAO, loop: loop}
}

// ResearchStream runs the research loop over the submitted conversation
// and streams the answer. The full history, including the new assistant
// turn, is persisted once the stream finishes.
func (c *ChatController) ResearchStream(ctx context.Context, userID int, req types.ChatRequest) (string, chan string, chan error) {
	ch := make(chan string)
	errCh := make(chan error, 1)

	chatID := req.ChatID
	if chatID == "" || req.IsNewChat {
		chatID = c.chatDAO.NewChatID()
	}

	if len(req.Messages) == 0 {
		errCh <- fmt.Errorf("messages must not be empty")
		close(ch)
		close(errCh)
		return chatID, ch, errCh
	}

	loopCh, loopErrCh := c.loop.Run(ctx, req.Messages)

	go func() {
		defer close(ch)
		defer close(errCh)

		var answer strings.Builder
		for chunk := range loopCh {
			answer.WriteString(chunk)
			// The reader may stop consuming mid-stream (client
			// disconnect); never block on a send past cancellation.
			select {
			case ch <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := <-loopErrCh; err != nil {
			errCh <- err
			return
		}
		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		history := append([]types.Message{}, req.Messages...)
		history = append(history, types.Message{Role: "assistant", Content: answer.String()})

		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.chatDAO.UpsertChat(saveCtx, chatID, userID, chatTitle(req.Messages)); err != nil {
			logging.ErrorLogger.Error("chat upsert failed",
				zap.String("chat_id", chatID), zap.Error(err))
			return
		}
		if err := c.chatDAO.ReplaceMessages(saveCtx, chatID, userID, history); err != nil {
			logging.ErrorLogger.Error("chat history not saved",
				zap.String("chat_id", chatID), zap.Error(err))
		}
	}()

	return chatID, ch, errCh
}

func (c *ChatController) ListChats(ctx context.Context, userID int) ([]types.ChatSummary, error) {
	return c.chatDAO.ListChats(ctx, userID)
}

func (c *ChatController) GetMessages(ctx context.Context, userID int, chatID string) ([]types.Message, error) {
	return c.chatDAO.GetMessages(ctx, chatID, userID)
}

func (c *ChatController) DeleteChat(ctx context.Context, userID int, chatID string) error {
	return c.chatDAO.DeleteChat(ctx, chatID, userID)
}

func chatTitle(messages []types.Message) string {
	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		title := strings.TrimSpace(msg.Content)
		// Truncate on runes so a multibyte character is never split.
		if runes := []rune(title); len(runes) > titleMaxLen {
			title = string(runes[:titleMaxLen])
		}
		if title != "" {
			return title
		}
	}
	return "Untitled research"
}
