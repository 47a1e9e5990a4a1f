package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scout/scout/sources/psql/models"
	"scout/scout/utils/types"
)

type ChatDAO struct {
	db *gorm.DB
}

func NewChatDAO(db *gorm.DB) *ChatDAO {
	return &ChatDAO{db: db}
}

func (dao *ChatDAO) NewChatID() string {
	return uuid.NewString()
}

func (dao *ChatDAO) UpsertChat(ctx context.Context, chatID string, userID int, title string) error {
	chat := models.Chat{
		ID:     chatID,
		UserID: userID,
		Title:  title,
	}
	return dao.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&chat).Error
}

// ReplaceMessages rewrites the full message history of a chat in one
// transaction so a partially written history is never observable.
func (dao *ChatDAO) ReplaceMessages(ctx context.Context, chatID string, userID int, messages []types.Message) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("chat not found or forbidden")
		}
		if err != nil {
			return err
		}

		if err := tx.Where("chat_id = ?", chatID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}

		rows := make([]models.ChatMessage, 0, len(messages))
		for i, msg := range messages {
			rows = append(rows, models.ChatMessage{
				ChatID:   chatID,
				Position: i,
				Role:     msg.Role,
				Content:  msg.Content,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (dao *ChatDAO) GetMessages(ctx context.Context, chatID string, userID int) ([]types.Message, error) {
	var chat models.Chat
	err := dao.db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chat not found or forbidden")
	}
	if err != nil {
		return nil, err
	}

	var rows []models.ChatMessage
	err = dao.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("position asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	messages := make([]types.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, types.Message{Role: row.Role, Content: row.Content})
	}
	return messages, nil
}

func (dao *ChatDAO) ListChats(ctx context.Context, userID int) ([]types.ChatSummary, error) {
	var chats []models.Chat
	err := dao.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]types.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := types.ChatSummary{
			ChatID:       chat.ID,
			Title:        chat.Title,
			LastActivity: chat.UpdatedAt.Format(time.RFC3339),
		}

		var last models.ChatMessage
		err := dao.db.WithContext(ctx).
			Where("chat_id = ?", chat.ID).
			Order("position desc").
			First(&last).Error
		if err == nil {
			summary.LastMessage = last.Content
			summary.LastMessageRole = last.Role
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (dao *ChatDAO) DeleteChat(ctx context.Context, chatID string, userID int) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", chatID, userID).Delete(&models.Chat{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("chat not found or forbidden")
		}
		return tx.Where("chat_id = ?", chatID).Delete(&models.ChatMessage{}).Error
	})
}
