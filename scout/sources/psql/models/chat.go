package models

import "time"

type Chat struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    int       `gorm:"index;not null" json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string    `gorm:"index;type:uuid;not null" json:"chat_id"`
	Position  int       `gorm:"not null" json:"position"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
