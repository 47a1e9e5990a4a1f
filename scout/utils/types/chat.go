// scout/utils/types/chat.go
package types

// Message is one turn of a conversation as exchanged with clients and
// stored per chat. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages  []Message `json:"messages"`
	ChatID    string    `json:"chat_id,omitempty"`
	IsNewChat bool      `json:"is_new_chat,omitempty"`
}

// For the chats panel. LastActivity: RFC3339 string.
type ChatSummary struct {
	ChatID          string `json:"chat_id"`
	Title           string `json:"title"`
	LastMessage     string `json:"last_message"`
	LastMessageRole string `json:"last_message_role"`
	LastActivity    string `json:"last_activity"`
}
