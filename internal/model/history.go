package model

import (
	"time"
)

// ChatHistory represents a saved conversation.
type ChatHistory struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the history.
func (h *ChatHistory) Clone() ChatHistory {
	cp := *h
	cp.Messages = make([]Message, len(h.Messages))
	copy(cp.Messages, h.Messages)
	return cp
}
