// Package model defines data structures for the chat assistant.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single conversation turn. Messages are immutable
// once created; their position in the owning history is their only identity.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is the wire form of a message sent to the completion endpoint.
// Timestamps are stripped before the sequence leaves the client.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnsOf converts a message sequence to its wire form.
func TurnsOf(messages []Message) []Turn {
	turns := make([]Turn, len(messages))
	for i, msg := range messages {
		turns[i] = Turn{Role: msg.Role, Content: msg.Content}
	}
	return turns
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Messages []Turn `json:"messages"`
}

// ChatResponse is the success response for POST /api/chat.
type ChatResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the failure response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
