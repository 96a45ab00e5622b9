package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/hikari-ai/chat-assistant/internal/model"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateTurns validates the message sequence of a chat request.
func ValidateTurns(turns []model.Turn) error {
	if len(turns) == 0 {
		return errors.New("messages cannot be empty")
	}
	for _, turn := range turns {
		switch turn.Role {
		case model.RoleUser, model.RoleAssistant, model.RoleSystem:
		default:
			return errors.New("unknown message role")
		}
		if err := ValidateMessageContent(turn.Content); err != nil {
			return err
		}
	}
	return nil
}
