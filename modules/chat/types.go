package chat

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Validation constants.
const (
	MaxMessageLength    = 4096
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Validation and authorization errors.
var (
	ErrEmptyMessage   = errors.New("message content cannot be empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrMessageInvalid = errors.New("message contains invalid characters")
	ErrNotMember      = errors.New("sender is not a member of the room")
)

// ValidateContent trims and validates message content, returning the trimmed
// form. Validation failures happen before any persistence or delivery.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if len(content) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return "", ErrMessageInvalid
	}
	return content, nil
}

// ClampHistoryLimit normalizes a client-supplied history page size.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
