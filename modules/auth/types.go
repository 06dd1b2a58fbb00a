package auth

import (
	"time"

	domain "github.com/example/videomeet/domain/user"
)

// Service names registered in the service container.
const (
	ServiceValidateToken = "validate-token"
	ServiceGetUser       = "get-user"
)

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool        `json:"valid"`
	UserID   uint        `json:"user_id,omitempty"`
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID uint `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	ID        uint            `json:"id"`
	Username  string          `json:"username"`
	Nickname  string          `json:"nickname"`
	UserType  domain.UserType `json:"user_type"`
	Role      domain.Role     `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}
