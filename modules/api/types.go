package api

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GuestLoginRequest represents a guest login request.
type GuestLoginRequest struct {
	Nickname string `json:"nickname"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents an authentication token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// LoginResponse bundles the authenticated user with their tokens.
type LoginResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	UserType string `json:"user_type"`
	Role     string `json:"role"`
	TokenResponse
}

// CreateRoomRequest represents a room creation request.
type CreateRoomRequest struct {
	RoomName        string `json:"room_name"`
	Password        string `json:"password"`
	MaxParticipants int    `json:"max_participants"`
}

// JoinRoomRequest represents a room join request.
type JoinRoomRequest struct {
	Password string `json:"password"`
}

// SendMessageRequest represents a chat message send request.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// RTCTokenResponse carries a media token for joining the media channel.
type RTCTokenResponse struct {
	Token     string `json:"token"`
	AppID     string `json:"app_id"`
	Channel   string `json:"channel"`
	UID       uint   `json:"uid"`
	ExpiresIn int64  `json:"expires_in"`
}

// StopRecordingRequest carries the trailing metadata of an upload.
type StopRecordingRequest struct {
	Resolution string `json:"resolution"`
}

// ForceOfflineRequest represents an admin force-offline request.
type ForceOfflineRequest struct {
	Reason string `json:"reason"`
}

// CloseRoomRequest represents an admin room close request.
type CloseRoomRequest struct {
	Reason string `json:"reason"`
}

// PageResponse wraps a paginated listing.
type PageResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// OnlineUsersResponse lists the users currently online.
type OnlineUsersResponse struct {
	UserIDs []uint `json:"user_ids"`
	Count   int    `json:"count"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
