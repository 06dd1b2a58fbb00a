package chat

import "time"

// Message kinds. System messages carry join/leave/room-closed notices.
const (
	TypeText   = "text"
	TypeSystem = "system"
)

// Message is an immutable chat message. The autoincrement ID doubles as the
// per-room ordering key: history is served in ID order.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    string    `gorm:"index;size:16" json:"room_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `gorm:"size:64" json:"username"`
	Content   string    `gorm:"size:4096" json:"content"`
	Type      string    `gorm:"size:16;default:text" json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
