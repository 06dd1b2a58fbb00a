package room

import "time"

// Status of a meeting room.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Room is a meeting room. RoomID is the short public identifier handed to
// clients and used as the media SDK channel name; ID is the database key.
type Room struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	RoomID          string     `gorm:"uniqueIndex;size:16" json:"room_id"`
	RoomName        string     `gorm:"size:128" json:"room_name"`
	CreatorID       uint       `gorm:"index" json:"creator_id"`
	PasswordHash    string     `gorm:"size:128" json:"-"`
	MaxParticipants int        `json:"max_participants"`
	Status          Status     `gorm:"size:16;index;default:active" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool {
	return r.PasswordHash != ""
}

// Participant records a user's presence in a room. LeftAt is nil while the
// user is still a member; membership lookups filter on it.
type Participant struct {
	ID       uint       `gorm:"primaryKey" json:"-"`
	RoomDBID uint       `gorm:"index:idx_room_user" json:"-"`
	UserID   uint       `gorm:"index:idx_room_user" json:"user_id"`
	IsHost   bool       `json:"is_host"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}
