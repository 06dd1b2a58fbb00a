package user

import "time"

// UserType distinguishes registered accounts from throwaway guest accounts.
type UserType string

const (
	TypeRegistered UserType = "registered"
	TypeGuest      UserType = "guest"
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a platform account. Guests are real rows too: they get a generated
// username and no password hash.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64" json:"username"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	Nickname     string    `gorm:"size:64" json:"nickname"`
	AvatarURL    string    `gorm:"size:256" json:"avatar_url,omitempty"`
	UserType     UserType  `gorm:"size:16;default:registered" json:"user_type"`
	Role         Role      `gorm:"size:16;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName returns the nickname when set, falling back to the username.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}
