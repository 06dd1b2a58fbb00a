package relay

import (
	"errors"
	"time"
)

// Kind tags an Envelope. The set is closed: anything else is rejected at
// the channel boundary instead of being dispatched by arbitrary string.
type Kind string

const (
	KindChat         Kind = "chat"
	KindPresence     Kind = "presence"
	KindSystem       Kind = "system"
	KindForceOffline Kind = "force_offline"
)

// Presence event names carried by KindPresence envelopes.
const (
	PresenceJoined = "joined"
	PresenceLeft   = "left"
)

// ErrUnknownKind is returned when an envelope carries a kind outside the
// closed set.
var ErrUnknownKind = errors.New("unknown envelope kind")

// Envelope is the single wire format pushed to connected clients.
type Envelope struct {
	Type      Kind      `json:"type"`
	RoomID    string    `json:"room_id,omitempty"`
	MessageID uint      `json:"id,omitempty"`
	UserID    uint      `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content,omitempty"`
	Event     string    `json:"event,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Validate checks the kind against the closed set.
func (e *Envelope) Validate() error {
	switch e.Type {
	case KindChat, KindPresence, KindSystem, KindForceOffline:
		return nil
	default:
		return ErrUnknownKind
	}
}
