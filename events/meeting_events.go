package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted by the chat module after a message has been
// durably persisted. The relay consumes it to fan the message out to the
// room's connected members. MemberIDs is the audience snapshot taken at
// publish time; membership can change before the consumer runs.
type MessageSentEvent struct {
	MessageID uint      `json:"message_id"`
	RoomID    string    `json:"room_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"` // "text" or "system"
	MemberIDs []uint    `json:"member_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ParticipantJoinedEvent is emitted when a user joins a room.
type ParticipantJoinedEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ParticipantLeftEvent is emitted when a user leaves a room.
type ParticipantLeftEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomClosedEvent is emitted when a room ends, either by its host or by an
// admin force close. MemberIDs holds the participants as of the moment the
// room closed: closing stamps everyone out, so the audience can only be
// resolved before the close commits.
type RoomClosedEvent struct {
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	Reason    string    `json:"reason,omitempty"`
	MemberIDs []uint    `json:"member_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserForcedOfflineEvent is emitted by the admin module. The relay notifies
// and then closes every channel the user has open.
type UserForcedOfflineEvent struct {
	UserID    uint      `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the meeting domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	ParticipantJoinedV1 = helper.EventDefinition[ParticipantJoinedEvent](
		"room",
		"ParticipantJoined",
		"v1",
	)

	ParticipantLeftV1 = helper.EventDefinition[ParticipantLeftEvent](
		"room",
		"ParticipantLeft",
		"v1",
	)

	RoomClosedV1 = helper.EventDefinition[RoomClosedEvent](
		"room",
		"RoomClosed",
		"v1",
	)

	UserForcedOfflineV1 = helper.EventDefinition[UserForcedOfflineEvent](
		"admin",
		"UserForcedOffline",
		"v1",
	)
)
