package room

// Service names registered in the service container.
const (
	ServiceIsMember     = "is-member"
	ServiceGetMemberIDs = "get-member-ids"
)

// IsMemberRequest asks whether a user is currently in a room.
type IsMemberRequest struct {
	RoomID string `json:"room_id"`
	UserID uint   `json:"user_id"`
}

// IsMemberResponse is the membership answer.
type IsMemberResponse struct {
	Member bool `json:"member"`
}

// GetMemberIDsRequest asks for the current member set of a room.
type GetMemberIDsRequest struct {
	RoomID string `json:"room_id"`
}

// GetMemberIDsResponse carries the member user IDs.
type GetMemberIDsResponse struct {
	UserIDs []uint `json:"user_ids"`
}
