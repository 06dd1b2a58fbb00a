package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// MembershipPort is the read-only room-membership lookup the chat relay
// consumes. It deliberately exposes nothing about join/leave bookkeeping.
type MembershipPort interface {
	IsMember(ctx context.Context, roomID string, userID uint) (bool, error)
	MemberIDs(ctx context.Context, roomID string) ([]uint, error)
}

// MembershipAdapter implements MembershipPort using the service container.
type MembershipAdapter struct {
	container mono.ServiceContainer
}

// NewMembershipAdapter creates a new MembershipAdapter.
func NewMembershipAdapter(container mono.ServiceContainer) *MembershipAdapter {
	return &MembershipAdapter{container: container}
}

// IsMember reports whether a user is currently in a room.
func (a *MembershipAdapter) IsMember(ctx context.Context, roomID string, userID uint) (bool, error) {
	req := IsMemberRequest{RoomID: roomID, UserID: userID}
	var resp IsMemberResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceIsMember,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("is-member request failed: %w", err)
	}
	return resp.Member, nil
}

// MemberIDs returns the user IDs currently in a room.
func (a *MembershipAdapter) MemberIDs(ctx context.Context, roomID string) ([]uint, error) {
	req := GetMemberIDsRequest{RoomID: roomID}
	var resp GetMemberIDsResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetMemberIDs,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-member-ids request failed: %w", err)
	}
	return resp.UserIDs, nil
}
