package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"

	domain "github.com/example/videomeet/domain/adminlog"
	userdomain "github.com/example/videomeet/domain/user"
	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/auth"
	"github.com/example/videomeet/modules/chat"
	"github.com/example/videomeet/modules/presence"
	"github.com/example/videomeet/modules/recording"
	"github.com/example/videomeet/modules/relay"
	"github.com/example/videomeet/modules/room"
)

// ErrCannotTargetSelf is returned when an admin tries to force themselves offline.
var ErrCannotTargetSelf = errors.New("cannot force yourself offline")

// SystemStatistics is the admin dashboard summary.
type SystemStatistics struct {
	TotalUsers     int64 `json:"total_users"`
	OnlineUsers    int64 `json:"online_users"`
	TotalRooms     int64 `json:"total_rooms"`
	ActiveRooms    int64 `json:"active_rooms"`
	TotalMessages  int64 `json:"total_messages"`
	Connections    int   `json:"connections"`
	Recordings     int64 `json:"recordings"`
	RecordingBytes int64 `json:"recording_bytes"`
}

// UserDetail is a user row augmented with live presence.
type UserDetail struct {
	User   userdomain.User `json:"user"`
	Online bool            `json:"online"`
}

// Service implements administrator operations. Every mutation writes an
// operation log entry.
type Service struct {
	users      *auth.UserRepository
	rooms      *room.Service
	chat       *chat.Service
	presence   *presence.Tracker
	recordings *recording.Service
	registry   *relay.Registry
	logs       *LogRepository
	eventBus   mono.EventBus
}

// NewService creates an admin service over the other modules' services.
func NewService(
	users *auth.UserRepository,
	rooms *room.Service,
	chatSvc *chat.Service,
	tracker *presence.Tracker,
	recordings *recording.Service,
	registry *relay.Registry,
	logs *LogRepository,
) *Service {
	return &Service{
		users:      users,
		rooms:      rooms,
		chat:       chatSvc,
		presence:   tracker,
		recordings: recordings,
		registry:   registry,
		logs:       logs,
	}
}

// SetEventBus receives the EventBus used for force-offline notifications.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// Statistics gathers the dashboard counters.
func (s *Service) Statistics(ctx context.Context) (*SystemStatistics, error) {
	stats := &SystemStatistics{}

	var err error
	if stats.TotalUsers, err = s.users.Count(); err != nil {
		return nil, err
	}
	if stats.TotalRooms, stats.ActiveRooms, err = s.rooms.Counts(ctx); err != nil {
		return nil, err
	}
	if stats.TotalMessages, err = s.chat.MessageCount(ctx); err != nil {
		return nil, err
	}
	if s.presence != nil {
		if stats.OnlineUsers, err = s.presence.OnlineCount(ctx); err != nil {
			return nil, err
		}
	}
	if s.registry != nil {
		stats.Connections = s.registry.ConnectionCount()
	}
	if s.recordings != nil {
		recStats, err := s.recordings.Statistics(ctx)
		if err != nil {
			return nil, err
		}
		stats.Recordings = recStats.TotalCount
		stats.RecordingBytes = recStats.TotalSize
	}
	return stats, nil
}

// ListUsers returns a page of users with their presence state.
func (s *Service) ListUsers(ctx context.Context, page, size int) ([]UserDetail, int64, error) {
	users, total, err := s.users.List(page, size)
	if err != nil {
		return nil, 0, err
	}
	details := make([]UserDetail, 0, len(users))
	for _, u := range users {
		online := false
		if s.presence != nil {
			online, _ = s.presence.IsOnline(ctx, u.ID)
		}
		details = append(details, UserDetail{User: u, Online: online})
	}
	return details, total, nil
}

// GetUser returns one user with presence state.
func (s *Service) GetUser(ctx context.Context, userID uint) (*UserDetail, error) {
	u, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	online := false
	if s.presence != nil {
		online, _ = s.presence.IsOnline(ctx, u.ID)
	}
	return &UserDetail{User: *u, Online: online}, nil
}

// ForceOffline disconnects every session of a user. The relay closes the
// user's channels when it sees the event.
func (s *Service) ForceOffline(ctx context.Context, caller *userdomain.Claims, userID uint, reason string) error {
	if userID == caller.UserID {
		return ErrCannotTargetSelf
	}
	target, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "disconnected by administrator"
	}

	if s.eventBus != nil {
		event := events.UserForcedOfflineEvent{
			UserID:    target.ID,
			Reason:    reason,
			Timestamp: time.Now(),
		}
		if err := events.UserForcedOfflineV1.Publish(s.eventBus, event, nil); err != nil {
			return fmt.Errorf("failed to publish force-offline event: %w", err)
		}
	}
	if s.presence != nil {
		if err := s.presence.SetOffline(ctx, target.ID); err != nil {
			slog.Warn("Failed to clear presence on force offline", "userID", target.ID, "error", err)
		}
	}

	return s.writeLog(ctx, caller, domain.OpForceOffline, "user", fmt.Sprintf("%d", target.ID),
		fmt.Sprintf("forced %s offline: %s", target.Username, reason))
}

// ForceCloseRoom ends a room regardless of who created it. Members get a
// system chat message before the room is closed.
func (s *Service) ForceCloseRoom(ctx context.Context, caller *userdomain.Claims, roomID, reason string) error {
	if reason == "" {
		reason = "meeting closed by administrator"
	}

	if _, err := s.chat.SendSystemMessage(ctx, roomID, reason); err != nil {
		slog.Warn("Failed to announce room closure", "roomID", roomID, "error", err)
	}
	if err := s.rooms.EndRoom(ctx, roomID, caller.UserID, true, reason); err != nil {
		return err
	}

	return s.writeLog(ctx, caller, domain.OpForceCloseRoom, "room", roomID, reason)
}

// ClearChat wipes a room's message history.
func (s *Service) ClearChat(ctx context.Context, caller *userdomain.Claims, roomID string) error {
	if err := s.chat.ClearHistory(ctx, roomID); err != nil {
		return err
	}
	return s.writeLog(ctx, caller, domain.OpClearChat, "room", roomID, "chat history cleared")
}

// DeleteRecording removes a recording on behalf of an admin.
func (s *Service) DeleteRecording(ctx context.Context, caller *userdomain.Claims, recordingID uint) error {
	if s.recordings == nil {
		return recording.ErrRecordingNotFound
	}
	if err := s.recordings.Delete(ctx, recordingID, caller); err != nil {
		return err
	}
	return s.writeLog(ctx, caller, domain.OpDeleteRecording, "recording", fmt.Sprintf("%d", recordingID), "recording deleted")
}

// OperationLogs returns a page of log entries, optionally filtered by type.
func (s *Service) OperationLogs(ctx context.Context, opType string, page, size int) ([]domain.OperationLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return s.logs.List(ctx, opType, page, size)
}

func (s *Service) writeLog(ctx context.Context, caller *userdomain.Claims, opType domain.OperationType, targetType, targetID, detail string) error {
	entry := &domain.OperationLog{
		AdminID:       caller.UserID,
		AdminUsername: caller.Username,
		OperationType: opType,
		TargetType:    targetType,
		TargetID:      targetID,
		Detail:        detail,
		CreatedAt:     time.Now(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		slog.Warn("Failed to write operation log", "type", opType, "error", err)
	}
	return nil
}
