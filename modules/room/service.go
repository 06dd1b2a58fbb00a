package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	domain "github.com/example/videomeet/domain/room"
	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/auth"
)

var (
	// ErrTooManyRooms is returned when the active room cap is reached.
	ErrTooManyRooms = errors.New("active room limit reached")
	// ErrRoomEnded is returned for operations on an ended room.
	ErrRoomEnded = errors.New("room has ended")
	// ErrRoomPassword is returned when the join password is wrong or missing.
	ErrRoomPassword = errors.New("wrong room password")
	// ErrRoomFull is returned when the room is at capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrNotHost is returned when a non-host tries a host-only operation.
	ErrNotHost = errors.New("only the room creator can do this")
	// ErrRoomNameRequired is returned when a room is created without a name.
	ErrRoomNameRequired = errors.New("room name is required")
)

// Config holds room limits.
type Config struct {
	MaxParticipants    int
	MaxConcurrentRooms int
}

// DefaultConfig returns the default room limits.
func DefaultConfig() Config {
	return Config{
		MaxParticipants:    16,
		MaxConcurrentRooms: 100,
	}
}

// Service implements room business logic.
type Service struct {
	repo     *Repository
	hasher   *auth.PasswordHasher
	config   Config
	eventBus mono.EventBus
}

// NewService creates a new room Service.
func NewService(repo *Repository, hasher *auth.PasswordHasher, config Config) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		config: config,
	}
}

// SetEventBus wires the EventBus; events are skipped when unset (tests).
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// CreateRoom creates a room and auto-joins the creator as host.
func (s *Service) CreateRoom(_ context.Context, name, password string, maxParticipants int, creatorID uint, creatorName string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoomNameRequired
	}

	active, err := s.repo.CountActive()
	if err != nil {
		return nil, fmt.Errorf("failed to count active rooms: %w", err)
	}
	if active >= int64(s.config.MaxConcurrentRooms) {
		return nil, ErrTooManyRooms
	}

	if maxParticipants <= 0 || maxParticipants > s.config.MaxParticipants {
		maxParticipants = s.config.MaxParticipants
	}

	rm := &domain.Room{
		RoomID:          uuid.New().String()[:8],
		RoomName:        name,
		CreatorID:       creatorID,
		MaxParticipants: maxParticipants,
		Status:          domain.StatusActive,
		CreatedAt:       time.Now(),
	}

	if password != "" {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash room password: %w", err)
		}
		rm.PasswordHash = hash
	}

	if err := s.repo.Create(rm); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	host := &domain.Participant{
		RoomDBID: rm.ID,
		UserID:   creatorID,
		IsHost:   true,
		JoinedAt: time.Now(),
	}
	if err := s.repo.AddParticipant(host); err != nil {
		return nil, fmt.Errorf("failed to add host participant: %w", err)
	}

	s.publishJoined(rm.RoomID, creatorID, creatorName)
	return rm, nil
}

// GetRoom returns a room by its public identifier.
func (s *Service) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	return s.repo.FindByRoomID(roomID)
}

// JoinRoom adds a user to a room. Joining a room you are already in is a
// no-op, so page reloads never error.
func (s *Service) JoinRoom(_ context.Context, roomID, password string, userID uint, username string) error {
	rm, err := s.repo.FindByRoomID(roomID)
	if err != nil {
		return err
	}

	if rm.Status != domain.StatusActive {
		return ErrRoomEnded
	}

	if rm.HasPassword() {
		if password == "" || !s.hasher.Verify(password, rm.PasswordHash) {
			return ErrRoomPassword
		}
	}

	existing, err := s.repo.FindActiveParticipant(rm.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil
	}

	current, err := s.repo.CountActiveParticipants(rm.ID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if current >= int64(rm.MaxParticipants) {
		return ErrRoomFull
	}

	p := &domain.Participant{
		RoomDBID: rm.ID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := s.repo.AddParticipant(p); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	s.publishJoined(roomID, userID, username)
	return nil
}

// LeaveRoom removes a user from a room. Leaving a room you are not in is a
// no-op.
func (s *Service) LeaveRoom(_ context.Context, roomID string, userID uint, username string) error {
	rm, err := s.repo.FindByRoomID(roomID)
	if err != nil {
		return err
	}

	p, err := s.repo.FindActiveParticipant(rm.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if p == nil {
		return nil
	}

	if err := s.repo.MarkLeft(p); err != nil {
		return fmt.Errorf("failed to mark participant left: %w", err)
	}

	if s.eventBus != nil {
		event := events.ParticipantLeftEvent{
			RoomID:    roomID,
			UserID:    userID,
			Username:  username,
			Timestamp: time.Now(),
		}
		if err := events.ParticipantLeftV1.Publish(s.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish ParticipantLeft event", "error", err)
		}
	}
	return nil
}

// EndRoom ends a room. Only the creator (or an admin, via force=true) may end
// it. Remaining participants are stamped out and a RoomClosed event is
// published.
func (s *Service) EndRoom(_ context.Context, roomID string, userID uint, force bool, reason string) error {
	rm, err := s.repo.FindByRoomID(roomID)
	if err != nil {
		return err
	}

	if rm.Status != domain.StatusActive {
		return ErrRoomEnded
	}

	if !force && rm.CreatorID != userID {
		return ErrNotHost
	}

	// End stamps left_at on every participant, so the closing notice's
	// audience has to be captured first.
	members, err := s.repo.ActiveMemberIDs(rm.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve members: %w", err)
	}

	if err := s.repo.End(rm); err != nil {
		return fmt.Errorf("failed to end room: %w", err)
	}

	if s.eventBus != nil {
		event := events.RoomClosedEvent{
			RoomID:    roomID,
			RoomName:  rm.RoomName,
			Reason:    reason,
			MemberIDs: members,
			Timestamp: time.Now(),
		}
		if err := events.RoomClosedV1.Publish(s.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish RoomClosed event", "error", err)
		}
	}
	return nil
}

// Participants returns the current members of a room.
func (s *Service) Participants(_ context.Context, roomID string) ([]ParticipantInfo, error) {
	rm, err := s.repo.FindByRoomID(roomID)
	if err != nil {
		return nil, err
	}
	return s.repo.ActiveParticipants(rm.ID)
}

// IsMember reports whether a user is currently a member of a room.
func (s *Service) IsMember(_ context.Context, roomID string, userID uint) (bool, error) {
	rm, err := s.repo.FindByRoomID(roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return false, nil
		}
		return false, err
	}
	p, err := s.repo.FindActiveParticipant(rm.ID, userID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// MemberIDs returns the user IDs currently in a room. A missing room yields
// an empty set, not an error; the relay treats it as no audience.
func (s *Service) MemberIDs(_ context.Context, roomID string) ([]uint, error) {
	rm, err := s.repo.FindByRoomID(roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.repo.ActiveMemberIDs(rm.ID)
}

// ListRooms returns a page of rooms, newest first, with the total count.
func (s *Service) ListRooms(_ context.Context, page, size int) ([]domain.Room, int64, error) {
	return s.repo.List(page, size)
}

// ActiveRooms returns all rooms currently in the active state.
func (s *Service) ActiveRooms(_ context.Context) ([]domain.Room, error) {
	return s.repo.ListActive()
}

// Counts returns the total and active room counts.
func (s *Service) Counts(_ context.Context) (total, active int64, err error) {
	if total, err = s.repo.Count(); err != nil {
		return 0, 0, err
	}
	if active, err = s.repo.CountActive(); err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

func (s *Service) publishJoined(roomID string, userID uint, username string) {
	if s.eventBus == nil {
		return
	}
	event := events.ParticipantJoinedEvent{
		RoomID:    roomID,
		UserID:    userID,
		Username:  username,
		Timestamp: time.Now(),
	}
	if err := events.ParticipantJoinedV1.Publish(s.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish ParticipantJoined event", "error", err)
	}
}
