package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"golang.org/x/sync/singleflight"

	domain "github.com/example/videomeet/domain/chat"
	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/room"
)

// System sender identity used for join/leave/close notices.
const (
	systemUserID   = 0
	systemUsername = "system"
)

// Service accepts chat-send requests, persists them and announces them on
// the event bus for the relay to fan out. Persistence always completes
// before any delivery is attempted; delivery failures never reach the
// sender.
type Service struct {
	repo       *Repository
	cache      *HistoryCache
	membership room.MembershipPort
	eventBus   mono.EventBus
	group      singleflight.Group
}

// NewService creates a new chat Service. cache may be nil (no Redis
// configured); history is then served straight from the database.
func NewService(repo *Repository, cache *HistoryCache, membership room.MembershipPort) *Service {
	return &Service{
		repo:       repo,
		cache:      cache,
		membership: membership,
	}
}

// SetEventBus wires the EventBus; without it messages are persisted but not
// delivered (tests).
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// SendMessage validates, persists and announces a chat message. It returns
// the persisted message with its server-assigned ID and timestamp regardless
// of delivery outcome to any individual recipient.
func (s *Service) SendMessage(ctx context.Context, roomID string, senderID uint, senderName, content string) (*domain.Message, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return nil, err
	}

	member, err := s.membership.IsMember(ctx, roomID, senderID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup failed: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}

	return s.persistAndAnnounce(ctx, &domain.Message{
		RoomID:    roomID,
		UserID:    senderID,
		Username:  senderName,
		Content:   content,
		Type:      domain.TypeText,
		Timestamp: time.Now(),
	})
}

// SendSystemMessage persists and announces a system notice in a room. It
// skips the membership check: the system is not a member of anything.
func (s *Service) SendSystemMessage(ctx context.Context, roomID, content string) (*domain.Message, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return nil, err
	}

	return s.persistAndAnnounce(ctx, &domain.Message{
		RoomID:    roomID,
		UserID:    systemUserID,
		Username:  systemUsername,
		Content:   content,
		Type:      domain.TypeSystem,
		Timestamp: time.Now(),
	})
}

func (s *Service) persistAndAnnounce(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if err := s.repo.Create(msg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Push(ctx, msg); err != nil {
			slog.Warn("Failed to cache message", "roomID", msg.RoomID, "error", err)
		}
	}

	if s.eventBus != nil {
		// Freeze the audience now. The consumer runs later and membership
		// may have changed by then, a room close in particular stamps
		// everyone out. A failed lookup leaves MemberIDs nil and the relay
		// resolves the audience itself.
		members, err := s.membership.MemberIDs(ctx, msg.RoomID)
		if err != nil {
			slog.Warn("Failed to resolve audience", "roomID", msg.RoomID, "error", err)
		}
		event := events.MessageSentEvent{
			MessageID: msg.ID,
			RoomID:    msg.RoomID,
			UserID:    msg.UserID,
			Username:  msg.Username,
			Content:   msg.Content,
			Kind:      msg.Type,
			MemberIDs: members,
			Timestamp: msg.Timestamp,
		}
		if err := events.MessageSentV1.Publish(s.eventBus, event, nil); err != nil {
			// Delivery is best-effort; the message is already durable
			slog.Warn("Failed to publish MessageSent event", "roomID", msg.RoomID, "error", err)
		}
	}

	return msg, nil
}

// History returns the most recent messages of a room, oldest first. Reads
// are served from the Redis tail when it covers the request; otherwise one
// database fetch per room runs at a time and repopulates the cache.
func (s *Service) History(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	limit = ClampHistoryLimit(limit)

	if s.cache != nil && limit <= historyMaxSize {
		cached, err := s.cache.Recent(ctx, roomID, limit)
		if err != nil {
			slog.Warn("History cache read failed", "roomID", roomID, "error", err)
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	result, err, _ := s.group.Do(roomID, func() (any, error) {
		msgs, err := s.repo.History(roomID, limit)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && len(msgs) > 0 {
			if err := s.cache.Fill(ctx, roomID, msgs); err != nil {
				slog.Warn("History cache fill failed", "roomID", roomID, "error", err)
			}
		}
		return msgs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return result.([]domain.Message), nil
}

// MessageCount returns the total number of stored messages.
func (s *Service) MessageCount(_ context.Context) (int64, error) {
	return s.repo.Count()
}

// ClearHistory deletes a room's message history from both stores.
func (s *Service) ClearHistory(ctx context.Context, roomID string) error {
	if err := s.repo.Clear(roomID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Clear(ctx, roomID); err != nil {
			slog.Warn("History cache clear failed", "roomID", roomID, "error", err)
		}
	}
	return nil
}
