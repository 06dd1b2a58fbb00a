package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	domain "github.com/example/videomeet/domain/user"
	"github.com/example/videomeet/modules/auth"
	"github.com/example/videomeet/modules/presence"
	"github.com/example/videomeet/modules/relay"
)

// MeetingSocket handles the per-user meeting socket. Each accepted
// connection becomes a relay channel; a user may hold several at once.
type MeetingSocket struct {
	registry *relay.Registry
	presence *presence.Tracker
	logger   *slog.Logger
}

// NewMeetingSocket creates the socket handler.
func NewMeetingSocket(registry *relay.Registry, tracker *presence.Tracker) *MeetingSocket {
	return &MeetingSocket{
		registry: registry,
		presence: tracker,
		logger:   slog.Default(),
	}
}

// UpgradeMiddleware authenticates the handshake. Browsers cannot set an
// Authorization header on a WebSocket dial, so the token rides in the
// "token" query parameter.
func UpgradeMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token query parameter is required",
			})
		}

		claims, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// Handle runs one connection until the peer goes away. Outbound frames
// come from the relay; inbound frames only serve as liveness signals.
func (s *MeetingSocket) Handle(c *websocket.Conn) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	if !ok {
		c.Close()
		return
	}

	// The request context dies with the upgrade, so presence calls use a
	// background context for the life of the connection.
	ctx := context.Background()

	ch := relay.NewChannel(claims.UserID, c)
	s.registry.Register(ch)
	if s.presence != nil {
		if err := s.presence.SetOnline(ctx, claims.UserID); err != nil {
			s.logger.Warn("Failed to mark user online", "userID", claims.UserID, "error", err)
		}
	}

	s.logger.Info("Meeting socket connected", "userID", claims.UserID, "username", claims.Username)

	defer func() {
		s.registry.Unregister(ch)
		ch.Close()
		if s.presence != nil && len(s.registry.ChannelsFor(claims.UserID)) == 0 {
			if err := s.presence.SetOffline(ctx, claims.UserID); err != nil {
				s.logger.Warn("Failed to mark user offline", "userID", claims.UserID, "error", err)
			}
		}
		s.logger.Info("Meeting socket disconnected", "userID", claims.UserID)
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Meeting socket error", "userID", claims.UserID, "error", err)
			}
			return
		}
		// Any inbound frame counts as a heartbeat.
		if s.presence != nil {
			if err := s.presence.Refresh(ctx, claims.UserID); err != nil {
				s.logger.Warn("Failed to refresh presence", "userID", claims.UserID, "error", err)
			}
		}
	}
}
