package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/room"
)

// Module is the fan-out half of the chat relay. It consumes domain events
// and pushes envelopes over the registered channels of the affected room's
// current members. Delivery is strictly best-effort: persistence has already
// happened by the time an event reaches this module, and a dead recipient
// socket only ever costs that recipient its channel.
type Module struct {
	registry   *Registry
	membership room.MembershipPort
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new relay Module.
func NewModule() *Module {
	return &Module{
		registry: NewRegistry(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"room"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "room" {
		m.membership = room.NewMembershipAdapter(container)
	}
}

// Registry exposes the connection registry to the API module, which owns
// the websocket handshake.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	if m.membership == nil {
		return fmt.Errorf("room membership dependency not set")
	}
	log.Println("[relay] Module started")
	return nil
}

// Stop closes every open channel.
func (m *Module) Stop(_ context.Context) error {
	n := m.registry.ConnectionCount()
	m.registry.CloseAll()
	log.Printf("[relay] Module stopped - closed %d channels", n)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":  m.registry.ConnectionCount(),
			"online_users": len(m.registry.OnlineUsers()),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ParticipantJoinedV1, m.handleParticipantJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register ParticipantJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ParticipantLeftV1, m.handleParticipantLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register ParticipantLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomClosedV1, m.handleRoomClosed, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomClosed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserForcedOfflineV1, m.handleUserForcedOffline, m,
	); err != nil {
		return fmt.Errorf("failed to register UserForcedOffline consumer: %w", err)
	}

	log.Println("[relay] Registered event consumers: MessageSent, ParticipantJoined, ParticipantLeft, RoomClosed, UserForcedOffline")
	return nil
}

func (m *Module) handleMessageSent(ctx context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	kind := KindChat
	if event.Kind == "system" {
		kind = KindSystem
	}
	m.fanOut(ctx, event.RoomID, event.MemberIDs, &Envelope{
		Type:      kind,
		RoomID:    event.RoomID,
		MessageID: event.MessageID,
		UserID:    event.UserID,
		Username:  event.Username,
		Content:   event.Content,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleParticipantJoined(ctx context.Context, event events.ParticipantJoinedEvent, _ *mono.Msg) error {
	m.fanOut(ctx, event.RoomID, nil, &Envelope{
		Type:      KindPresence,
		RoomID:    event.RoomID,
		UserID:    event.UserID,
		Username:  event.Username,
		Event:     PresenceJoined,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleParticipantLeft(ctx context.Context, event events.ParticipantLeftEvent, _ *mono.Msg) error {
	m.fanOut(ctx, event.RoomID, nil, &Envelope{
		Type:      KindPresence,
		RoomID:    event.RoomID,
		UserID:    event.UserID,
		Username:  event.Username,
		Event:     PresenceLeft,
		Timestamp: event.Timestamp,
	})
	return nil
}

// handleRoomClosed delivers the closing notice to the audience embedded in
// the event. The room rows carry no current members anymore once the close
// has committed, so a live lookup here would come up empty.
func (m *Module) handleRoomClosed(ctx context.Context, event events.RoomClosedEvent, _ *mono.Msg) error {
	m.fanOut(ctx, event.RoomID, event.MemberIDs, &Envelope{
		Type:      KindSystem,
		RoomID:    event.RoomID,
		Username:  "system",
		Content:   "meeting has ended",
		Reason:    event.Reason,
		Timestamp: event.Timestamp,
	})
	return nil
}

// handleUserForcedOffline notifies and then drops every channel the user has
// open. The read loops observe the close, unregister and clear presence.
func (m *Module) handleUserForcedOffline(_ context.Context, event events.UserForcedOfflineEvent, _ *mono.Msg) error {
	env := &Envelope{
		Type:      KindForceOffline,
		UserID:    event.UserID,
		Reason:    event.Reason,
		Timestamp: event.Timestamp,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal force-offline envelope: %w", err)
	}

	for _, ch := range m.registry.ChannelsFor(event.UserID) {
		if err := ch.Send(data); err != nil {
			log.Printf("[relay] Force-offline notify failed for user %d: %v", event.UserID, err)
		}
		_ = ch.Close()
		m.registry.Unregister(ch)
	}
	log.Printf("[relay] User %d forced offline", event.UserID)
	return nil
}

// fanOut delivers one envelope to every channel of every member, the
// sender's own channels included. A nil members slice means the producer did
// not snapshot the audience; it is then resolved against current room
// membership. Members without an open channel are skipped; they will pick
// the message up from history. A failed write evicts that channel and moves
// on: it must never abort delivery to the remaining recipients.
func (m *Module) fanOut(ctx context.Context, roomID string, members []uint, env *Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[relay] Failed to marshal envelope for room %s: %v", roomID, err)
		return
	}

	if members == nil {
		members, err = m.membership.MemberIDs(ctx, roomID)
		if err != nil {
			log.Printf("[relay] Failed to resolve audience for room %s: %v", roomID, err)
			return
		}
	}

	for _, userID := range members {
		for _, ch := range m.registry.ChannelsFor(userID) {
			if err := ch.Send(data); err != nil {
				log.Printf("[relay] Delivery to user %d failed, evicting channel: %v", userID, err)
				_ = ch.Close()
				m.registry.Unregister(ch)
			}
		}
	}
}
