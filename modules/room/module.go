package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/room"
	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/auth"
)

// Module provides meeting room services.
type Module struct {
	db      *gorm.DB
	service *Service
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new room Module using the shared database handle.
func NewModule(db *gorm.DB) *Module {
	return &Module{db: db}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "room"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	if m.service == nil {
		m.service = NewService(NewRepository(m.db), auth.NewPasswordHasher(), loadConfig())
	}
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ParticipantJoinedV1.ToBase(),
		events.ParticipantLeftV1.ToBase(),
		events.RoomClosedV1.ToBase(),
	}
}

// Start initializes the room module.
func (m *Module) Start(_ context.Context) error {
	if err := m.db.AutoMigrate(&domain.Room{}, &domain.Participant{}); err != nil {
		return fmt.Errorf("failed to migrate room tables: %w", err)
	}
	if m.service == nil {
		m.service = NewService(NewRepository(m.db), auth.NewPasswordHasher(), loadConfig())
	}
	log.Println("[room] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[room] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	active, err := m.service.repo.CountActive()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("room query failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_rooms": active,
		},
	}
}

// RegisterServices registers membership lookups in the service container.
// These are the read-only collaborators the chat relay depends on.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceIsMember,
		json.Unmarshal,
		json.Marshal,
		m.handleIsMember,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceIsMember, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetMemberIDs,
		json.Unmarshal,
		json.Marshal,
		m.handleGetMemberIDs,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetMemberIDs, err)
	}

	log.Printf("[room] Registered services: %s, %s", ServiceIsMember, ServiceGetMemberIDs)
	return nil
}

// Service exposes the room service to the API module.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) handleIsMember(ctx context.Context, req IsMemberRequest, _ *mono.Msg) (IsMemberResponse, error) {
	member, err := m.service.IsMember(ctx, req.RoomID, req.UserID)
	if err != nil {
		return IsMemberResponse{}, err
	}
	return IsMemberResponse{Member: member}, nil
}

func (m *Module) handleGetMemberIDs(ctx context.Context, req GetMemberIDsRequest, _ *mono.Msg) (GetMemberIDsResponse, error) {
	ids, err := m.service.MemberIDs(ctx, req.RoomID)
	if err != nil {
		return GetMemberIDsResponse{}, err
	}
	return GetMemberIDsResponse{UserIDs: ids}, nil
}

// loadConfig loads room limits from environment variables.
func loadConfig() Config {
	config := DefaultConfig()

	if v := os.Getenv("ROOM_MAX_PARTICIPANTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxParticipants = n
		}
	}
	if v := os.Getenv("ROOM_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConcurrentRooms = n
		}
	}
	return config
}
