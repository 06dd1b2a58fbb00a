package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/adminlog"
	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/auth"
	"github.com/example/videomeet/modules/chat"
	"github.com/example/videomeet/modules/presence"
	"github.com/example/videomeet/modules/recording"
	"github.com/example/videomeet/modules/relay"
	"github.com/example/videomeet/modules/room"
)

// Module provides administrator operations.
type Module struct {
	db         *gorm.DB
	service    *Service
	pendingBus mono.EventBus

	rooms      *room.Module
	chat       *chat.Module
	presence   *presence.Module
	recordings *recording.Module
	relay      *relay.Module
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new admin Module over the other modules.
func NewModule(db *gorm.DB, rooms *room.Module, chatMod *chat.Module, presenceMod *presence.Module, recordings *recording.Module, relayMod *relay.Module) *Module {
	return &Module{
		db:         db,
		rooms:      rooms,
		chat:       chatMod,
		presence:   presenceMod,
		recordings: recordings,
		relay:      relayMod,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "admin"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	if m.service != nil {
		m.service.SetEventBus(bus)
	} else {
		m.pendingBus = bus
	}
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserForcedOfflineV1.ToBase(),
	}
}

// Start migrates the log schema and assembles the service. Admin starts
// after the modules it drives, so their services are available here.
func (m *Module) Start(_ context.Context) error {
	if err := m.db.AutoMigrate(&domain.OperationLog{}); err != nil {
		return fmt.Errorf("failed to migrate operation log schema: %w", err)
	}

	var tracker *presence.Tracker
	if m.presence != nil {
		tracker = m.presence.Tracker()
	}
	var recSvc *recording.Service
	if m.recordings != nil {
		recSvc = m.recordings.Service()
	}
	var registry *relay.Registry
	if m.relay != nil {
		registry = m.relay.Registry()
	}

	m.service = NewService(
		auth.NewUserRepository(m.db),
		m.rooms.Service(),
		m.chat.Service(),
		tracker,
		recSvc,
		registry,
		NewLogRepository(m.db),
	)
	if m.pendingBus != nil {
		m.service.SetEventBus(m.pendingBus)
	}
	log.Println("[admin] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[admin] Module stopped")
	return nil
}

// Service exposes the admin service to the API module.
func (m *Module) Service() *Service {
	return m.service
}
