package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/chat"
	"github.com/example/videomeet/events"
	"github.com/example/videomeet/modules/room"
)

// Module provides chat message services.
type Module struct {
	db      *gorm.DB
	rdb     *redis.Client
	service *Service
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.DependentModule     = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new chat Module. rdb may be nil when Redis is not
// configured.
func NewModule(db *gorm.DB, rdb *redis.Client) *Module {
	m := &Module{db: db, rdb: rdb}
	var cache *HistoryCache
	if rdb != nil {
		cache = NewHistoryCache(rdb)
	}
	m.service = NewService(NewRepository(db), cache, nil)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"room"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "room" {
		m.service.membership = room.NewMembershipAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// Start initializes the chat module.
func (m *Module) Start(_ context.Context) error {
	if m.service.membership == nil {
		return fmt.Errorf("room membership dependency not set")
	}
	if err := m.db.AutoMigrate(&domain.Message{}); err != nil {
		return fmt.Errorf("failed to migrate messages table: %w", err)
	}
	log.Println("[chat] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// Service exposes the chat service to the API and admin modules.
func (m *Module) Service() *Service {
	return m.service
}
