package recording

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/recording"
	"github.com/example/videomeet/modules/room"
)

// Module wraps recording storage and metadata in the application lifecycle.
type Module struct {
	db      *gorm.DB
	rooms   *room.Module
	store   ObjectStore
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new recording Module. It starts after the room
// module, whose service resolves room metadata.
func NewModule(db *gorm.DB, rooms *room.Module) *Module {
	return &Module{db: db, rooms: rooms}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "recording"
}

// Start migrates the schema and opens the storage backend. When
// RECORDING_NATS_URL is set the files go to a JetStream object store,
// otherwise to a local directory.
func (m *Module) Start(ctx context.Context) error {
	if err := m.db.AutoMigrate(&domain.Recording{}); err != nil {
		return fmt.Errorf("failed to migrate recording schema: %w", err)
	}

	if natsURL := os.Getenv("RECORDING_NATS_URL"); natsURL != "" {
		bucket := os.Getenv("RECORDING_BUCKET")
		if bucket == "" {
			bucket = "recordings"
		}
		store, err := NewJetStreamStore(ctx, natsURL, bucket)
		if err != nil {
			return fmt.Errorf("failed to open object store: %w", err)
		}
		m.store = store
		log.Printf("[recording] Using JetStream bucket %q", bucket)
	} else {
		dir := os.Getenv("RECORDING_DIR")
		if dir == "" {
			dir = "./recordings"
		}
		store, err := NewDirStore(dir)
		if err != nil {
			return fmt.Errorf("failed to open storage directory: %w", err)
		}
		m.store = store
		log.Printf("[recording] Using local directory %q", dir)
	}

	m.service = NewService(NewRepository(m.db), m.store, m.rooms.Service())
	log.Println("[recording] Module started")
	return nil
}

// Stop closes the storage backend.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			log.Printf("[recording] Failed to close object store: %v", err)
		}
	}
	log.Println("[recording] Module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	stats, err := m.service.Statistics(ctx)
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("statistics query failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"recordings": stats.TotalCount,
			"total_size": stats.TotalSize,
		},
	}
}

// Service exposes the recording service to the API module.
func (m *Module) Service() *Service {
	return m.service
}
