package presence

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// Module wraps the presence tracker in the application lifecycle.
type Module struct {
	rdb     *redis.Client
	tracker *Tracker
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new presence Module.
func NewModule(rdb *redis.Client) *Module {
	return &Module{
		rdb:     rdb,
		tracker: NewTracker(rdb),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// Start clears stale online state left behind by a previous process.
func (m *Module) Start(ctx context.Context) error {
	if err := m.tracker.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stale presence: %w", err)
	}
	log.Println("[presence] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[presence] Module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.rdb.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	count, err := m.tracker.OnlineCount(ctx)
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("presence query failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online_users": count,
		},
	}
}

// Tracker exposes the presence tracker to other modules.
func (m *Module) Tracker() *Tracker {
	return m.tracker
}
