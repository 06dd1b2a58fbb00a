package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/videomeet/modules/admin"
	"github.com/example/videomeet/modules/auth"
	"github.com/example/videomeet/modules/chat"
	"github.com/example/videomeet/modules/presence"
	"github.com/example/videomeet/modules/recording"
	"github.com/example/videomeet/modules/relay"
	"github.com/example/videomeet/modules/room"
	"github.com/example/videomeet/modules/rtc"
)

// APIModule is the HTTP and WebSocket edge of the application.
type APIModule struct {
	app      *fiber.App
	addr     string
	authPort auth.AuthPort

	authMod    *auth.AuthModule
	roomMod    *room.Module
	chatMod    *chat.Module
	rtcMod     *rtc.Module
	presence   *presence.Module
	recordings *recording.Module
	relayMod   *relay.Module
	adminMod   *admin.Module
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule over the feature modules.
func NewModule(
	authMod *auth.AuthModule,
	roomMod *room.Module,
	chatMod *chat.Module,
	rtcMod *rtc.Module,
	presenceMod *presence.Module,
	recordings *recording.Module,
	relayMod *relay.Module,
	adminMod *admin.Module,
) *APIModule {
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	return &APIModule{
		addr:       addr,
		authMod:    authMod,
		roomMod:    roomMod,
		chatMod:    chatMod,
		rtcMod:     rtcMod,
		presence:   presenceMod,
		recordings: recordings,
		relayMod:   relayMod,
		adminMod:   adminMod,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.authPort = auth.NewAuthAdapter(container)
	}
}

// Start initializes the Fiber server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authPort == nil {
		return fmt.Errorf("auth dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "videomeet",
		BodyLimit:             512 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on %s", m.addr)
	return nil
}

// Stop gracefully shuts down the server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// setupRoutes configures all HTTP and WebSocket routes.
func (m *APIModule) setupRoutes() {
	handlers := NewHandlers(
		m.authMod.Service(),
		m.roomMod.Service(),
		m.chatMod.Service(),
		m.rtcMod.Builder(),
		m.presence.Tracker(),
		m.recordings.Service(),
		m.adminMod.Service(),
	)

	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	// Meeting socket
	socket := NewMeetingSocket(m.relayMod.Registry(), m.presence.Tracker())
	m.app.Use("/ws/meeting", UpgradeMiddleware(m.authPort))
	m.app.Get("/ws/meeting", websocket.New(socket.Handle))

	v1 := m.app.Group("/api/v1")

	// Public auth routes
	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/guest", handlers.GuestLogin)
	authRoutes.Post("/refresh", handlers.Refresh)

	// Protected routes
	protected := v1.Group("")
	protected.Use(AuthMiddleware(m.authPort))

	protected.Get("/profile", handlers.Profile)
	protected.Get("/users/online", handlers.OnlineUsers)

	protected.Post("/rooms", handlers.CreateRoom)
	protected.Get("/rooms/:roomID", handlers.GetRoom)
	protected.Post("/rooms/:roomID/join", handlers.JoinRoom)
	protected.Post("/rooms/:roomID/leave", handlers.LeaveRoom)
	protected.Post("/rooms/:roomID/end", handlers.EndRoom)
	protected.Get("/rooms/:roomID/participants", handlers.Participants)
	protected.Get("/rooms/:roomID/token", handlers.RTCToken)

	protected.Post("/rooms/:roomID/messages", handlers.SendMessage)
	protected.Get("/rooms/:roomID/messages", handlers.History)

	protected.Post("/rooms/:roomID/recordings", handlers.StartRecording)
	protected.Get("/recordings", handlers.ListRecordings)
	protected.Get("/recordings/:id", handlers.GetRecording)
	protected.Post("/recordings/:id/stop", handlers.StopRecording)
	protected.Get("/recordings/:id/download", handlers.DownloadRecording)
	protected.Delete("/recordings/:id", handlers.DeleteRecording)

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(AdminMiddleware())
	adminRoutes.Get("/stats", handlers.AdminStatistics)
	adminRoutes.Get("/users", handlers.AdminListUsers)
	adminRoutes.Get("/users/:id", handlers.AdminGetUser)
	adminRoutes.Post("/users/:id/force-offline", handlers.AdminForceOffline)
	adminRoutes.Get("/rooms", handlers.AdminListRooms)
	adminRoutes.Post("/rooms/:roomID/close", handlers.AdminCloseRoom)
	adminRoutes.Delete("/rooms/:roomID/messages", handlers.AdminClearChat)
	adminRoutes.Get("/logs", handlers.AdminOperationLogs)
}

// errorHandler handles Fiber errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
