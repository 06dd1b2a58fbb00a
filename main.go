package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/videomeet/modules/admin"
	"github.com/example/videomeet/modules/api"
	"github.com/example/videomeet/modules/auth"
	"github.com/example/videomeet/modules/chat"
	"github.com/example/videomeet/modules/presence"
	"github.com/example/videomeet/modules/recording"
	"github.com/example/videomeet/modules/relay"
	"github.com/example/videomeet/modules/room"
	"github.com/example/videomeet/modules/rtc"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== videomeet - meeting rooms with chat relay ===")

	db, err := openDatabase()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	rdb := openRedis()

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules. The database and Redis handles are shared; each
	// module migrates and owns its tables.
	authModule := auth.NewModule(db)
	roomModule := room.NewModule(db)
	rtcModule := rtc.NewModule()
	presenceModule := presence.NewModule(rdb)
	chatModule := chat.NewModule(db, rdb)
	relayModule := relay.NewModule()
	recordingModule := recording.NewModule(db, roomModule)
	adminModule := admin.NewModule(db, roomModule, chatModule, presenceModule, recordingModule, relayModule)
	apiModule := api.NewModule(authModule, roomModule, chatModule, rtcModule, presenceModule, recordingModule, relayModule, adminModule)

	// Order: providers before consumers, the API edge last
	app.Register(authModule)
	app.Register(roomModule)
	app.Register(rtcModule)
	app.Register(presenceModule)
	app.Register(chatModule)
	app.Register(relayModule)
	app.Register(recordingModule)
	app.Register(adminModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
			"redis": func(_ context.Context) error {
				return rdb.Close()
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func openDatabase() (*gorm.DB, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "videomeet.db"
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// Driver errors become gorm sentinels (gorm.ErrDuplicatedKey in
		// particular); the repositories match on those.
		TranslateError: true,
	})
}

func openRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func printStartupInfo() {
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost%s):", addr)
	log.Println("  GET    /health                           - Health check")
	log.Println("  POST   /api/v1/auth/register             - Register")
	log.Println("  POST   /api/v1/auth/login                - Login")
	log.Println("  POST   /api/v1/auth/guest                - Guest login")
	log.Println("  POST   /api/v1/auth/refresh              - Refresh tokens")
	log.Println("  POST   /api/v1/rooms                     - Create room")
	log.Println("  POST   /api/v1/rooms/:id/join            - Join room")
	log.Println("  GET    /api/v1/rooms/:id/token           - Media token")
	log.Println("  POST   /api/v1/rooms/:id/messages        - Send chat message")
	log.Println("  GET    /api/v1/rooms/:id/messages        - Chat history")
	log.Println("  GET    /api/v1/recordings                - List recordings")
	log.Println("  GET    /api/v1/admin/stats               - Admin dashboard")
	log.Println("")
	log.Printf("Meeting socket (ws://localhost%s/ws/meeting?token=...):", addr)
	log.Println("  Frames: chat, presence, system, force_offline")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
