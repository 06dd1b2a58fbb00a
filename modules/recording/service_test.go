package recording

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/videomeet/domain/recording"
	roomdomain "github.com/example/videomeet/domain/room"
	userdomain "github.com/example/videomeet/domain/user"
)

// fakeRooms serves a fixed set of rooms.
type fakeRooms struct {
	rooms map[string]*roomdomain.Room
}

func (f *fakeRooms) GetRoom(_ context.Context, roomID string) (*roomdomain.Room, error) {
	rm, ok := f.rooms[roomID]
	if !ok {
		return nil, errors.New("room not found")
	}
	return rm, nil
}

func setupService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Recording{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	rooms := &fakeRooms{rooms: map[string]*roomdomain.Room{
		"room1": {RoomID: "room1", RoomName: "Standup", Status: roomdomain.StatusActive},
	}}
	return NewService(NewRepository(db), store, rooms)
}

func TestService_StartAndStop(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	rec, err := service.Start(ctx, "room1", 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if rec.Status != domain.StatusRecording {
		t.Errorf("Status = %q, want %q", rec.Status, domain.StatusRecording)
	}
	if rec.RoomName != "Standup" {
		t.Errorf("RoomName = %q, want %q", rec.RoomName, "Standup")
	}

	// A second recording in the same room is rejected while one is active.
	if _, err := service.Start(ctx, "room1", 2); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Start(second) error = %v, want ErrAlreadyRecording", err)
	}

	data := []byte("fake webm bytes")
	done, err := service.Stop(ctx, rec.ID, data, "video/webm", "1280x720")
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q", done.Status, domain.StatusCompleted)
	}
	if done.FileSize != int64(len(data)) {
		t.Errorf("FileSize = %d, want %d", done.FileSize, len(data))
	}
	if done.EndedAt == nil {
		t.Error("EndedAt should be stamped")
	}
	if done.Resolution != "1280x720" {
		t.Errorf("Resolution = %q, want %q", done.Resolution, "1280x720")
	}

	// Stopping twice fails: the recording is no longer in progress.
	if _, err := service.Stop(ctx, rec.ID, data, "video/webm", ""); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop(completed) error = %v, want ErrNotRecording", err)
	}
}

func TestService_StopRejectsEmptyFile(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	rec, err := service.Start(ctx, "room1", 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := service.Stop(ctx, rec.ID, nil, "", ""); !errors.Is(err, ErrRecordingEmpty) {
		t.Errorf("Stop(empty) error = %v, want ErrRecordingEmpty", err)
	}
}

func TestService_Download(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	rec, err := service.Start(ctx, "room1", 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	payload := []byte("recorded media")
	if _, err := service.Stop(ctx, rec.ID, payload, "video/webm", ""); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	data, info, meta, err := service.Download(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Error("downloaded bytes differ from upload")
	}
	if info.Size != int64(len(payload)) {
		t.Errorf("info.Size = %d, want %d", info.Size, len(payload))
	}
	if meta.ID != rec.ID {
		t.Errorf("meta.ID = %d, want %d", meta.ID, rec.ID)
	}

	if _, _, _, err := service.Download(ctx, 9999); !errors.Is(err, ErrRecordingNotFound) {
		t.Errorf("Download(missing) error = %v, want ErrRecordingNotFound", err)
	}
}

func TestService_Delete(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	rec, err := service.Start(ctx, "room1", 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := service.Stop(ctx, rec.ID, []byte("bytes"), "", ""); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	stranger := &userdomain.Claims{UserID: 2, Username: "bob", Role: userdomain.RoleUser}
	if err := service.Delete(ctx, rec.ID, stranger); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Delete(stranger) error = %v, want ErrNotOwner", err)
	}

	adminCaller := &userdomain.Claims{UserID: 3, Username: "root", Role: userdomain.RoleAdmin}
	if err := service.Delete(ctx, rec.ID, adminCaller); err != nil {
		t.Fatalf("Delete(admin) error = %v", err)
	}
	if _, err := service.Get(ctx, rec.ID); !errors.Is(err, ErrRecordingNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrRecordingNotFound", err)
	}
}

func TestService_ListFilters(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	rec, err := service.Start(ctx, "room1", 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := service.Stop(ctx, rec.ID, []byte("bytes"), "", ""); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	recs, total, err := service.List(ctx, ListQuery{RoomName: "Stand"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(recs) != 1 {
		t.Fatalf("List(name match) total = %d, len = %d, want 1, 1", total, len(recs))
	}

	_, total, err = service.List(ctx, ListQuery{RoomName: "Retro"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 0 {
		t.Errorf("List(name miss) total = %d, want 0", total)
	}

	future := time.Now().Add(time.Hour)
	_, total, err = service.List(ctx, ListQuery{From: &future})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 0 {
		t.Errorf("List(future window) total = %d, want 0", total)
	}
}

func TestService_Statistics(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	stats, err := service.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TotalCount != 0 {
		t.Errorf("TotalCount = %d on empty store, want 0", stats.TotalCount)
	}

	rec, err := service.Start(ctx, "room1", 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := service.Stop(ctx, rec.ID, []byte("12345"), "", ""); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	stats, err = service.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", stats.TotalCount)
	}
	if stats.TotalSize != 5 {
		t.Errorf("TotalSize = %d, want 5", stats.TotalSize)
	}
}
