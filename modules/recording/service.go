package recording

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/videomeet/domain/recording"
	roomdomain "github.com/example/videomeet/domain/room"
	userdomain "github.com/example/videomeet/domain/user"
)

var (
	// ErrAlreadyRecording is returned when a room already has an active recording.
	ErrAlreadyRecording = errors.New("room is already being recorded")
	// ErrNotRecording is returned when stopping a recording that is not active.
	ErrNotRecording = errors.New("recording is not in progress")
	// ErrNotOwner is returned when a non-creator non-admin tries to delete.
	ErrNotOwner = errors.New("only the creator or an admin may delete a recording")
	// ErrRecordingEmpty is returned when an uploaded recording has no data.
	ErrRecordingEmpty = errors.New("recording file is empty")
)

// RoomLookup resolves room metadata for recordings.
type RoomLookup interface {
	GetRoom(ctx context.Context, roomID string) (*roomdomain.Room, error)
}

// Service manages recording lifecycle and files.
type Service struct {
	repo  *Repository
	store ObjectStore
	rooms RoomLookup
}

// NewService creates a recording service.
func NewService(repo *Repository, store ObjectStore, rooms RoomLookup) *Service {
	return &Service{repo: repo, store: store, rooms: rooms}
}

// Start begins a recording for an active room.
func (s *Service) Start(ctx context.Context, roomID string, creatorID uint) (*domain.Recording, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.FindActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAlreadyRecording
	}

	rec := &domain.Recording{
		RoomID:    room.RoomID,
		RoomName:  room.RoomName,
		Status:    domain.StatusRecording,
		StartedAt: time.Now(),
		CreatorID: creatorID,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Stop finishes a recording and stores its file.
func (s *Service) Stop(ctx context.Context, recordingID uint, data []byte, contentType, resolution string) (*domain.Recording, error) {
	rec, err := s.repo.FindByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusRecording {
		return nil, ErrNotRecording
	}
	if len(data) == 0 {
		return nil, ErrRecordingEmpty
	}
	if contentType == "" {
		contentType = "video/webm"
	}

	now := time.Now()
	objectName := fmt.Sprintf("rec_%d_%d.webm", rec.ID, now.Unix())
	info, err := s.store.Put(ctx, objectName, data, contentType)
	if err != nil {
		return nil, err
	}

	rec.ObjectName = objectName
	rec.FileSize = info.Size
	rec.Duration = int(now.Sub(rec.StartedAt).Seconds())
	rec.Resolution = resolution
	rec.Status = domain.StatusCompleted
	rec.EndedAt = &now
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns a recording by id.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Recording, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns completed recordings matching the query.
func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Recording, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	return s.repo.List(ctx, q)
}

// Download returns the file contents of a completed recording.
func (s *Service) Download(ctx context.Context, id uint) ([]byte, *ObjectInfo, *domain.Recording, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if rec.Status != domain.StatusCompleted || rec.ObjectName == "" {
		return nil, nil, nil, ErrRecordingNotFound
	}
	data, info, err := s.store.Get(ctx, rec.ObjectName)
	if err != nil {
		return nil, nil, nil, err
	}
	return data, info, rec, nil
}

// Delete removes a recording and its file. Only the creator or an admin may delete.
func (s *Service) Delete(ctx context.Context, id uint, caller *userdomain.Claims) error {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.CreatorID != caller.UserID && !caller.IsAdmin() {
		return ErrNotOwner
	}

	if rec.ObjectName != "" {
		if err := s.store.Delete(ctx, rec.ObjectName); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, id)
}

// Statistics returns aggregate recording counts.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	return s.repo.Statistics(ctx)
}
