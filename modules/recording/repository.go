package recording

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/recording"
)

// ErrRecordingNotFound is returned when a recording id does not exist.
var ErrRecordingNotFound = errors.New("recording not found")

// ListQuery filters and paginates recording listings.
type ListQuery struct {
	RoomName string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Statistics summarizes stored recordings.
type Statistics struct {
	TotalCount    int64 `json:"total_count"`
	TotalSize     int64 `json:"total_size"`
	TotalDuration int64 `json:"total_duration"`
}

// Repository handles recording metadata persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a recording repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new recording row.
func (r *Repository) Create(ctx context.Context, rec *domain.Recording) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

// FindByID looks up a recording by id.
func (r *Repository) FindByID(ctx context.Context, id uint) (*domain.Recording, error) {
	var rec domain.Recording
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("failed to find recording: %w", err)
	}
	return &rec, nil
}

// Update saves changed fields of a recording.
func (r *Repository) Update(ctx context.Context, rec *domain.Recording) error {
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to update recording: %w", err)
	}
	return nil
}

// Delete removes a recording row.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Recording{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

// List returns completed recordings matching the query, newest first.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]domain.Recording, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Recording{}).
		Where("status = ?", domain.StatusCompleted)
	if q.RoomName != "" {
		tx = tx.Where("room_name LIKE ?", "%"+q.RoomName+"%")
	}
	if q.From != nil {
		tx = tx.Where("started_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("started_at <= ?", *q.To)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recordings: %w", err)
	}

	var recs []domain.Recording
	err := tx.Order("started_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recs, total, nil
}

// FindActiveByRoom returns the in-progress recording for a room, or nil.
func (r *Repository) FindActiveByRoom(ctx context.Context, roomID string) (*domain.Recording, error) {
	var rec domain.Recording
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, domain.StatusRecording).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active recording: %w", err)
	}
	return &rec, nil
}

// Statistics aggregates counts over completed recordings.
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := r.db.WithContext(ctx).Model(&domain.Recording{}).
		Where("status = ?", domain.StatusCompleted).
		Select("COUNT(*) AS total_count, COALESCE(SUM(file_size), 0) AS total_size, COALESCE(SUM(duration), 0) AS total_duration").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute recording statistics: %w", err)
	}
	return &stats, nil
}
