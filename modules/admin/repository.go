package admin

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/adminlog"
)

// LogRepository persists administrator operation logs.
type LogRepository struct {
	db *gorm.DB
}

// NewLogRepository creates an operation log repository.
func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Create appends an operation log entry.
func (r *LogRepository) Create(ctx context.Context, entry *domain.OperationLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write operation log: %w", err)
	}
	return nil
}

// List returns a page of log entries, newest first. An empty opType
// matches all operation types.
func (r *LogRepository) List(ctx context.Context, opType string, page, size int) ([]domain.OperationLog, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.OperationLog{})
	if opType != "" {
		tx = tx.Where("operation_type = ?", opType)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count operation logs: %w", err)
	}

	var entries []domain.OperationLog
	err := tx.Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list operation logs: %w", err)
	}
	return entries, total, nil
}
