package chat

import (
	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/chat"
)

// Repository handles chat message persistence using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a message. The assigned autoincrement ID is the per-room
// ordering key.
func (r *Repository) Create(msg *domain.Message) error {
	return r.db.Create(msg).Error
}

// History returns the most recent messages of a room in ascending ID order
// (oldest of the page first).
func (r *Repository) History(roomID string, limit int) ([]domain.Message, error) {
	var page []domain.Message
	err := r.db.Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&page).Error
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// Clear deletes all messages of a room.
func (r *Repository) Clear(roomID string) error {
	return r.db.Where("room_id = ?", roomID).Delete(&domain.Message{}).Error
}

// Count returns the total number of stored messages.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).Count(&count).Error
	return count, err
}
