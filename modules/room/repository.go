package room

import (
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/videomeet/domain/room"
)

// ErrRoomNotFound is returned when a room does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ParticipantInfo is a participant row joined with the user's display fields.
type ParticipantInfo struct {
	UserID   uint       `json:"user_id"`
	Username string     `json:"username"`
	Nickname string     `json:"nickname"`
	IsHost   bool       `json:"is_host"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// Repository handles room and participant persistence using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new room Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a room.
func (r *Repository) Create(rm *domain.Room) error {
	return r.db.Create(rm).Error
}

// FindByRoomID looks a room up by its public identifier.
func (r *Repository) FindByRoomID(roomID string) (*domain.Room, error) {
	var rm domain.Room
	result := r.db.First(&rm, "room_id = ?", roomID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return &rm, nil
}

// CountActive returns the number of active rooms.
func (r *Repository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Room{}).Where("status = ?", domain.StatusActive).Count(&count).Error
	return count, err
}

// Count returns the total number of rooms.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Room{}).Count(&count).Error
	return count, err
}

// End marks a room ended and stamps LeftAt on every remaining participant.
func (r *Repository) End(rm *domain.Room) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(rm).Updates(map[string]any{
			"status":   domain.StatusEnded,
			"ended_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Participant{}).
			Where("room_db_id = ? AND left_at IS NULL", rm.ID).
			Update("left_at", now).Error
	})
}

// AddParticipant inserts a participant row.
func (r *Repository) AddParticipant(p *domain.Participant) error {
	return r.db.Create(p).Error
}

// FindActiveParticipant returns the open participant row for a user in a
// room, or nil when the user is not currently a member.
func (r *Repository) FindActiveParticipant(roomDBID, userID uint) (*domain.Participant, error) {
	var p domain.Participant
	result := r.db.First(&p, "room_db_id = ? AND user_id = ? AND left_at IS NULL", roomDBID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &p, nil
}

// CountActiveParticipants returns how many users are currently in the room.
func (r *Repository) CountActiveParticipants(roomDBID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Participant{}).
		Where("room_db_id = ? AND left_at IS NULL", roomDBID).
		Count(&count).Error
	return count, err
}

// MarkLeft stamps LeftAt on a participant row.
func (r *Repository) MarkLeft(p *domain.Participant) error {
	now := time.Now()
	return r.db.Model(p).Update("left_at", now).Error
}

// ActiveParticipants returns the current members of a room with their user
// display fields.
func (r *Repository) ActiveParticipants(roomDBID uint) ([]ParticipantInfo, error) {
	var infos []ParticipantInfo
	err := r.db.Table("participants").
		Select("participants.user_id, users.username, users.nickname, participants.is_host, participants.joined_at, participants.left_at").
		Joins("JOIN users ON users.id = participants.user_id").
		Where("participants.room_db_id = ? AND participants.left_at IS NULL", roomDBID).
		Order("participants.joined_at ASC").
		Scan(&infos).Error
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// ActiveMemberIDs returns the user IDs currently in a room.
func (r *Repository) ActiveMemberIDs(roomDBID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&domain.Participant{}).
		Where("room_db_id = ? AND left_at IS NULL", roomDBID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// List returns a page of rooms ordered by creation time, newest first.
func (r *Repository) List(page, size int) ([]domain.Room, int64, error) {
	var total int64
	if err := r.db.Model(&domain.Room{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []domain.Room
	err := r.db.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// ListActive returns all active rooms.
func (r *Repository) ListActive() ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.Where("status = ?", domain.StatusActive).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}
