package recording

import "time"

// Status of a recording.
type Status string

const (
	StatusRecording Status = "recording"
	StatusCompleted Status = "completed"
)

// Recording is the metadata row for one recorded meeting. The media file
// itself lives in the object store under ObjectName.
type Recording struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	RoomID     string     `gorm:"index;size:16" json:"room_id"`
	RoomName   string     `gorm:"size:128" json:"room_name"`
	ObjectName string     `gorm:"size:256" json:"-"`
	FileSize   int64      `json:"file_size"`
	Duration   int        `json:"duration"` // seconds
	Resolution string     `gorm:"size:16" json:"resolution,omitempty"`
	Status     Status     `gorm:"size:16;index;default:recording" json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	CreatorID  uint       `gorm:"index" json:"creator_id"`
}
