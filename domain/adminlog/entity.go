package adminlog

import "time"

// OperationType enumerates auditable admin actions.
type OperationType string

const (
	OpForceOffline    OperationType = "force_offline"
	OpForceCloseRoom  OperationType = "force_close_room"
	OpDeleteRecording OperationType = "delete_recording"
	OpClearChat       OperationType = "clear_chat"
)

// OperationLog is one audit entry. Every admin mutation writes one.
type OperationLog struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	AdminID       uint          `gorm:"index" json:"admin_id"`
	AdminUsername string        `gorm:"size:64" json:"admin_username"`
	OperationType OperationType `gorm:"size:32;index" json:"operation_type"`
	TargetType    string        `gorm:"size:32" json:"target_type"`
	TargetID      string        `gorm:"size:64" json:"target_id"`
	Detail        string        `gorm:"size:512" json:"detail,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
