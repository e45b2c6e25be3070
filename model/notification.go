package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification log statuses
const (
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusSkipped = "skipped" // credentials not configured
)

// NotificationLog records one best-effort dispatch attempt to the
// Telegram side channel. This is an audit trail, not an outbox: failed
// rows are never retried.
type NotificationLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TicketID  uint           `gorm:"index" json:"ticket_id"`
	Status    string         `gorm:"type:varchar(20);not null" json:"status"` // sent, failed, skipped
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for NotificationLog
func (NotificationLog) TableName() string {
	return "notification_logs"
}
