package model

import (
	"time"
)

// Visitor is the per-session analytics row kept by the tracker. One row
// per session id; repeat tracking calls bump page_views and
// last_activity instead of inserting.
type Visitor struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"session_id"`
	IPAddress    string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent    string    `gorm:"type:text" json:"user_agent"`
	DeviceType   string    `gorm:"type:varchar(20)" json:"device_type"` // Mobile, Tablet, Desktop
	Browser      string    `gorm:"type:varchar(50)" json:"browser"`
	OS           string    `gorm:"type:varchar(50)" json:"os"`
	FirstVisit   time.Time `gorm:"autoCreateTime" json:"first_visit"`
	LastActivity time.Time `gorm:"index" json:"last_activity"`
	IsOnline     bool      `gorm:"default:true" json:"is_online"`
	PageViews    int       `gorm:"default:1" json:"page_views"`
}

// TableName specifies the table name for Visitor
func (Visitor) TableName() string {
	return "visitors"
}

// PresencePing is a short-lived heartbeat row used to approximate the
// number of concurrently active visitors. Rows past the presence window
// are purged on every count.
type PresencePing struct {
	SessionID string    `gorm:"type:varchar(100);primaryKey" json:"session_id"`
	LastSeen  time.Time `gorm:"not null;index" json:"last_seen"`
}

// TableName specifies the table name for PresencePing
func (PresencePing) TableName() string {
	return "presence_pings"
}
