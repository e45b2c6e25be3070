package model

import (
	"time"
)

// ChatUser is the per-session profile created on a visitor's first message.
// The session id is chosen by the client and never changes; the row is
// inserted once and never overwritten.
type ChatUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"session_id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ChatUser
func (ChatUser) TableName() string {
	return "chat_users"
}

// ChatMessage is a single free-form message between a visitor and the
// admin. Messages are immutable once created.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(100);not null;index" json:"session_id"`
	Message   string    `gorm:"type:text" json:"message"`
	ImageURL  string    `gorm:"type:text" json:"image_url"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}
