package model

import (
	"time"
)

// Payment request statuses observed in the legacy flow.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRejected  = "rejected"
)

// PaymentRequest is the legacy flat top-up request: no message thread,
// only a status field. Kept alongside tickets for older clients.
type PaymentRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(100);not null;index" json:"session_id"`
	Amount    string    `gorm:"type:varchar(32);not null" json:"amount"`
	Status    string    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for PaymentRequest
func (PaymentRequest) TableName() string {
	return "payment_requests"
}
