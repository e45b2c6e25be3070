package model

import (
	"time"
)

// Observed ticket statuses. Transitions are free: an admin update may set
// any value, including ones not listed here.
const (
	TicketStatusOpen    = "open"
	TicketStatusPending = "pending"
	TicketStatusClosed  = "closed"
)

// TicketMessage sender types
const (
	SenderTypeClient = "client"
	SenderTypeAdmin  = "admin"
)

// Ticket is a top-up support request with a lifecycle status, a monetary
// amount and a message thread. Amount is carried as a decimal string end
// to end so it round-trips without floating-point drift.
type Ticket struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"type:varchar(100);not null;index" json:"session_id"`
	Subject    string    `gorm:"type:varchar(255)" json:"subject"`
	Amount     string    `gorm:"type:varchar(32);not null" json:"amount"`
	Status     string    `gorm:"type:varchar(20);default:'open';index" json:"status"`
	Priority   string    `gorm:"type:varchar(20);default:'normal'" json:"priority"`
	AssignedTo string    `gorm:"type:varchar(100)" json:"assigned_to"`
	UserName   string    `gorm:"type:varchar(255)" json:"user_name"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`

	// Relationships
	Messages []TicketMessage `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName specifies the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}

// TicketMessage is one entry in a ticket's thread. Immutable once
// created; appending one always bumps the parent ticket's updated_at.
type TicketMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TicketID    uint      `gorm:"not null;index" json:"ticket_id"`
	SenderType  string    `gorm:"type:varchar(20);not null" json:"sender_type"` // client, admin
	Message     string    `gorm:"type:text" json:"message"`
	ImageURL    string    `gorm:"type:text" json:"image_url"`
	ManagerName string    `gorm:"type:varchar(255)" json:"manager_name"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for TicketMessage
func (TicketMessage) TableName() string {
	return "ticket_messages"
}
