package ticket

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/model"
	"github.com/supportdesk/topup-api/services/notify"
	"github.com/supportdesk/topup-api/services/ratelimit"
	"github.com/supportdesk/topup-api/utils/middleware"
	"github.com/supportdesk/topup-api/utils/response"
	"github.com/supportdesk/topup-api/utils/validation"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02 15:04:05"

// TicketHandler handles the unified ticket workflow: creation with the
// per-session quota, threading, admin listing and partial updates.
type TicketHandler struct {
	db        *gorm.DB
	limiter   *ratelimit.SessionLimiter
	sender    notify.Sender
	validator *validation.Validator
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(db *gorm.DB, limiter *ratelimit.SessionLimiter, sender notify.Sender) *TicketHandler {
	return &TicketHandler{
		db:        db,
		limiter:   limiter,
		sender:    sender,
		validator: validation.NewValidator(),
	}
}

// CreateTicketRequest represents the request body for creating a ticket
type CreateTicketRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=100"`
	Subject   string `json:"subject" validate:"max=255"`
	Amount    string `json:"amount" validate:"required,amount"`
	Name      string `json:"name" validate:"max=255"`
}

// PostTicketMessageRequest represents the request body for a thread message
type PostTicketMessageRequest struct {
	Message     string `json:"message" validate:"max=4000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=2048"`
	SenderType  string `json:"sender_type" validate:"omitempty,oneof=client admin"`
	ManagerName string `json:"manager_name" validate:"max=255"`
}

// UpdateTicketRequest represents the partial-update body. Pointer fields
// distinguish "absent" from "set to empty".
type UpdateTicketRequest struct {
	Status     *string `json:"status" validate:"omitempty,max=20"`
	Priority   *string `json:"priority" validate:"omitempty,max=20"`
	AssignedTo *string `json:"assigned_to" validate:"omitempty,max=100"`
}

// TicketResponse is a ticket as rendered to clients
type TicketResponse struct {
	ID           uint                    `json:"id"`
	SessionID    string                  `json:"session_id"`
	Subject      string                  `json:"subject"`
	Amount       string                  `json:"amount"`
	Status       string                  `json:"status"`
	Priority     string                  `json:"priority"`
	AssignedTo   string                  `json:"assigned_to,omitempty"`
	UserName     string                  `json:"user_name,omitempty"`
	CreatedAt    string                  `json:"created_at"`
	UpdatedAt    string                  `json:"updated_at"`
	MessageCount int                     `json:"message_count"`
	LastMessage  string                  `json:"last_message,omitempty"`
	Messages     []TicketMessageResponse `json:"messages,omitempty"`
}

// TicketMessageResponse is a thread message as rendered to clients
type TicketMessageResponse struct {
	ID          uint   `json:"id"`
	TicketID    uint   `json:"ticket_id"`
	SenderType  string `json:"sender_type"`
	Message     string `json:"message"`
	ImageURL    string `json:"image_url,omitempty"`
	ManagerName string `json:"manager_name,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func renderMessage(m model.TicketMessage) TicketMessageResponse {
	return TicketMessageResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		SenderType:  m.SenderType,
		Message:     m.Message,
		ImageURL:    m.ImageURL,
		ManagerName: m.ManagerName,
		CreatedAt:   m.CreatedAt.Format(timeLayout),
	}
}

func renderTicket(t model.Ticket, withMessages bool) TicketResponse {
	resp := TicketResponse{
		ID:           t.ID,
		SessionID:    t.SessionID,
		Subject:      t.Subject,
		Amount:       t.Amount,
		Status:       t.Status,
		Priority:     t.Priority,
		AssignedTo:   t.AssignedTo,
		UserName:     t.UserName,
		CreatedAt:    t.CreatedAt.Format(timeLayout),
		UpdatedAt:    t.UpdatedAt.Format(timeLayout),
		MessageCount: len(t.Messages),
	}
	if n := len(t.Messages); n > 0 {
		resp.LastMessage = t.Messages[n-1].Message
	}
	if withMessages {
		resp.Messages = make([]TicketMessageResponse, 0, len(t.Messages))
		for _, m := range t.Messages {
			resp.Messages = append(resp.Messages, renderMessage(m))
		}
	}
	return resp
}

// ListTickets handles GET /api/v1/tickets. Admin listing: newest
// activity first, optional ?status= filter, thread embedded.
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	query := h.db.Model(&model.Ticket{}).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tickets []model.Ticket
	if err := query.Order("updated_at DESC").Find(&tickets).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tickets")
	}

	rendered := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		rendered = append(rendered, renderTicket(t, true))
	}

	return response.Success(c, fiber.Map{"tickets": rendered})
}

// GetTicket handles GET /api/v1/tickets/:id — the ticket plus its
// thread in creation order.
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid ticket id")
	}

	var ticket model.Ticket
	if err := h.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).First(&ticket, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to fetch ticket")
	}

	resp := renderTicket(ticket, true)
	return response.Success(c, fiber.Map{"ticket": resp, "messages": resp.Messages})
}

// CreateTicket handles POST /api/v1/tickets. The full creation flow
// writes the ticket, the client's opening message and a synthetic admin
// greeting in one transaction, so a ticket is never visible without a
// thread. The per-session quota is checked under the session lock.
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	var req CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = middleware.SessionID(c)
	}
	if sessionID == "" || req.Amount == "" {
		return response.BadRequest(c, "Session ID and amount required")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "Amount must be a non-negative decimal")
	}

	unlock := h.limiter.Lock(sessionID)
	defer unlock()

	allowed, err := h.limiter.Allow(h.db, &model.Ticket{}, sessionID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check creation quota")
	}
	if !allowed {
		return response.TooManyRequests(c,
			fmt.Sprintf("Limit exceeded: at most %d tickets per 24 hours", h.limiter.Max()))
	}

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("Заявка на пополнение %s ₽", req.Amount)
	}

	ticket := model.Ticket{
		SessionID: sessionID,
		Subject:   subject,
		Amount:    req.Amount,
		Status:    model.TicketStatusOpen,
		Priority:  "high",
		UserName:  req.Name,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}

		opening := model.TicketMessage{
			TicketID:   ticket.ID,
			SenderType: model.SenderTypeClient,
			Message:    fmt.Sprintf("Здравствуйте! Хочу пополнить счёт на %s ₽", req.Amount),
		}
		if err := tx.Create(&opening).Error; err != nil {
			return err
		}

		greeting := model.TicketMessage{
			TicketID:   ticket.ID,
			SenderType: model.SenderTypeAdmin,
			Message:    "Здравствуйте! Ваша заявка принята, менеджер скоро с вами свяжется.",
		}
		return tx.Create(&greeting).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create ticket")
	}

	// Fire and forget: the client's 201 does not depend on Telegram.
	notify.SendAsync(h.sender, notify.Notification{
		TicketID: ticket.ID,
		Subject:  ticket.Subject,
		Amount:   ticket.Amount,
		UserName: ticket.UserName,
	})

	var created model.Ticket
	if err := h.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).First(&created, ticket.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to load created ticket")
	}

	return response.Created(c, fiber.Map{"ticket": renderTicket(created, true)})
}

// PostMessage handles POST /api/v1/tickets/:id/messages. Appending
// always bumps the parent ticket's updated_at, in the same transaction.
func (h *TicketHandler) PostMessage(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid ticket id")
	}

	var req PostTicketMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Message = validation.SanitizeString(req.Message)
	if req.Message == "" && req.ImageURL == "" {
		return response.BadRequest(c, "Message or image required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "Invalid message payload")
	}

	if req.SenderType == "" {
		req.SenderType = model.SenderTypeClient
	}

	var ticket model.Ticket
	if err := h.db.First(&ticket, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to fetch ticket")
	}

	message := model.TicketMessage{
		TicketID:    ticket.ID,
		SenderType:  req.SenderType,
		Message:     req.Message,
		ImageURL:    req.ImageURL,
		ManagerName: req.ManagerName,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&model.Ticket{}).
			Where("id = ?", ticket.ID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create message")
	}

	return response.Success(c, fiber.Map{"message": renderMessage(message)})
}

// UpdateTicket handles PUT /api/v1/tickets/:id — partial update of
// status, priority and assignee. Transitions are unrestricted.
func (h *TicketHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid ticket id")
	}

	var req UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.AssignedTo != nil {
		updates["assigned_to"] = *req.AssignedTo
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "No fields to update")
	}
	updates["updated_at"] = time.Now()

	var ticket model.Ticket
	if err := h.db.First(&ticket, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to fetch ticket")
	}

	if err := h.db.Model(&ticket).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update ticket")
	}

	if err := h.db.First(&ticket, id).Error; err != nil {
		return response.InternalServerError(c, "Failed to load updated ticket")
	}

	return response.Success(c, fiber.Map{"ticket": renderTicket(ticket, false)})
}
