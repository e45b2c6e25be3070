package payment

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

// PaymentHandler serves the legacy flat top-up requests: no thread, just
// an amount and a status. Newer clients use tickets; this surface stays
// for the ones that don't.
type PaymentHandler struct {
	db        *gorm.DB
	limiter   *ratelimit.SessionLimiter
	sender    notify.Sender
	validator *validation.Validator
}

// NewPaymentHandler creates a new payment-request handler
func NewPaymentHandler(db *gorm.DB, limiter *ratelimit.SessionLimiter, sender notify.Sender) *PaymentHandler {
	return &PaymentHandler{
		db:        db,
		limiter:   limiter,
		sender:    sender,
		validator: validation.NewValidator(),
	}
}

// CreateRequestBody represents the request body for creating a payment request
type CreateRequestBody struct {
	SessionID string `json:"session_id" validate:"omitempty,max=100"`
	Amount    string `json:"amount" validate:"required,amount"`
}

// UpdateStatusBody represents the request body for a status change
type UpdateStatusBody struct {
	Status string `json:"status" validate:"required,max=20"`
}

// RequestResponse is a payment request as rendered to clients. This
// generation of the API uses RFC3339 timestamps.
type RequestResponse struct {
	ID        uint   `json:"id"`
	SessionID string `json:"session_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func renderRequest(r model.PaymentRequest) RequestResponse {
	return RequestResponse{
		ID:        r.ID,
		SessionID: r.SessionID,
		Amount:    r.Amount,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

// CreateRequest handles POST /api/v1/payment-requests. Same per-session
// quota as tickets, counted over payment_requests.
func (h *PaymentHandler) CreateRequest(c *fiber.Ctx) error {
	var req CreateRequestBody
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

	allowed, err := h.limiter.Allow(h.db, &model.PaymentRequest{}, sessionID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check creation quota")
	}
	if !allowed {
		return response.TooManyRequests(c,
			fmt.Sprintf("Limit exceeded: at most %d requests per 24 hours", h.limiter.Max()))
	}

	request := model.PaymentRequest{
		SessionID: sessionID,
		Amount:    req.Amount,
		Status:    model.PaymentStatusPending,
	}
	if err := h.db.Create(&request).Error; err != nil {
		return response.InternalServerError(c, "Failed to create request")
	}

	notify.SendAsync(h.sender, notify.Notification{
		TicketID: request.ID,
		Subject:  fmt.Sprintf("Заявка на пополнение %s ₽", request.Amount),
		Amount:   request.Amount,
	})

	return response.Created(c, fiber.Map{"request": renderRequest(request)})
}

// ListRequests handles GET /api/v1/payment-requests. Admin mode sees
// everything with an optional ?status= filter; visitors must pass their
// own ?sessionId=.
func (h *PaymentHandler) ListRequests(c *fiber.Ctx) error {
	query := h.db.Model(&model.PaymentRequest{})

	if middleware.IsAdminMode(c) {
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
	} else {
		sessionID := c.Query("sessionId")
		if sessionID == "" {
			sessionID = middleware.SessionID(c)
		}
		if sessionID == "" {
			return response.BadRequest(c, "sessionId required")
		}
		query = query.Where("session_id = ?", sessionID)
	}

	var requests []model.PaymentRequest
	if err := query.Order("created_at DESC, id DESC").Find(&requests).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch requests")
	}

	rendered := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		rendered = append(rendered, renderRequest(r))
	}

	return response.Success(c, fiber.Map{"requests": rendered})
}

// UpdateStatus handles PUT /api/v1/payment-requests/:id
func (h *PaymentHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid request id")
	}

	var req UpdateStatusBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Status == "" {
		return response.BadRequest(c, "status required")
	}

	res := h.db.Model(&model.PaymentRequest{}).
		Where("id = ?", id).
		Update("status", req.Status)
	if res.Error != nil {
		return response.InternalServerError(c, "Failed to update request")
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "Request not found")
	}

	var request model.PaymentRequest
	if err := h.db.First(&request, id).Error; err != nil {
		return response.InternalServerError(c, "Failed to load updated request")
	}

	return response.Success(c, fiber.Map{"request": renderRequest(request)})
}
