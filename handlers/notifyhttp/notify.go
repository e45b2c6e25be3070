package notifyhttp

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/services/notify"
	"github.com/supportdesk/topup-api/utils/response"
)

// NotifyHandler is the HTTP surface over the notification sender, kept
// for callers that dispatch announcements themselves. Unlike the
// embedded fire-and-forget calls, this endpoint does surface failures.
type NotifyHandler struct {
	sender notify.Sender
}

// NewNotifyHandler creates a new notify handler
func NewNotifyHandler(sender notify.Sender) *NotifyHandler {
	return &NotifyHandler{sender: sender}
}

// NotifyRequest represents the request body for a manual dispatch
type NotifyRequest struct {
	TicketID uint   `json:"ticket_id"`
	Subject  string `json:"subject"`
	Amount   string `json:"amount"`
	UserName string `json:"user_name"`
}

// Send handles POST /api/v1/notify
func (h *NotifyHandler) Send(c *fiber.Ctx) error {
	var req NotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Subject == "" {
		req.Subject = "Новая заявка"
	}
	if req.UserName == "" {
		req.UserName = "Не указано"
	}

	err := h.sender.Send(c.Context(), notify.Notification{
		TicketID: req.TicketID,
		Subject:  req.Subject,
		Amount:   req.Amount,
		UserName: req.UserName,
	})
	if err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			return response.InternalServerError(c, "Telegram credentials not configured")
		}
		return response.ErrorWithDetails(c, fiber.StatusInternalServerError,
			"Failed to send notification", "INTERNAL_ERROR", err.Error())
	}

	return response.SuccessWithMessage(c, "Notification sent", nil)
}
