package chat

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/model"
	"github.com/supportdesk/topup-api/utils/middleware"
	"github.com/supportdesk/topup-api/utils/response"
	"github.com/supportdesk/topup-api/utils/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Chat endpoints render timestamps the way the admin panel has always
// consumed them. Payment endpoints use RFC3339; the drift between
// generations is part of the contract.
const timeLayout = "2006-01-02 15:04:05"

// ChatHandler handles the session-scoped chat between a visitor and the
// admin, plus the admin-side session listing.
type ChatHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(db *gorm.DB) *ChatHandler {
	return &ChatHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// PostMessageRequest represents the request body for posting a message
type PostMessageRequest struct {
	Message  string `json:"message" validate:"max=4000"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=2048"`
	IsAdmin  bool   `json:"is_admin"`
	Name     string `json:"name" validate:"max=255"`
}

// MessageResponse is a chat message as rendered to clients
type MessageResponse struct {
	ID        uint   `json:"id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	ImageURL  string `json:"image_url,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

func renderMessage(m model.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Message:   m.Message,
		ImageURL:  m.ImageURL,
		IsAdmin:   m.IsAdmin,
		CreatedAt: m.CreatedAt.Format(timeLayout),
	}
}

// ListMessages handles GET /api/v1/chat/messages
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		return response.BadRequest(c, "Session ID required")
	}

	var messages []model.ChatMessage
	if err := h.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch messages")
	}

	rendered := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		rendered = append(rendered, renderMessage(m))
	}

	return response.Success(c, fiber.Map{"messages": rendered})
}

// SessionSummary is one row of the admin session listing
type SessionSummary struct {
	SessionID       string  `json:"session_id"`
	Name            string  `json:"name"`
	CreatedAt       string  `json:"created_at"`
	MessageCount    int64   `json:"message_count"`
	LastMessage     *string `json:"last_message"`
	LastMessageTime *string `json:"last_message_time"`
}

// ListSessions handles GET /api/v1/chat/sessions — every session with
// aggregate last-message info, most recently active first, sessions
// without messages last.
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	var users []model.ChatUser
	if err := h.db.Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch sessions")
	}

	type countRow struct {
		SessionID string
		Count     int64
	}
	var counts []countRow
	if err := h.db.Model(&model.ChatMessage{}).
		Select("session_id, COUNT(*) AS count").
		Group("session_id").
		Scan(&counts).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch sessions")
	}
	countBySession := make(map[string]int64, len(counts))
	for _, r := range counts {
		countBySession[r.SessionID] = r.Count
	}

	// Latest message per session: ids are monotonically increasing for
	// this insert-only table, so MAX(id) is the newest row.
	var lastIDs []uint
	if err := h.db.Model(&model.ChatMessage{}).
		Group("session_id").
		Pluck("MAX(id)", &lastIDs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch sessions")
	}
	lastBySession := make(map[string]model.ChatMessage, len(lastIDs))
	if len(lastIDs) > 0 {
		var lastMessages []model.ChatMessage
		if err := h.db.Where("id IN ?", lastIDs).Find(&lastMessages).Error; err != nil {
			return response.InternalServerError(c, "Failed to fetch sessions")
		}
		for _, m := range lastMessages {
			lastBySession[m.SessionID] = m
		}
	}

	rendered := make([]SessionSummary, 0, len(users))
	lastTimes := make(map[string]time.Time, len(users))
	for _, u := range users {
		item := SessionSummary{
			SessionID:    u.SessionID,
			Name:         u.Name,
			CreatedAt:    u.CreatedAt.Format(timeLayout),
			MessageCount: countBySession[u.SessionID],
		}
		if last, ok := lastBySession[u.SessionID]; ok {
			msg := last.Message
			ts := last.CreatedAt.Format(timeLayout)
			item.LastMessage = &msg
			item.LastMessageTime = &ts
			lastTimes[u.SessionID] = last.CreatedAt
		}
		rendered = append(rendered, item)
	}

	// Most recent activity first; sessions with no messages sort last.
	sort.SliceStable(rendered, func(i, j int) bool {
		ti, iok := lastTimes[rendered[i].SessionID]
		tj, jok := lastTimes[rendered[j].SessionID]
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})

	return response.Success(c, fiber.Map{"sessions": rendered})
}

// PostMessage handles POST /api/v1/chat/messages. Creates the session
// profile on first contact, then appends the message.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	sessionID := middleware.SessionID(c)

	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Message = validation.SanitizeString(req.Message)

	if sessionID == "" || (req.Message == "" && req.ImageURL == "") {
		return response.BadRequest(c, "Session ID and message or image required")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "Invalid message payload")
	}

	// Profile row is insert-if-absent: a later message never renames the
	// session.
	user := model.ChatUser{SessionID: sessionID, Name: req.Name}
	if err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to upsert session")
	}

	message := model.ChatMessage{
		SessionID: sessionID,
		Message:   req.Message,
		ImageURL:  req.ImageURL,
		IsAdmin:   req.IsAdmin,
	}
	if err := h.db.Create(&message).Error; err != nil {
		return response.InternalServerError(c, "Failed to create message")
	}

	return response.Created(c, fiber.Map{"message": renderMessage(message)})
}
