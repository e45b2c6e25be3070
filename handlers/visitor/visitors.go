package visitor

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/model"
	"github.com/supportdesk/topup-api/utils/cache"
	"github.com/supportdesk/topup-api/utils/middleware"
	"github.com/supportdesk/topup-api/utils/response"
	"github.com/supportdesk/topup-api/utils/useragent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const presenceKeyPrefix = "presence:"

// VisitorHandler tracks sessions for the admin panel: device/browser/OS
// classification, page views and two notions of "online" — the 5-minute
// activity window on visitors, and the 30-second presence gauge.
type VisitorHandler struct {
	db  *gorm.DB
	cfg *config.Config
	// Optional: when Redis is configured the presence gauge lives there
	// as TTL keys instead of the presence_pings table.
	presence *cache.RedisCache
}

// NewVisitorHandler creates a new visitor handler. presence may be nil.
func NewVisitorHandler(db *gorm.DB, cfg *config.Config, presence *cache.RedisCache) *VisitorHandler {
	return &VisitorHandler{
		db:       db,
		cfg:      cfg,
		presence: presence,
	}
}

// TrackRequest represents the request body for a tracking call
type TrackRequest struct {
	SessionID string `json:"session_id"`
}

// VisitorResponse is a visitor row as rendered to the admin panel
type VisitorResponse struct {
	ID              uint   `json:"id"`
	SessionID       string `json:"session_id"`
	IPAddress       string `json:"ip_address"`
	DeviceType      string `json:"device_type"`
	Browser         string `json:"browser"`
	OS              string `json:"os"`
	FirstVisit      string `json:"first_visit"`
	LastActivity    string `json:"last_activity"`
	IsOnline        bool   `json:"is_online"`
	PageViews       int    `json:"page_views"`
	CurrentlyOnline bool   `json:"currently_online"`
}

// Track handles POST /api/v1/track. Upserts the visitor row: repeat
// calls bump page_views and refresh last_activity instead of inserting.
func (h *VisitorHandler) Track(c *fiber.Ctx) error {
	var req TrackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.SessionID == "" {
		req.SessionID = middleware.SessionID(c)
	}
	if req.SessionID == "" {
		return response.BadRequest(c, "session_id required")
	}

	userAgent := c.Get(fiber.HeaderUserAgent)
	if userAgent == "" {
		userAgent = "Unknown"
	}

	now := time.Now()
	var existing model.Visitor
	err := h.db.Where("session_id = ?", req.SessionID).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"last_activity": now,
			"is_online":     true,
			"page_views":    gorm.Expr("page_views + 1"),
		}
		if err := h.db.Model(&existing).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update visitor")
		}
	case err == gorm.ErrRecordNotFound:
		visitor := model.Visitor{
			SessionID:    req.SessionID,
			IPAddress:    c.IP(),
			UserAgent:    userAgent,
			DeviceType:   useragent.DeviceType(userAgent),
			Browser:      useragent.Browser(userAgent),
			OS:           useragent.OS(userAgent),
			LastActivity: now,
			IsOnline:     true,
			PageViews:    1,
		}
		if err := h.db.Create(&visitor).Error; err != nil {
			return response.InternalServerError(c, "Failed to create visitor")
		}
	default:
		return response.InternalServerError(c, "Failed to fetch visitor")
	}

	return response.Success(c, fiber.Map{"success": true})
}

// ListVisitors handles GET /api/v1/visitors — up to 100 rows, most
// recently active first, with currently_online derived at read time.
func (h *VisitorHandler) ListVisitors(c *fiber.Ctx) error {
	var visitors []model.Visitor
	if err := h.db.Order("last_activity DESC").Limit(100).Find(&visitors).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch visitors")
	}

	cutoff := time.Now().Add(-h.cfg.VisitorOnlineWindow)
	rendered := make([]VisitorResponse, 0, len(visitors))
	for _, v := range visitors {
		rendered = append(rendered, VisitorResponse{
			ID:              v.ID,
			SessionID:       v.SessionID,
			IPAddress:       v.IPAddress,
			DeviceType:      v.DeviceType,
			Browser:         v.Browser,
			OS:              v.OS,
			FirstVisit:      v.FirstVisit.Format(time.RFC3339),
			LastActivity:    v.LastActivity.Format(time.RFC3339),
			IsOnline:        v.IsOnline,
			PageViews:       v.PageViews,
			CurrentlyOnline: v.LastActivity.After(cutoff),
		})
	}

	return response.Success(c, fiber.Map{"visitors": rendered})
}

// OnlineCount handles GET /api/v1/online?session=. Registers a presence
// ping for the caller, drops pings past the presence window and returns
// the surviving count — an approximate concurrent-online gauge.
func (h *VisitorHandler) OnlineCount(c *fiber.Ctx) error {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = middleware.SessionID(c)
	}
	if sessionID == "" {
		return response.BadRequest(c, "session required")
	}

	if h.presence != nil {
		return h.onlineCountRedis(c, sessionID)
	}

	now := time.Now()
	ping := model.PresencePing{SessionID: sessionID, LastSeen: now}
	if err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen"}),
	}).Create(&ping).Error; err != nil {
		return response.InternalServerError(c, "Failed to record presence")
	}

	cutoff := now.Add(-h.cfg.PresenceWindow)
	if err := h.db.Where("last_seen < ?", cutoff).Delete(&model.PresencePing{}).Error; err != nil {
		return response.InternalServerError(c, "Failed to purge presence")
	}

	var count int64
	if err := h.db.Model(&model.PresencePing{}).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to count presence")
	}

	return response.Success(c, fiber.Map{"online_count": count})
}

func (h *VisitorHandler) onlineCountRedis(c *fiber.Ctx, sessionID string) error {
	ctx := c.Context()

	// Expiry does the purging: each ping refreshes the key TTL.
	if err := h.presence.Set(ctx, presenceKeyPrefix+sessionID, "1", h.cfg.PresenceWindow); err != nil {
		return response.InternalServerError(c, "Failed to record presence")
	}

	count, err := h.presence.CountKeys(ctx, presenceKeyPrefix+"*")
	if err != nil {
		return response.InternalServerError(c, "Failed to count presence")
	}

	return response.Success(c, fiber.Map{"online_count": count})
}
