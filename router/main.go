package router

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/database"
	"github.com/supportdesk/topup-api/handlers"
	chat_handlers "github.com/supportdesk/topup-api/handlers/chat"
	notify_handlers "github.com/supportdesk/topup-api/handlers/notifyhttp"
	payment_handlers "github.com/supportdesk/topup-api/handlers/payment"
	ticket_handlers "github.com/supportdesk/topup-api/handlers/ticket"
	upload_handlers "github.com/supportdesk/topup-api/handlers/upload"
	visitor_handlers "github.com/supportdesk/topup-api/handlers/visitor"
	"github.com/supportdesk/topup-api/services/notify"
	"github.com/supportdesk/topup-api/services/ratelimit"
	"github.com/supportdesk/topup-api/services/storage"
	"github.com/supportdesk/topup-api/utils/cache"
	"github.com/supportdesk/topup-api/utils/middleware"
	"github.com/supportdesk/topup-api/utils/response"
)

// SetupRoutes wires every handler with its injected dependencies.
func SetupRoutes(app *fiber.App, store database.Storage, cfg *config.Config) {
	db := store.GetDB()

	// Notification sender: real Telegram when credentials are present.
	var sender notify.Sender
	if cfg.TELEGRAM_BOT_TOKEN != "" && cfg.TELEGRAM_CHAT_ID != "" {
		sender = notify.NewTelegramSender(cfg.TELEGRAM_API_URL, cfg.TELEGRAM_BOT_TOKEN, cfg.TELEGRAM_CHAT_ID, db)
	} else {
		log.Println("Telegram credentials not set; notifications disabled")
		sender = notify.NoopSender{}
	}

	// Optional Redis presence backend.
	var presence *cache.RedisCache
	if cfg.REDIS_URL != "" {
		var err error
		presence, err = cache.NewRedisCache(cfg.REDIS_URL)
		if err != nil {
			log.Printf("Warning: failed to connect to Redis: %v. Presence falls back to the database.", err)
			presence = nil
		}
	}

	// Optional object storage for attachments.
	uploader, err := storage.NewSpacesClient(cfg)
	if err != nil {
		log.Printf("Warning: failed to init object storage: %v. Uploads disabled.", err)
	}

	// One creation quota shared by tickets and payment requests; the
	// counters stay separate per table.
	limiter := ratelimit.NewSessionLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)

	chatHandler := chat_handlers.NewChatHandler(db)
	ticketHandler := ticket_handlers.NewTicketHandler(db, limiter, sender)
	paymentHandler := payment_handlers.NewPaymentHandler(db, limiter, sender)
	visitorHandler := visitor_handlers.NewVisitorHandler(db, cfg, presence)
	notifyHandler := notify_handlers.NewNotifyHandler(sender)
	uploadHandler := upload_handlers.NewUploadHandler(uploaderOrNil(uploader))

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HandleCheckHealth(store))

	// API v1 group
	api := app.Group("/api/v1")

	// Chat routes
	chat := api.Group("/chat")
	chat.Get("/messages", chatHandler.ListMessages) // Visitor: own thread
	chat.Post("/messages", chatHandler.PostMessage) // Visitor or admin reply
	chat.Get("/sessions", chatHandler.ListSessions) // Admin: all sessions

	// Ticket routes (unified: listing, thread, quota-limited creation)
	tickets := api.Group("/tickets")
	tickets.Get("/", ticketHandler.ListTickets)          // Admin: all tickets with threads
	tickets.Post("/", ticketHandler.CreateTicket)        // Visitor: create with quota
	tickets.Get("/:id", ticketHandler.GetTicket)         // Ticket + thread
	tickets.Put("/:id", ticketHandler.UpdateTicket)      // Admin: status/priority/assignee
	tickets.Post("/:id/messages", ticketHandler.PostMessage)

	// Legacy payment requests
	payments := api.Group("/payment-requests")
	payments.Get("/", paymentHandler.ListRequests)
	payments.Post("/", paymentHandler.CreateRequest)
	payments.Put("/:id", paymentHandler.UpdateStatus)

	// Visitor tracking
	api.Post("/track", visitorHandler.Track)
	api.Get("/visitors", visitorHandler.ListVisitors)
	api.Get("/online", visitorHandler.OnlineCount)

	// Manual notification dispatch
	api.Post("/notify", notifyHandler.Send)

	// Attachment uploads
	api.Post("/uploads", uploadHandler.Upload)

	// Known paths with the wrong method get 405, everything else 404.
	app.Use(func(c *fiber.Ctx) error {
		if isKnownPath(c.Path()) {
			return response.MethodNotAllowed(c)
		}
		return response.NotFound(c, "Route not found")
	})
}

// knownPaths mirrors the registered routes above; :param segments match
// any non-empty segment.
var knownPaths = []string{
	"/ping",
	"/api/v1/chat/messages",
	"/api/v1/chat/sessions",
	"/api/v1/tickets",
	"/api/v1/tickets/:id",
	"/api/v1/tickets/:id/messages",
	"/api/v1/payment-requests",
	"/api/v1/payment-requests/:id",
	"/api/v1/track",
	"/api/v1/visitors",
	"/api/v1/online",
	"/api/v1/notify",
	"/api/v1/uploads",
}

func isKnownPath(path string) bool {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, pattern := range knownPaths {
		if matchPath(pattern, path) {
			return true
		}
	}
	return false
}

func matchPath(pattern, path string) bool {
	p := strings.Split(pattern, "/")
	s := strings.Split(path, "/")
	if len(p) != len(s) {
		return false
	}
	for i := range p {
		if strings.HasPrefix(p[i], ":") {
			if s[i] == "" {
				return false
			}
			continue
		}
		if p[i] != s[i] {
			return false
		}
	}
	return true
}

// uploaderOrNil keeps the *SpacesClient(nil) from masquerading as a
// non-nil Uploader interface.
func uploaderOrNil(s *storage.SpacesClient) storage.Uploader {
	if s == nil {
		return nil
	}
	return s
}
