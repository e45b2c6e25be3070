package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Session and admin-mode headers. The admin flag is a view switch for
// the admin panel, not an authentication mechanism.
const (
	HeaderSessionID = "X-Session-Id"
	HeaderAdminMode = "X-Admin-Mode"
	HeaderTicketID  = "X-Ticket-Id"
)

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// SetupSecurity applies all security middleware
func SetupSecurity(app *fiber.App, config SecurityConfig) {
	// Request ID middleware - add unique ID to each request
	app.Use(requestid.New())

	// Logger middleware - log all requests
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// Recover middleware - recover from panics
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// CORS middleware. The widget is embedded on arbitrary pages, so the
	// origin stays a wildcard; preflights are cached for a day.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + HeaderSessionID + "," + HeaderAdminMode + "," + HeaderTicketID,
		MaxAge:       86400,
	}))

	// Per-IP rate limiting middleware
	if config.RateLimitRequests > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        config.RateLimitRequests,
			Expiration: config.RateLimitWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"error": fiber.Map{
						"code":    "RATE_LIMIT_EXCEEDED",
						"message": "Too many requests. Please try again later.",
					},
				})
			},
		}))
	}
}

// IsAdminMode reports whether the request carries the admin view flag,
// either as the X-Admin-Mode header or the legacy ?admin=true query.
func IsAdminMode(c *fiber.Ctx) bool {
	return c.Get(HeaderAdminMode) == "true" || c.Query("admin") == "true"
}

// SessionID extracts the client-chosen session identifier from the
// request headers.
func SessionID(c *fiber.Ctx) string {
	return c.Get(HeaderSessionID)
}
