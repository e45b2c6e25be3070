package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/database"
	"github.com/supportdesk/topup-api/utils/response"
)

// HandleCheckHealth pings the store.
func HandleCheckHealth(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.HealthCheck(); err != nil {
			return response.ServiceUnavailable(c, "Database unreachable")
		}
		return response.Success(c, fiber.Map{"status": "ok"})
	}
}
