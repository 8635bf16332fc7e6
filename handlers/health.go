package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func HealthHandler(demoMode bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "demo_mode": demoMode})
	}
}
