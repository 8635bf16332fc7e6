package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORSMiddleware allows any origin. Preflight requests are answered with
// an empty 200, which the booking front-end expects.
func CORSMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Method() == fiber.MethodOptions {
			c.Status(fiber.StatusOK)
			return nil
		}
		return c.Next()
	}
}
