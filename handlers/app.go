package handlers

import (
	"errors"
	"log"

	"github.com/Nisanth-2025/hyperXP/middleware"
	"github.com/Nisanth-2025/hyperXP/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles everything the HTTP surface routes to.
type Services struct {
	Tournaments  *services.TournamentService
	Payments     *services.PaymentService
	DemoMode     bool
	MetricsToken string
}

// NewApp builds the fiber app with every public route mounted both at the
// root and under /api.
func NewApp(svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: ErrorHandler,
	})

	app.Use(middleware.CORSMiddleware())
	app.Use(middleware.RequestContextMiddleware())

	app.Get("/health", HealthHandler(svc.DemoMode))
	app.Get("/metrics", middleware.MetricsAuthMiddleware(svc.MetricsToken), adaptor.HTTPHandler(promhttp.Handler()))

	for _, router := range []fiber.Router{app, app.Group("/api")} {
		SetupTournamentRoutes(router, svc.Tournaments)
		SetupPaymentRoutes(router, svc.Payments)
	}
	return app
}

// ErrorHandler renders routing errors in the JSON shape clients expect.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusMethodNotAllowed:
			return c.Status(fe.Code).JSON(fiber.Map{"error": "Method not allowed"})
		case fiber.StatusNotFound:
			return c.Status(fe.Code).JSON(fiber.Map{"error": "Not found"})
		}
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	log.Printf("❌ [HTTP] unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
