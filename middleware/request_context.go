package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/Nisanth-2025/hyperXP/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestContextMiddleware tags each request with an id, logs it and
// records the request metrics.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals("request_id", requestID)
		c.Set(RequestIDHeader, requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// Route pattern, not the raw path, to keep label cardinality bounded.
		route := c.Route().Path
		metrics.HTTPRequestsTotal.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, c.Method()).Observe(time.Since(start).Seconds())

		log.Printf("➡️ [HTTP] %s %s -> %d (%s) id=%s", c.Method(), c.Path(), status, time.Since(start).Round(time.Millisecond), requestID)
		return err
	}
}
