package handlers

import (
	"github.com/Nisanth-2025/hyperXP/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(router fiber.Router, paymentService *services.PaymentService) {
	router.Post("/payment/create-order", paymentService.CreateOrder)
	router.Post("/payment/verify", paymentService.VerifyPayment)
	router.Post("/payment/failed", paymentService.PaymentFailed)
}
