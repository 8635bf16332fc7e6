package services

import (
	"errors"
	"log"

	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/gofiber/fiber/v2"
)

// PaymentService exposes order creation and verification over HTTP.
type PaymentService struct {
	Orders   *OrderService
	Verifier *VerificationService
}

func NewPaymentService(orders *OrderService, verifier *VerificationService) *PaymentService {
	return &PaymentService{Orders: orders, Verifier: verifier}
}

func (s *PaymentService) CreateOrder(c *fiber.Ctx) error {
	var req models.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.MessageResponse{Message: "Invalid request body"})
	}

	res, err := s.Orders.CreateOrder(c.UserContext(), req)
	if err != nil {
		var gw *GatewayError
		if errors.As(err, &gw) {
			return c.Status(fiber.StatusInternalServerError).JSON(models.MessageResponse{
				Message: "Failed to create payment order: " + gw.Err.Error(),
			})
		}
		return respondError(c, err)
	}

	return c.JSON(models.CreateOrderResponse{
		Success: true,
		Order: models.OrderSummary{
			ID:       res.Order.ID,
			Amount:   res.Order.Amount,
			Currency: res.Order.Currency,
			Receipt:  res.Order.Receipt,
		},
		RegistrationID: res.RegistrationID,
	})
}

func (s *PaymentService) VerifyPayment(c *fiber.Ctx) error {
	var req models.VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.MessageResponse{Message: "Invalid request body"})
	}

	res, err := s.Verifier.Verify(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.VerifyPaymentResponse{
		Success:    true,
		Message:    res.Message,
		SeatNumber: res.SeatNumber,
	})
}

// PaymentFailed records an abandoned or failed checkout. The client fires
// it without waiting, so the body is always a simple acknowledgement.
func (s *PaymentService) PaymentFailed(c *fiber.Ctx) error {
	var req models.PaymentFailedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.MessageResponse{Message: "Invalid request body"})
	}

	if err := s.Verifier.ReportFailure(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.MessageResponse{Success: true, Message: "Payment failure recorded"})
}

func respondError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
		var store *StoreError
		if errors.As(err, &store) {
			msg = "Service temporarily unavailable"
		}
	}
	return c.Status(status).JSON(models.MessageResponse{Message: msg})
}
