package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError is bad or missing input the user can correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means a referenced tournament or registration is unknown.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Kind)
}

// SoldOutError means no seats remain; order creation had no side effects.
type SoldOutError struct {
	TournamentID string
	Reason       string
}

func (e *SoldOutError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "No seats available for this tournament"
}

// GatewayError wraps a failure talking to the payment provider.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// SignatureError means the checkout callback could not be authenticated.
// It is never retried and never grants a seat.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "Payment verification failed: " + e.Reason
}

// StoreError wraps a failure of the registration store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// VerificationError is reported to the client when verification fails
// before any payment state could be confirmed.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return e.Err.Error()
}

func (e *VerificationError) Unwrap() error { return e.Err }

// ErrStoreUnavailable is returned by the null store when no database is configured.
var ErrStoreUnavailable = errors.New("registration store not configured")

// StatusCode maps the error taxonomy onto HTTP status codes.
func StatusCode(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		soldOut    *SoldOutError
		signature  *SignatureError
		gateway    *GatewayError
		store      *StoreError
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &soldOut):
		return fiber.StatusBadRequest
	case errors.As(err, &signature):
		return fiber.StatusBadRequest
	case errors.As(err, &gateway), errors.As(err, &store):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
