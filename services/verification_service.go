package services

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Nisanth-2025/hyperXP/metrics"
	"github.com/Nisanth-2025/hyperXP/models"
)

const (
	msgVerified        = "Payment verified successfully"
	msgAlreadyVerified = "Payment already verified"
	msgDemoVerified    = "Payment verified (demo mode)"
	msgPendingSeat     = "Payment verified. Your seat will be confirmed by our team shortly; please keep your payment id for support."
)

// VerificationService confirms captured payments and assigns seats.
type VerificationService struct {
	Store    RegistrationStore
	Gateway  PaymentGateway
	Alerter  Alerter
	DemoIDs  DemoIDs
	DemoMode bool
	Now      func() time.Time
}

// VerifyResult is a successful verification. SeatNumber is zero when the
// payment is genuine but the seat could not be recorded.
type VerifyResult struct {
	SeatNumber            int
	Message               string
	AlreadyConfirmed      bool
	PendingReconciliation bool
}

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Verify authenticates the checkout callback and confirms the registration.
//
// Only input and signature problems are reported as errors. Once the
// signature is good the gateway has captured the money, so store failures
// after that point are raised as reconciliation alerts and the caller is
// told the payment succeeded.
func (s *VerificationService) Verify(ctx context.Context, req models.VerifyPaymentRequest) (*VerifyResult, error) {
	if err := validateVerifyRequest(req); err != nil {
		metrics.PaymentsVerifiedTotal.WithLabelValues("invalid").Inc()
		return nil, &VerificationError{Err: err}
	}

	if !s.Gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		log.Printf("❌ [VERIFY] signature mismatch for order %s (registration %s)", req.OrderID, req.RegistrationID)
		metrics.PaymentsVerifiedTotal.WithLabelValues("bad_signature").Inc()
		return nil, &VerificationError{Err: &SignatureError{Reason: "signature mismatch"}}
	}
	log.Printf("✅ [VERIFY] signature verified for order %s", req.OrderID)

	// Issued by the degraded create-order path: the order is real but the
	// registration row was never written, whatever the mode.
	if s.DemoIDs.Orphan(req.RegistrationID) {
		return s.pendingReconciliation(ctx, req, "registration was never persisted"), nil
	}
	if s.DemoIDs.Valid(req.RegistrationID) {
		if s.DemoMode {
			total := models.DemoTournament(s.now()).TotalSeats
			metrics.PaymentsVerifiedTotal.WithLabelValues("demo").Inc()
			return &VerifyResult{SeatNumber: rand.IntN(total) + 1, Message: msgDemoVerified}, nil
		}
		return s.pendingReconciliation(ctx, req, "demo registration paid outside demo mode"), nil
	}

	conf, err := s.Store.ConfirmRegistration(ctx, ConfirmInput{
		RegistrationID: req.RegistrationID,
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		ConfirmedAt:    s.now().UTC(),
	})
	if err != nil {
		var signature *SignatureError
		if errors.As(err, &signature) {
			log.Printf("❌ [VERIFY] order %s does not belong to registration %s", req.OrderID, req.RegistrationID)
			metrics.PaymentsVerifiedTotal.WithLabelValues("order_mismatch").Inc()
			return nil, &VerificationError{Err: err}
		}
		return s.pendingReconciliation(ctx, req, err.Error()), nil
	}

	if conf.AlreadyConfirmed {
		if conf.Registration.RazorpayPaymentID != req.PaymentID {
			log.Printf("⚠️ [VERIFY] registration %s already completed with payment %s, got %s",
				conf.Registration.ID, conf.Registration.RazorpayPaymentID, req.PaymentID)
		}
		metrics.PaymentsVerifiedTotal.WithLabelValues("duplicate").Inc()
		return &VerifyResult{SeatNumber: conf.SeatNumber, Message: msgAlreadyVerified, AlreadyConfirmed: true}, nil
	}

	if conf.Oversold {
		s.Alerter.Alert(ctx, ReconciliationAlert{
			Kind:           AlertOversold,
			RegistrationID: conf.Registration.ID,
			TournamentID:   conf.Tournament.ID,
			OrderID:        req.OrderID,
			PaymentID:      req.PaymentID,
			Detail:         "seat assigned beyond total seats",
		})
	}

	log.Printf("✅ [VERIFY] registration %s confirmed with seat #%d (%d seats left)",
		conf.Registration.ID, conf.SeatNumber, conf.Tournament.AvailableSeats)
	metrics.PaymentsVerifiedTotal.WithLabelValues("confirmed").Inc()
	return &VerifyResult{SeatNumber: conf.SeatNumber, Message: msgVerified}, nil
}

func (s *VerificationService) pendingReconciliation(ctx context.Context, req models.VerifyPaymentRequest, detail string) *VerifyResult {
	s.Alerter.Alert(ctx, ReconciliationAlert{
		Kind:           AlertConfirmationStoreFailure,
		RegistrationID: req.RegistrationID,
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		Detail:         detail,
	})
	metrics.PaymentsVerifiedTotal.WithLabelValues("pending_reconciliation").Inc()
	return &VerifyResult{Message: msgPendingSeat, PendingReconciliation: true}
}

func validateVerifyRequest(req models.VerifyPaymentRequest) error {
	switch {
	case strings.TrimSpace(req.OrderID) == "":
		return invalid("razorpay_order_id", "razorpay_order_id is required")
	case strings.TrimSpace(req.PaymentID) == "":
		return invalid("razorpay_payment_id", "razorpay_payment_id is required")
	case strings.TrimSpace(req.Signature) == "":
		return invalid("razorpay_signature", "razorpay_signature is required")
	case strings.TrimSpace(req.RegistrationID) == "":
		return invalid("registrationId", "registrationId is required")
	}
	return nil
}

// ReportFailure records that the user abandoned checkout or the payment
// failed. Completed registrations are never downgraded.
func (s *VerificationService) ReportFailure(ctx context.Context, req models.PaymentFailedRequest) error {
	if strings.TrimSpace(req.RegistrationID) == "" {
		return invalid("registrationId", "registrationId is required")
	}
	if s.DemoIDs.Valid(req.RegistrationID) {
		log.Printf("🎮 [FAILED] demo registration %s abandoned", req.RegistrationID)
		return nil
	}
	if s.DemoIDs.Orphan(req.RegistrationID) {
		log.Printf("⚠️ [FAILED] unpersisted registration %s abandoned (order %s)", req.RegistrationID, req.OrderID)
		return nil
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "checkout dismissed"
	}

	if req.OrderID != "" {
		reg, err := s.Store.GetRegistration(ctx, req.RegistrationID)
		if err != nil {
			return err
		}
		if reg.RazorpayOrderID != req.OrderID {
			return invalid("razorpay_order_id", "razorpay_order_id does not match registration")
		}
	}

	reg, err := s.Store.MarkRegistrationFailed(ctx, req.RegistrationID, reason)
	if err != nil {
		log.Printf("❌ [FAILED] could not record failure for %s: %v", req.RegistrationID, err)
		return err
	}
	if reg.IsCompleted() {
		log.Printf("⚠️ [FAILED] registration %s is already completed, failure report ignored", reg.ID)
	}
	return nil
}
