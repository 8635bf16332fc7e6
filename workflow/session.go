// Package workflow drives one user's booking from terms acceptance to a
// confirmed seat. A Session holds all per-user state; nothing is shared
// between sessions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"
)

type State int

const (
	Idle State = iota
	TermsPending
	RegistrationFormOpen
	OrderCreating
	AwaitingGatewayPayment
	Verifying
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case TermsPending:
		return "TermsPending"
	case RegistrationFormOpen:
		return "RegistrationFormOpen"
	case OrderCreating:
		return "OrderCreating"
	case AwaitingGatewayPayment:
		return "AwaitingGatewayPayment"
	case Verifying:
		return "Verifying"
	case Confirmed:
		return "Confirmed"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const failureReportTimeout = 5 * time.Second

var (
	ErrNoSeats        = errors.New("No seats available for this tournament")
	ErrTermsRequired  = errors.New("Please accept the terms and the refund policy to continue")
	ErrInvalidForm    = errors.New("Please fill in all required fields")
	ErrCheckoutLoad   = errors.New("Payment system failed to load. Please refresh the page and try again")
	ErrPaymentAborted = errors.New("Payment was cancelled")
	ErrContactSupport = errors.New("Payment verification failed. Please contact support with your payment id")
)

// TransitionError reports an action that is not allowed in the current state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

// API is the booking backend.
type API interface {
	Tournament(ctx context.Context, idOrSlug string) (*models.Tournament, error)
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error)
	ReportFailure(ctx context.Context, req models.PaymentFailedRequest) error
}

// CheckoutOptions prefill the gateway's checkout widget.
type CheckoutOptions struct {
	OrderID  string
	Amount   int64
	Currency string
	Title    string
	Name     string
	Email    string
	Contact  string
}

// PaymentResult is the gateway's success callback.
type PaymentResult struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Checkout opens the gateway's payment widget. The widget later reports
// back through Session.PaymentCompleted or Session.PaymentDismissed.
type Checkout interface {
	Open(ctx context.Context, opts CheckoutOptions) error
}

// Session is one user's booking of one tournament.
type Session struct {
	API      API
	Checkout Checkout
	Loader   Loader

	// LoadDelay is the pause between checkout script load attempts.
	LoadDelay time.Duration

	mu                   sync.Mutex
	state                State
	tournament           models.Tournament
	termsAccepted        bool
	refundPolicyAccepted bool
	details              models.UserDetails
	order                models.OrderSummary
	registrationID       string
	seatNumber           int
	message              string
	lastErr              error
	fieldErrors          map[string]string
	retryable            bool
}

func NewSession(api API, checkout Checkout, loader Loader, tournament models.Tournament) *Session {
	return &Session{
		API:        api,
		Checkout:   checkout,
		Loader:     loader,
		LoadDelay:  time.Second,
		tournament: tournament,
	}
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	State          State
	Tournament     models.Tournament
	Order          models.OrderSummary
	RegistrationID string
	SeatNumber     int
	Message        string
	Err            error
	FieldErrors    map[string]string
	CanRetry       bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fe := make(map[string]string, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		fe[k] = v
	}
	return Snapshot{
		State:          s.state,
		Tournament:     s.tournament,
		Order:          s.order,
		RegistrationID: s.registrationID,
		SeatNumber:     s.seatNumber,
		Message:        s.message,
		Err:            s.lastErr,
		FieldErrors:    fe,
		CanRetry:       s.state == Failed && s.retryable,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a booking. With no seats left the session stays Idle.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return &TransitionError{From: s.state, Action: "start booking"}
	}
	if !s.tournament.IsBookable() {
		s.lastErr = ErrNoSeats
		return ErrNoSeats
	}
	s.lastErr = nil
	s.state = TermsPending
	return nil
}

// AcceptTerms opens the registration form once both boxes are ticked.
func (s *Session) AcceptTerms(terms, refundPolicy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TermsPending {
		return &TransitionError{From: s.state, Action: "accept terms"}
	}
	s.termsAccepted, s.refundPolicyAccepted = terms, refundPolicy
	if !terms || !refundPolicy {
		s.lastErr = ErrTermsRequired
		return ErrTermsRequired
	}
	s.lastErr = nil
	s.state = RegistrationFormOpen
	return nil
}

// Submit validates the form, creates the order and opens checkout. A form
// with missing fields leaves the session on the form with FieldErrors set.
func (s *Session) Submit(ctx context.Context, details models.UserDetails) error {
	s.mu.Lock()
	if s.state != RegistrationFormOpen {
		defer s.mu.Unlock()
		return &TransitionError{From: s.state, Action: "submit registration"}
	}
	if fe := requiredFieldErrors(details); len(fe) > 0 {
		s.fieldErrors = fe
		s.lastErr = ErrInvalidForm
		s.mu.Unlock()
		return ErrInvalidForm
	}
	details.TermsAccepted = s.termsAccepted
	details.RefundPolicyAccepted = s.refundPolicyAccepted
	s.details = details
	s.fieldErrors = nil
	s.lastErr = nil
	s.state = OrderCreating
	tournament := s.tournament
	s.mu.Unlock()

	if s.Loader != nil {
		if err := LoadWithRetry(ctx, s.Loader, loadAttempts, s.LoadDelay); err != nil {
			log.Printf("❌ [BOOKING] checkout script: %v", err)
			return s.fail(OrderCreating, ErrCheckoutLoad, true)
		}
	}

	resp, err := s.API.CreateOrder(ctx, models.CreateOrderRequest{
		TournamentID: tournament.ID,
		UserDetails:  &details,
	})
	if err != nil {
		return s.fail(OrderCreating, err, true)
	}

	s.mu.Lock()
	s.order = resp.Order
	s.registrationID = resp.RegistrationID
	s.state = AwaitingGatewayPayment
	s.mu.Unlock()

	opts := CheckoutOptions{
		OrderID:  resp.Order.ID,
		Amount:   resp.Order.Amount,
		Currency: resp.Order.Currency,
		Title:    tournament.Title,
		Name:     details.Name,
		Email:    details.Email,
		Contact:  details.Phone,
	}
	if err := s.Checkout.Open(ctx, opts); err != nil {
		log.Printf("❌ [BOOKING] checkout open: %v", err)
		s.mu.Lock()
		report := s.failureRequest("checkout failed to open")
		s.mu.Unlock()
		s.reportFailure(ctx, report)
		return s.fail(AwaitingGatewayPayment, ErrCheckoutLoad, true)
	}
	return nil
}

// PaymentCompleted verifies the gateway callback and assigns the seat.
func (s *Session) PaymentCompleted(ctx context.Context, res PaymentResult) error {
	s.mu.Lock()
	if s.state != AwaitingGatewayPayment {
		defer s.mu.Unlock()
		return &TransitionError{From: s.state, Action: "complete payment"}
	}
	if res.OrderID == "" {
		res.OrderID = s.order.ID
	}
	s.state = Verifying
	regID := s.registrationID
	s.mu.Unlock()

	resp, err := s.API.VerifyPayment(ctx, models.VerifyPaymentRequest{
		OrderID:        res.OrderID,
		PaymentID:      res.PaymentID,
		Signature:      res.Signature,
		RegistrationID: regID,
	})
	if err != nil {
		log.Printf("❌ [BOOKING] verification of %s failed: %v", res.PaymentID, err)
		return s.fail(Verifying, fmt.Errorf("%w: %v", ErrContactSupport, err), false)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seatNumber = resp.SeatNumber
	s.message = resp.Message
	s.state = Confirmed
	return nil
}

// PaymentDismissed handles the user closing checkout without paying. The
// backend is told so the pending registration does not linger.
func (s *Session) PaymentDismissed(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.state != AwaitingGatewayPayment {
		defer s.mu.Unlock()
		return &TransitionError{From: s.state, Action: "dismiss payment"}
	}
	// Leave AwaitingGatewayPayment before the report goes out, so a success
	// callback racing the dismissal is rejected instead of being overwritten.
	report := s.failureRequest(reason)
	s.lastErr = ErrPaymentAborted
	s.retryable = true
	s.state = Failed
	s.mu.Unlock()

	s.reportFailure(ctx, report)
	return ErrPaymentAborted
}

// Retry returns a failed booking to the form. Failures after payment are
// not retryable; the user has to contact support.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Failed || !s.retryable {
		return &TransitionError{From: s.state, Action: "retry"}
	}
	s.order = models.OrderSummary{}
	s.registrationID = ""
	s.lastErr = nil
	s.state = RegistrationFormOpen
	return nil
}

// ApplySeatUpdate refreshes the displayed seat counts. It never changes
// the booking state.
func (s *Session) ApplySeatUpdate(u models.SeatUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.TournamentID != s.tournament.ID {
		return
	}
	s.tournament.AvailableSeats = u.AvailableSeats
	if u.TotalSeats > 0 {
		s.tournament.TotalSeats = u.TotalSeats
	}
	if u.Status != "" {
		s.tournament.Status = u.Status
	}
}

// Refresh refetches the tournament, e.g. after a stream reconnect.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	id := s.tournament.ID
	s.mu.Unlock()

	t, err := s.API.Tournament(ctx, id)
	if err != nil {
		return err
	}
	s.ApplySeatUpdate(t.SeatUpdate())
	return nil
}

// fail moves the session from the given state to Failed. A session that
// has already moved on is left as it is.
func (s *Session) fail(from State, err error, retryable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return err
	}
	s.lastErr = err
	s.retryable = retryable
	s.state = Failed
	return err
}

// failureRequest describes the current order. Callers hold s.mu.
func (s *Session) failureRequest(reason string) models.PaymentFailedRequest {
	return models.PaymentFailedRequest{
		RegistrationID: s.registrationID,
		OrderID:        s.order.ID,
		Reason:         reason,
	}
}

// reportFailure is best effort; its outcome never changes the session.
func (s *Session) reportFailure(ctx context.Context, req models.PaymentFailedRequest) {
	if req.RegistrationID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureReportTimeout)
	defer cancel()
	if err := s.API.ReportFailure(ctx, req); err != nil {
		log.Printf("⚠️ [BOOKING] failure report for %s not delivered: %v", req.RegistrationID, err)
	}
}

func requiredFieldErrors(d models.UserDetails) map[string]string {
	fe := map[string]string{}
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			fe[field] = field + " is required"
		}
	}
	check("name", d.Name)
	check("age", string(d.Age))
	check("gameId", d.GameID)
	check("gameUsername", d.GameUsername)
	check("phone", d.Phone)
	check("email", d.Email)
	if len(fe) == 0 {
		return nil
	}
	return fe
}
