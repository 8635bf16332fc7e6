package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Nisanth-2025/hyperXP/metrics"
	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/google/uuid"
)

const (
	// Razorpay rejects receipts longer than this.
	maxReceiptLen = 40
	minAge        = 13
	maxAge        = 99
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// OrderService creates a gateway order and the matching pending
// registration for a booking request.
type OrderService struct {
	Store    RegistrationStore
	Gateway  PaymentGateway
	Alerter  Alerter
	DemoIDs  DemoIDs
	DemoMode bool
	Currency string
	Now      func() time.Time
}

// OrderResult is a created order and the registration it pays for.
// Degraded is set when the registration could not be persisted.
type OrderResult struct {
	Order          *models.PaymentOrder
	RegistrationID string
	Degraded       bool
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateOrder validates the request, checks seat availability, creates the
// gateway order and then the pending registration.
//
// When the registration write fails after the order exists, the order is
// still returned with a synthesized registration id and a reconciliation
// alert is raised: the customer can pay, but the booking has no durable
// row until someone reconciles it.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*OrderResult, error) {
	age, err := ValidateOrderRequest(req)
	if err != nil {
		metrics.OrdersCreatedTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	details := req.UserDetails

	tournament, demo, err := s.resolveTournament(ctx, req.TournamentID)
	if err != nil {
		metrics.OrdersCreatedTotal.WithLabelValues("tournament_error").Inc()
		return nil, err
	}

	if tournament.Status == models.TournamentStatusClosed {
		metrics.OrdersCreatedTotal.WithLabelValues("sold_out").Inc()
		return nil, &SoldOutError{TournamentID: tournament.ID, Reason: "Registration is closed for this tournament"}
	}
	if tournament.AvailableSeats <= 0 {
		log.Printf("❌ [ORDER] no seats available for tournament %s", tournament.ID)
		metrics.OrdersCreatedTotal.WithLabelValues("sold_out").Inc()
		return nil, &SoldOutError{TournamentID: tournament.ID}
	}
	if tournament.EntryFee <= 0 {
		metrics.OrdersCreatedTotal.WithLabelValues("invalid").Inc()
		return nil, invalid("tournamentId", "Tournament has no entry fee configured")
	}

	registrationID := uuid.NewString()
	if demo {
		registrationID = s.DemoIDs.New()
	}

	orderReq := OrderRequest{
		Amount:   tournament.EntryFee * 100,
		Currency: s.Currency,
		Receipt:  BuildReceipt(tournament.ID, s.now()),
		Notes: map[string]string{
			"tournament_id":   tournament.ID,
			"registration_id": registrationID,
			"user_email":      details.Email,
			"user_name":       details.Name,
		},
	}

	start := time.Now()
	order, err := s.Gateway.CreateOrder(ctx, orderReq)
	metrics.GatewayRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("❌ [ORDER] gateway order for tournament %s failed: %v", tournament.ID, err)
		metrics.OrdersCreatedTotal.WithLabelValues("gateway_error").Inc()
		var gw *GatewayError
		if errors.As(err, &gw) {
			return nil, err
		}
		return nil, &GatewayError{Op: "create order", Err: err}
	}
	log.Printf("✅ [ORDER] gateway order %s created for tournament %s (amount %d %s)", order.ID, tournament.ID, order.Amount, order.Currency)

	if demo {
		metrics.OrdersCreatedTotal.WithLabelValues("demo").Inc()
		return &OrderResult{Order: order, RegistrationID: registrationID}, nil
	}

	reg := &models.Registration{
		ID:                   registrationID,
		TournamentID:         tournament.ID,
		UserName:             strings.TrimSpace(details.Name),
		Age:                  age,
		GameID:               strings.TrimSpace(details.GameID),
		GameUsername:         strings.TrimSpace(details.GameUsername),
		PhoneNumber:          strings.TrimSpace(details.Phone),
		Email:                strings.TrimSpace(details.Email),
		RazorpayOrderID:      order.ID,
		PaymentStatus:        models.PaymentStatusPending,
		TermsAccepted:        details.TermsAccepted,
		RefundPolicyAccepted: details.RefundPolicyAccepted,
	}
	if err := s.Store.CreateRegistration(ctx, reg); err != nil {
		fallbackID := s.DemoIDs.NewOrphan()
		log.Printf("⚠️ [ORDER] registration write failed for order %s, continuing with %s: %v", order.ID, fallbackID, err)
		s.Alerter.Alert(ctx, ReconciliationAlert{
			Kind:           AlertOrderWithoutRegistration,
			RegistrationID: fallbackID,
			TournamentID:   tournament.ID,
			OrderID:        order.ID,
			Detail:         err.Error(),
		})
		metrics.OrdersCreatedTotal.WithLabelValues("degraded").Inc()
		return &OrderResult{Order: order, RegistrationID: fallbackID, Degraded: true}, nil
	}

	metrics.OrdersCreatedTotal.WithLabelValues("created").Inc()
	return &OrderResult{Order: order, RegistrationID: reg.ID}, nil
}

func (s *OrderService) resolveTournament(ctx context.Context, id string) (*models.Tournament, bool, error) {
	if s.DemoMode && id == models.DemoTournamentID {
		t := models.DemoTournament(s.now())
		return &t, true, nil
	}
	t, err := s.Store.GetTournament(ctx, id)
	if err != nil {
		log.Printf("❌ [ORDER] tournament %s lookup failed: %v", id, err)
		return nil, false, err
	}
	return t, false, nil
}

// ValidateOrderRequest checks a booking request field by field and stops at
// the first problem. It returns the parsed age.
func ValidateOrderRequest(req models.CreateOrderRequest) (int, error) {
	if strings.TrimSpace(req.TournamentID) == "" {
		return 0, invalid("tournamentId", "Tournament ID and user details are required")
	}
	d := req.UserDetails
	if d == nil {
		return 0, invalid("userDetails", "Tournament ID and user details are required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return 0, invalid("name", "name is required")
	}
	if d.Age == "" {
		return 0, invalid("age", "age is required")
	}
	age, err := d.Age.Int()
	if err != nil {
		return 0, invalid("age", "age must be a number")
	}
	if age < minAge || age > maxAge {
		return 0, invalid("age", "age must be between %d and %d", minAge, maxAge)
	}
	if strings.TrimSpace(d.GameID) == "" {
		return 0, invalid("gameId", "gameId is required")
	}
	if strings.TrimSpace(d.GameUsername) == "" {
		return 0, invalid("gameUsername", "gameUsername is required")
	}
	phone := strings.TrimSpace(d.Phone)
	if phone == "" {
		return 0, invalid("phone", "phone is required")
	}
	if !phonePattern.MatchString(phone) {
		return 0, invalid("phone", "phone must be a 10-digit number")
	}
	email := strings.TrimSpace(d.Email)
	if email == "" {
		return 0, invalid("email", "email is required")
	}
	if !validEmail(email) {
		return 0, invalid("email", "email is invalid")
	}
	if !d.TermsAccepted {
		return 0, invalid("termsAccepted", "termsAccepted must be true")
	}
	if !d.RefundPolicyAccepted {
		return 0, invalid("refundPolicyAccepted", "refundPolicyAccepted must be true")
	}
	return age, nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// BuildReceipt derives the gateway receipt from the last 10 characters of
// the tournament id and the last 8 digits of the millisecond clock.
// Uniqueness is best effort: two orders for the same tournament within the
// same millisecond (or 10^8 ms apart) collide.
func BuildReceipt(tournamentID string, now time.Time) string {
	suffix := "_" + lastRunes(strconv.FormatInt(now.UnixMilli(), 10), 8)
	id := lastRunes(tournamentID, 10)
	// The limit is in bytes; drop whole leading runes of the id to fit.
	for len(id) > 0 && 1+len(id)+len(suffix) > maxReceiptLen {
		_, size := utf8.DecodeRuneInString(id)
		id = id[size:]
	}
	return "T" + id + suffix
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
