package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test_key_secret"

type fakeGateway struct {
	mu     sync.Mutex
	secret string
	err    error
	orders []OrderRequest
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*models.PaymentOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.orders = append(g.orders, req)
	return &models.PaymentOrder{
		ID:       fmt.Sprintf("order_%d", len(g.orders)),
		Entity:   "order",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(g.secret, orderID, paymentID, signature)
}

func (g *fakeGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []ReconciliationAlert
}

func (a *recordingAlerter) Alert(ctx context.Context, alert ReconciliationAlert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
}

func (a *recordingAlerter) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, al := range a.alerts {
		out = append(out, al.Kind)
	}
	return out
}

// failingCreateStore wraps a working store but refuses registration writes.
type failingCreateStore struct {
	RegistrationStore
}

func (failingCreateStore) CreateRegistration(context.Context, *models.Registration) error {
	return &StoreError{Op: "create registration", Err: errors.New("connection refused")}
}

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := NewGormStore(db, nil)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedTournament(t *testing.T, store *GormStore, id string, seats int) models.Tournament {
	t.Helper()
	tournament := models.Tournament{
		ID:             id,
		Title:          "Tournament " + id,
		EntryFee:       75,
		TotalSeats:     seats,
		AvailableSeats: seats,
		TournamentDate: time.Now().Add(48 * time.Hour).UTC(),
		PrizePool:      models.PrizePool{First: 1000, Second: 700, Third: 500},
		Status:         models.TournamentStatusUpcoming,
	}
	if err := store.DB.Create(&tournament).Error; err != nil {
		t.Fatalf("seed tournament: %v", err)
	}
	return tournament
}

func seedPendingRegistration(t *testing.T, store *GormStore, tournamentID, orderID string) models.Registration {
	t.Helper()
	reg := models.Registration{
		TournamentID:         tournamentID,
		UserName:             "Player " + orderID,
		Age:                  21,
		GameID:               "g-" + orderID,
		GameUsername:         "user-" + orderID,
		PhoneNumber:          "9876543210",
		Email:                "player@example.com",
		RazorpayOrderID:      orderID,
		PaymentStatus:        models.PaymentStatusPending,
		TermsAccepted:        true,
		RefundPolicyAccepted: true,
	}
	if err := store.CreateRegistration(context.Background(), &reg); err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	return reg
}

func loadTournament(t *testing.T, store *GormStore, id string) models.Tournament {
	t.Helper()
	var tournament models.Tournament
	if err := store.DB.First(&tournament, "id = ?", id).Error; err != nil {
		t.Fatalf("load tournament: %v", err)
	}
	return tournament
}

func loadRegistration(t *testing.T, store *GormStore, id string) models.Registration {
	t.Helper()
	var reg models.Registration
	if err := store.DB.First(&reg, "id = ?", id).Error; err != nil {
		t.Fatalf("load registration: %v", err)
	}
	return reg
}

func validDetails() *models.UserDetails {
	return &models.UserDetails{
		Name:                 "Arjun",
		Age:                  models.AgeOf(21),
		GameID:               "5123456789",
		GameUsername:         "arjun_ff",
		Phone:                "9876543210",
		Email:                "arjun@example.com",
		TermsAccepted:        true,
		RefundPolicyAccepted: true,
	}
}

func verifyRequest(reg models.Registration, paymentID string) models.VerifyPaymentRequest {
	return models.VerifyPaymentRequest{
		OrderID:        reg.RazorpayOrderID,
		PaymentID:      paymentID,
		Signature:      PaymentSignature(testSecret, reg.RazorpayOrderID, paymentID),
		RegistrationID: reg.ID,
	}
}
