package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Nisanth-2025/hyperXP/models"
)

func newOrderService(store RegistrationStore, gw *fakeGateway, alerter *recordingAlerter) *OrderService {
	return &OrderService{
		Store:    store,
		Gateway:  gw,
		Alerter:  alerter,
		DemoIDs:  NewDemoIDs(testSecret),
		Currency: "INR",
		Now:      func() time.Time { return time.UnixMilli(1718000000123) },
	}
}

func countRegistrations(t *testing.T, store *GormStore) int64 {
	t.Helper()
	var n int64
	if err := store.DB.Model(&models.Registration{}).Count(&n).Error; err != nil {
		t.Fatalf("count registrations: %v", err)
	}
	return n
}

func TestCreateOrderPersistsPendingRegistration(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 10)
	gw := &fakeGateway{secret: testSecret}
	svc := newOrderService(store, gw, &recordingAlerter{})

	res, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{
		TournamentID: "t1",
		UserDetails:  validDetails(),
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if res.Degraded {
		t.Fatal("result should not be degraded")
	}
	if res.Order.Amount != 7500 || res.Order.Currency != "INR" {
		t.Errorf("order = %d %s, want 7500 INR", res.Order.Amount, res.Order.Currency)
	}
	if len(res.Order.Receipt) > 40 {
		t.Errorf("receipt %q longer than 40", res.Order.Receipt)
	}
	if gw.orders[0].Notes["registration_id"] != res.RegistrationID {
		t.Errorf("order notes do not link registration %s", res.RegistrationID)
	}

	reg := loadRegistration(t, store, res.RegistrationID)
	if reg.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("status = %s, want pending", reg.PaymentStatus)
	}
	if reg.RazorpayOrderID != res.Order.ID {
		t.Errorf("order id = %s, want %s", reg.RazorpayOrderID, res.Order.ID)
	}
	if reg.SeatNumber != nil {
		t.Errorf("pending registration has seat %d", *reg.SeatNumber)
	}
	if reg.Age != 21 || !reg.TermsAccepted || !reg.RefundPolicyAccepted {
		t.Errorf("registration fields not persisted: %+v", reg)
	}
}

func TestCreateOrderMissingAge(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 10)
	gw := &fakeGateway{secret: testSecret}
	svc := newOrderService(store, gw, &recordingAlerter{})

	details := validDetails()
	details.Age = ""
	_, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{TournamentID: "t1", UserDetails: details})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if ve.Field != "age" || !strings.Contains(ve.Error(), "age") {
		t.Errorf("validation error %q does not mention age", ve.Error())
	}
	if StatusCode(err) != 400 {
		t.Errorf("status = %d, want 400", StatusCode(err))
	}
	if gw.orderCount() != 0 {
		t.Error("gateway order created for invalid request")
	}
	if n := countRegistrations(t, store); n != 0 {
		t.Errorf("%d registrations created, want 0", n)
	}
}

func TestCreateOrderSoldOut(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 2)
	store.DB.Model(&models.Tournament{}).Where("id = ?", "t1").Update("available_seats", 0)
	gw := &fakeGateway{secret: testSecret}
	svc := newOrderService(store, gw, &recordingAlerter{})

	_, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{TournamentID: "t1", UserDetails: validDetails()})

	var soldOut *SoldOutError
	if !errors.As(err, &soldOut) {
		t.Fatalf("error = %v, want SoldOutError", err)
	}
	if err.Error() != "No seats available for this tournament" {
		t.Errorf("message = %q", err.Error())
	}
	if gw.orderCount() != 0 {
		t.Error("gateway order created for sold-out tournament")
	}
	if n := countRegistrations(t, store); n != 0 {
		t.Errorf("%d registrations created, want 0", n)
	}
}

func TestCreateOrderUnknownTournament(t *testing.T) {
	store := newTestStore(t)
	svc := newOrderService(store, &fakeGateway{secret: testSecret}, &recordingAlerter{})

	_, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{TournamentID: "nope", UserDetails: validDetails()})
	if StatusCode(err) != 404 {
		t.Fatalf("status = %d (%v), want 404", StatusCode(err), err)
	}
}

func TestCreateOrderGatewayErrorCreatesNoRegistration(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 10)
	gw := &fakeGateway{secret: testSecret, err: errors.New("razorpay down")}
	svc := newOrderService(store, gw, &recordingAlerter{})

	_, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{TournamentID: "t1", UserDetails: validDetails()})

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error = %v, want GatewayError", err)
	}
	if StatusCode(err) != 500 {
		t.Errorf("status = %d, want 500", StatusCode(err))
	}
	if n := countRegistrations(t, store); n != 0 {
		t.Errorf("%d registrations created, want 0", n)
	}
}

func TestCreateOrderDegradesWhenRegistrationWriteFails(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 10)
	alerter := &recordingAlerter{}
	svc := newOrderService(failingCreateStore{store}, &fakeGateway{secret: testSecret}, alerter)

	res, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{TournamentID: "t1", UserDetails: validDetails()})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v, want degraded success", err)
	}
	if !res.Degraded {
		t.Error("result should be degraded")
	}
	if !svc.DemoIDs.Orphan(res.RegistrationID) || svc.DemoIDs.Valid(res.RegistrationID) {
		t.Errorf("fallback id %q is not an orphan id", res.RegistrationID)
	}
	if got := alerter.kinds(); len(got) != 1 || got[0] != AlertOrderWithoutRegistration {
		t.Errorf("alerts = %v, want [%s]", got, AlertOrderWithoutRegistration)
	}
}

func TestCreateOrderDemoTournament(t *testing.T) {
	gw := &fakeGateway{secret: testSecret}
	svc := newOrderService(NullStore{}, gw, &recordingAlerter{})

	_, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{
		TournamentID: models.DemoTournamentID, UserDetails: validDetails(),
	})
	if err == nil {
		t.Fatal("demo tournament must not resolve outside demo mode")
	}

	svc.DemoMode = true
	res, err := svc.CreateOrder(context.Background(), models.CreateOrderRequest{
		TournamentID: models.DemoTournamentID, UserDetails: validDetails(),
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if !svc.DemoIDs.Valid(res.RegistrationID) {
		t.Errorf("registration id %q is not a demo id", res.RegistrationID)
	}
	if res.Order.Amount != 7500 {
		t.Errorf("amount = %d, want 7500", res.Order.Amount)
	}
}

func TestValidateOrderRequest(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*models.UserDetails)
		field string
	}{
		{"valid", func(*models.UserDetails) {}, ""},
		{"missing name", func(d *models.UserDetails) { d.Name = " " }, "name"},
		{"age not numeric", func(d *models.UserDetails) { d.Age = "twenty" }, "age"},
		{"age too low", func(d *models.UserDetails) { d.Age = models.AgeOf(12) }, "age"},
		{"age too high", func(d *models.UserDetails) { d.Age = models.AgeOf(100) }, "age"},
		{"youngest allowed age", func(d *models.UserDetails) { d.Age = models.AgeOf(13) }, ""},
		{"oldest allowed age", func(d *models.UserDetails) { d.Age = models.AgeOf(99) }, ""},
		{"age as string", func(d *models.UserDetails) { d.Age = "18" }, ""},
		{"missing game id", func(d *models.UserDetails) { d.GameID = "" }, "gameId"},
		{"missing game username", func(d *models.UserDetails) { d.GameUsername = "" }, "gameUsername"},
		{"short phone", func(d *models.UserDetails) { d.Phone = "98765" }, "phone"},
		{"phone with letters", func(d *models.UserDetails) { d.Phone = "98765abcde" }, "phone"},
		{"bad email", func(d *models.UserDetails) { d.Email = "arjun@" }, "email"},
		{"email without domain dot", func(d *models.UserDetails) { d.Email = "arjun@localhost" }, "email"},
		{"terms not accepted", func(d *models.UserDetails) { d.TermsAccepted = false }, "termsAccepted"},
		{"refund policy not accepted", func(d *models.UserDetails) { d.RefundPolicyAccepted = false }, "refundPolicyAccepted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			tt.edit(d)
			_, err := ValidateOrderRequest(models.CreateOrderRequest{TournamentID: "t1", UserDetails: d})
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %s, want %s", ve.Field, tt.field)
			}
		})
	}

	if _, err := ValidateOrderRequest(models.CreateOrderRequest{TournamentID: "t1"}); err == nil {
		t.Error("missing user details accepted")
	}
	if _, err := ValidateOrderRequest(models.CreateOrderRequest{UserDetails: validDetails()}); err == nil {
		t.Error("missing tournament id accepted")
	}
}

func TestBuildReceipt(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	got := BuildReceipt("3f2c9a7e-1b4d-4e8f-9a0b-7c6d5e4f3a2b", now)
	want := "T6d5e4f3a2b_00000123"
	if got != want {
		t.Errorf("BuildReceipt() = %q, want %q", got, want)
	}
	if len(got) > 40 {
		t.Errorf("receipt longer than 40: %q", got)
	}
	if short := BuildReceipt("t1", now); short != "Tt1_00000123" {
		t.Errorf("BuildReceipt(t1) = %q", short)
	}
}

func TestBuildReceiptMultibyteID(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	cases := map[string]string{
		"cyrillic": "турнир-кубок-чемпионов",
		"emoji":    strings.Repeat("🎮", 12),
		"mixed":    "cup-🏆🏆🏆🏆🏆🏆🏆🏆🏆",
	}
	for name, id := range cases {
		t.Run(name, func(t *testing.T) {
			got := BuildReceipt(id, now)
			if !utf8.ValidString(got) {
				t.Fatalf("receipt is not valid UTF-8: %q", got)
			}
			if len(got) > 40 {
				t.Errorf("receipt is %d bytes: %q", len(got), got)
			}
			if !strings.HasPrefix(got, "T") || !strings.HasSuffix(got, "_00000123") {
				t.Errorf("receipt lost its frame: %q", got)
			}
		})
	}
	if got, want := BuildReceipt(strings.Repeat("🎮", 12), now), "T"+strings.Repeat("🎮", 7)+"_00000123"; got != want {
		t.Errorf("BuildReceipt(emoji) = %q, want %q", got, want)
	}
}
