package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"

	"gorm.io/gorm"
)

func TestGetTournamentByIDOrSlug(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 4)
	ctx := context.Background()

	byID, err := store.GetTournament(ctx, "t1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.Slug != "tournament-t1" {
		t.Errorf("slug = %q, want tournament-t1", byID.Slug)
	}
	bySlug, err := store.GetTournament(ctx, "tournament-t1")
	if err != nil || bySlug.ID != "t1" {
		t.Fatalf("by slug: %+v, %v", bySlug, err)
	}

	_, err = store.GetTournament(ctx, "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) || err.Error() != "Tournament not found" {
		t.Errorf("error = %v, want Tournament not found", err)
	}
}

func TestListUpcomingTournamentsOrdersByDate(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	for _, tt := range []struct {
		id   string
		when time.Time
	}{
		{"later", now.Add(72 * time.Hour)},
		{"past", now.Add(-time.Hour)},
		{"soon", now.Add(time.Hour)},
	} {
		tournament := models.Tournament{ID: tt.id, Title: tt.id, EntryFee: 10, TotalSeats: 2, AvailableSeats: 2, TournamentDate: tt.when}
		if err := store.DB.Create(&tournament).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListUpcomingTournaments(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "soon" || got[1].ID != "later" {
		t.Errorf("got %v", got)
	}
	if got[0].Status != models.TournamentStatusUpcoming {
		t.Errorf("default status = %q", got[0].Status)
	}
}

func TestCloseStartedTournaments(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "future", 4)
	started := models.Tournament{
		ID: "started", Title: "Started", EntryFee: 10, TotalSeats: 2, AvailableSeats: 0,
		TournamentDate: time.Now().Add(-time.Minute).UTC(), Status: models.TournamentStatusFull,
	}
	if err := store.DB.Create(&started).Error; err != nil {
		t.Fatal(err)
	}

	n, err := store.CloseStartedTournaments(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("closed %d, want 1", n)
	}
	if got := loadTournament(t, store, "started").Status; got != models.TournamentStatusClosed {
		t.Errorf("started status = %s", got)
	}
	if got := loadTournament(t, store, "future").Status; got != models.TournamentStatusUpcoming {
		t.Errorf("future status = %s", got)
	}
}

func TestFailedRegistrationCanStillComplete(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 3)
	reg := seedPendingRegistration(t, store, "t1", "order_a")
	ctx := context.Background()

	if _, err := store.MarkRegistrationFailed(ctx, reg.ID, "checkout dismissed"); err != nil {
		t.Fatal(err)
	}
	conf, err := store.ConfirmRegistration(ctx, ConfirmInput{
		RegistrationID: reg.ID, OrderID: "order_a", PaymentID: "pay_a", ConfirmedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ConfirmRegistration() error = %v", err)
	}
	if conf.SeatNumber != 1 || conf.Registration.FailureReason != "" {
		t.Errorf("confirmation = %+v", conf)
	}
}

// bumpSeatCounter makes the next `times` tournament updates lose their
// compare-and-set by advancing confirmed_count inside the same transaction.
func bumpSeatCounter(t *testing.T, store *GormStore, times int) *int {
	t.Helper()
	bumps := 0
	err := store.DB.Callback().Update().Before("gorm:update").Register("test:bump_seat_counter", func(db *gorm.DB) {
		if db.Statement.Table != "tournaments" || bumps >= times {
			return
		}
		bumps++
		db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE tournaments SET confirmed_count = confirmed_count + 1 WHERE id = ?", "t1")
	})
	if err != nil {
		t.Fatal(err)
	}
	return &bumps
}

func TestConfirmRegistrationRetriesSeatConflict(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 3)
	reg := seedPendingRegistration(t, store, "t1", "order_a")
	bumps := bumpSeatCounter(t, store, 1)

	conf, err := store.ConfirmRegistration(context.Background(), ConfirmInput{
		RegistrationID: reg.ID, OrderID: "order_a", PaymentID: "pay_a", ConfirmedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ConfirmRegistration() error = %v", err)
	}
	if *bumps != 1 {
		t.Fatalf("conflicts injected = %d, want 1", *bumps)
	}
	// The losing attempt rolled back, so the retry takes the first seat.
	if conf.SeatNumber != 1 {
		t.Errorf("seat = %d, want 1", conf.SeatNumber)
	}
	got := loadTournament(t, store, "t1")
	if got.ConfirmedCount != 1 || got.AvailableSeats != 2 {
		t.Errorf("tournament counters = %d confirmed, %d available", got.ConfirmedCount, got.AvailableSeats)
	}
}

func TestConfirmRegistrationGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newTestStore(t)
	seedTournament(t, store, "t1", 3)
	reg := seedPendingRegistration(t, store, "t1", "order_a")
	bumps := bumpSeatCounter(t, store, 100)

	_, err := store.ConfirmRegistration(context.Background(), ConfirmInput{
		RegistrationID: reg.ID, OrderID: "order_a", PaymentID: "pay_a", ConfirmedAt: time.Now().UTC(),
	})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || !errors.Is(err, errSeatConflict) {
		t.Fatalf("error = %v, want StoreError wrapping the seat conflict", err)
	}
	if *bumps != maxSeatRetries {
		t.Errorf("attempts = %d, want %d", *bumps, maxSeatRetries)
	}
	if got := loadRegistration(t, store, reg.ID); got.PaymentStatus != models.PaymentStatusPending || got.SeatNumber != nil {
		t.Errorf("registration changed after failed confirmation: %+v", got)
	}
}
