package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationStore is everything the booking services need from the
// database. Implementations must make ConfirmRegistration atomic per
// tournament: two confirmations never observe the same seat counter.
type RegistrationStore interface {
	GetTournament(ctx context.Context, idOrSlug string) (*models.Tournament, error)
	ListUpcomingTournaments(ctx context.Context, now time.Time) ([]models.Tournament, error)
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	ConfirmRegistration(ctx context.Context, in ConfirmInput) (*Confirmation, error)
	MarkRegistrationFailed(ctx context.Context, id, reason string) (*models.Registration, error)
	RecordEvent(ctx context.Context, eventType, aggregateID string, payload any) error
	CloseStartedTournaments(ctx context.Context, now time.Time) (int64, error)
}

// ConfirmInput identifies a verified payment for a registration.
type ConfirmInput struct {
	RegistrationID string
	OrderID        string
	PaymentID      string
	ConfirmedAt    time.Time
}

// Confirmation is the committed outcome of ConfirmRegistration.
type Confirmation struct {
	Registration     models.Registration
	Tournament       models.Tournament
	SeatNumber       int
	AlreadyConfirmed bool
	// Oversold is set when more paid registrations exist than seats.
	Oversold bool
}

const maxSeatRetries = 3

var errSeatConflict = errors.New("seat counter changed concurrently")

// GormStore is the Postgres-backed RegistrationStore.
type GormStore struct {
	DB   *gorm.DB
	Feed ChangeFeed
}

func NewGormStore(db *gorm.DB, feed ChangeFeed) *GormStore {
	return &GormStore{DB: db, Feed: feed}
}

// AutoMigrate creates or updates the tables this store owns.
func (s *GormStore) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.Tournament{},
		&models.Registration{},
		&models.OutboxEvent{},
	)
}

func (s *GormStore) GetTournament(ctx context.Context, idOrSlug string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.WithContext(ctx).
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Kind: "Tournament", ID: idOrSlug}
	}
	if err != nil {
		return nil, &StoreError{Op: "get tournament", Err: err}
	}
	return &t, nil
}

func (s *GormStore) ListUpcomingTournaments(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	err := s.DB.WithContext(ctx).
		Where("tournament_date >= ?", now).
		Order("tournament_date ASC").
		Find(&tournaments).Error
	if err != nil {
		return nil, &StoreError{Op: "list tournaments", Err: err}
	}
	return tournaments, nil
}

func (s *GormStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	ev := ChangeEvent{
		Table:        TableRegistrations,
		Op:           OpInsert,
		Registration: registrationUpdate(reg),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reg).Error; err != nil {
			return err
		}
		return s.notifyTx(tx, ev)
	})
	if err != nil {
		return &StoreError{Op: "create registration", Err: err}
	}
	s.afterCommit(ev)
	return nil
}

func (s *GormStore) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := s.DB.WithContext(ctx).First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Kind: "Registration", ID: id}
	}
	if err != nil {
		return nil, &StoreError{Op: "get registration", Err: err}
	}
	return &reg, nil
}

// ConfirmRegistration completes a registration and takes the next seat of
// its tournament in one transaction. Both rows are locked FOR UPDATE and the
// seat counter is advanced with a compare-and-set, retried a bounded number
// of times if another writer got there first.
func (s *GormStore) ConfirmRegistration(ctx context.Context, in ConfirmInput) (*Confirmation, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSeatRetries; attempt++ {
		conf, events, err := s.confirmOnce(ctx, in)
		if err == nil {
			for _, ev := range events {
				s.afterCommit(ev)
			}
			return conf, nil
		}
		if !errors.Is(err, errSeatConflict) {
			return nil, classifyStoreErr("confirm registration", err)
		}
		lastErr = err
		log.Printf("⚠️ [STORE] seat conflict confirming %s (attempt %d/%d)", in.RegistrationID, attempt, maxSeatRetries)
	}
	return nil, &StoreError{Op: "confirm registration", Err: lastErr}
}

func (s *GormStore) confirmOnce(ctx context.Context, in ConfirmInput) (*Confirmation, []ChangeEvent, error) {
	var conf Confirmation
	var events []ChangeEvent

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&reg, "id = ?", in.RegistrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "Registration", ID: in.RegistrationID}
			}
			return fmt.Errorf("lock registration: %w", err)
		}
		if reg.RazorpayOrderID != in.OrderID {
			return &SignatureError{Reason: "order does not belong to this registration"}
		}

		if reg.IsCompleted() {
			var t models.Tournament
			if err := tx.First(&t, "id = ?", reg.TournamentID).Error; err != nil {
				return fmt.Errorf("load tournament: %w", err)
			}
			conf = Confirmation{Registration: reg, Tournament: t, AlreadyConfirmed: true}
			if reg.SeatNumber != nil {
				conf.SeatNumber = *reg.SeatNumber
			}
			return nil
		}

		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&t, "id = ?", reg.TournamentID).Error; err != nil {
			return fmt.Errorf("lock tournament: %w", err)
		}

		seat := t.ConfirmedCount + 1
		available := t.TotalSeats - seat
		if available < 0 {
			available = 0
		}
		status := t.Status
		if available == 0 && status != models.TournamentStatusClosed {
			status = models.TournamentStatusFull
		}

		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND confirmed_count = ?", t.ID, t.ConfirmedCount).
			Updates(map[string]interface{}{
				"confirmed_count": seat,
				"available_seats": available,
				"status":          status,
			})
		if res.Error != nil {
			return fmt.Errorf("advance seat counter: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errSeatConflict
		}

		confirmedAt := in.ConfirmedAt
		if err := tx.Model(&models.Registration{}).
			Where("id = ?", reg.ID).
			Updates(map[string]interface{}{
				"payment_status":      models.PaymentStatusCompleted,
				"razorpay_payment_id": in.PaymentID,
				"seat_number":         seat,
				"confirmed_at":        confirmedAt,
				"failure_reason":      "",
			}).Error; err != nil {
			return fmt.Errorf("complete registration: %w", err)
		}

		t.ConfirmedCount = seat
		t.AvailableSeats = available
		t.Status = status
		reg.PaymentStatus = models.PaymentStatusCompleted
		reg.RazorpayPaymentID = in.PaymentID
		reg.SeatNumber = &seat
		reg.ConfirmedAt = &confirmedAt
		reg.FailureReason = ""

		if err := recordEventTx(tx, models.EventRegistrationConfirmed, reg.ID, map[string]interface{}{
			"registration_id":     reg.ID,
			"tournament_id":       t.ID,
			"razorpay_order_id":   in.OrderID,
			"razorpay_payment_id": in.PaymentID,
			"seat_number":         seat,
		}); err != nil {
			return err
		}

		seatUpdate := t.SeatUpdate()
		events = []ChangeEvent{
			{Table: TableTournaments, Op: OpUpdate, Tournament: &seatUpdate},
			{Table: TableRegistrations, Op: OpUpdate, Registration: registrationUpdate(&reg)},
		}
		for _, ev := range events {
			if err := s.notifyTx(tx, ev); err != nil {
				return err
			}
		}

		conf = Confirmation{
			Registration: reg,
			Tournament:   t,
			SeatNumber:   seat,
			Oversold:     t.ConfirmedCount > t.TotalSeats,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &conf, events, nil
}

// MarkRegistrationFailed records an abandoned or failed checkout. Completed
// registrations are returned untouched.
func (s *GormStore) MarkRegistrationFailed(ctx context.Context, id, reason string) (*models.Registration, error) {
	var reg models.Registration
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&reg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "Registration", ID: id}
			}
			return err
		}
		if reg.PaymentStatus != models.PaymentStatusPending {
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.Registration{}).
			Where("id = ?", reg.ID).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentStatusFailed,
				"failure_reason": reason,
				"failed_at":      now,
			}).Error; err != nil {
			return err
		}
		reg.PaymentStatus = models.PaymentStatusFailed
		reg.FailureReason = reason
		reg.FailedAt = &now
		changed = true

		return recordEventTx(tx, models.EventRegistrationAbandoned, reg.ID, map[string]interface{}{
			"registration_id":   reg.ID,
			"tournament_id":     reg.TournamentID,
			"razorpay_order_id": reg.RazorpayOrderID,
			"reason":            reason,
		})
	})
	if err != nil {
		return nil, classifyStoreErr("mark registration failed", err)
	}
	if changed {
		log.Printf("⚠️ [STORE] registration %s marked failed: %s", reg.ID, reason)
	}
	return &reg, nil
}

func (s *GormStore) RecordEvent(ctx context.Context, eventType, aggregateID string, payload any) error {
	if err := recordEventTx(s.DB.WithContext(ctx), eventType, aggregateID, payload); err != nil {
		return &StoreError{Op: "record event", Err: err}
	}
	return nil
}

// CloseStartedTournaments closes registration for tournaments whose start
// time has passed.
func (s *GormStore) CloseStartedTournaments(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("status IN ? AND tournament_date < ?", []string{models.TournamentStatusUpcoming, models.TournamentStatusFull}, now).
		Update("status", models.TournamentStatusClosed)
	if res.Error != nil {
		return 0, &StoreError{Op: "close started tournaments", Err: res.Error}
	}
	return res.RowsAffected, nil
}

func (s *GormStore) notifyTx(tx *gorm.DB, ev ChangeEvent) error {
	if s.Feed == nil {
		return nil
	}
	return s.Feed.NotifyTx(tx, ev)
}

func (s *GormStore) afterCommit(ev ChangeEvent) {
	if s.Feed != nil {
		s.Feed.AfterCommit(ev)
	}
}

func recordEventTx(tx *gorm.DB, eventType, aggregateID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	ev := models.OutboxEvent{
		ID:          uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     string(body),
		Status:      models.OutboxStatusPending,
		NextRetry:   time.Now().UTC(),
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("insert outbox %s: %w", eventType, err)
	}
	return nil
}

// classifyStoreErr keeps domain errors raised inside a transaction intact and
// wraps everything else as a StoreError.
func classifyStoreErr(op string, err error) error {
	var (
		notFound  *NotFoundError
		signature *SignatureError
	)
	if errors.As(err, &notFound) || errors.As(err, &signature) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func registrationUpdate(reg *models.Registration) *models.RegistrationUpdate {
	u := &models.RegistrationUpdate{
		TournamentID:  reg.TournamentID,
		UserName:      reg.UserName,
		PaymentStatus: reg.PaymentStatus,
	}
	if reg.SeatNumber != nil {
		u.SeatNumber = *reg.SeatNumber
	}
	return u
}
