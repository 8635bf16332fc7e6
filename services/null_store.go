package services

import (
	"context"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"
)

// NullStore stands in when no database is provisioned. Every call fails
// with a StoreError so callers take their degrade paths.
type NullStore struct{}

func (NullStore) unavailable(op string) error {
	return &StoreError{Op: op, Err: ErrStoreUnavailable}
}

func (s NullStore) GetTournament(context.Context, string) (*models.Tournament, error) {
	return nil, s.unavailable("get tournament")
}

func (s NullStore) ListUpcomingTournaments(context.Context, time.Time) ([]models.Tournament, error) {
	return nil, s.unavailable("list tournaments")
}

func (s NullStore) CreateRegistration(context.Context, *models.Registration) error {
	return s.unavailable("create registration")
}

func (s NullStore) GetRegistration(context.Context, string) (*models.Registration, error) {
	return nil, s.unavailable("get registration")
}

func (s NullStore) ConfirmRegistration(context.Context, ConfirmInput) (*Confirmation, error) {
	return nil, s.unavailable("confirm registration")
}

func (s NullStore) MarkRegistrationFailed(context.Context, string, string) (*models.Registration, error) {
	return nil, s.unavailable("mark registration failed")
}

func (s NullStore) RecordEvent(context.Context, string, string, any) error {
	return s.unavailable("record event")
}

func (s NullStore) CloseStartedTournaments(context.Context, time.Time) (int64, error) {
	return 0, s.unavailable("close started tournaments")
}
